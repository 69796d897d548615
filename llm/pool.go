package llm

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

// BuildFunc constructs a provider for a backend and credential.
type BuildFunc func(backend ProviderType, credential string) (Provider, error)

// PoolOptions configures a Pool.
type PoolOptions struct {
	// Models overrides the default model per backend.
	Models map[ProviderType]string
	// MaxTokens caps completion length; zero keeps the builder default.
	MaxTokens uint32
	// Temperature overrides each backend's tuned default when set.
	Temperature *float32
	// IdleTTL is how long an unused provider stays pooled. Defaults to 30m.
	IdleTTL time.Duration
	// Build replaces the SDK-backed builder, mainly for tests.
	Build BuildFunc
}

// Pool hands out one immutable provider per (backend, credential) pair.
// Credentials are never configured globally; each request names its own key
// and gets a provider bound to it.
type Pool struct {
	cache *cache.Cache
	build BuildFunc
	ttl   time.Duration
}

// NewPool creates a provider pool.
func NewPool(opts PoolOptions) *Pool {
	ttl := opts.IdleTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	build := opts.Build
	if build == nil {
		models := opts.Models
		maxTokens := opts.MaxTokens
		temperature := opts.Temperature
		build = func(backend ProviderType, credential string) (Provider, error) {
			b := NewProviderBuilder(backend)
			if m := models[backend]; m != "" {
				b.Model(m)
			}
			if maxTokens > 0 {
				b.MaxTokens(maxTokens)
			}
			if temperature != nil {
				b.Temperature(*temperature)
			}
			return b.APIKey(credential)
		}
	}

	return &Pool{
		cache: cache.New(ttl, ttl/3),
		build: build,
		ttl:   ttl,
	}
}

// Get returns the pooled provider for the pair, building it on first use.
func (p *Pool) Get(backend ProviderType, credential string) (Provider, error) {
	key := poolKey(backend, credential)
	if v, found := p.cache.Get(key); found {
		// Touch to extend the idle window.
		p.cache.Set(key, v, p.ttl)
		return v.(Provider), nil
	}

	provider, err := p.build(backend, credential)
	if err != nil {
		return nil, err
	}
	if err := p.cache.Add(key, provider, p.ttl); err != nil {
		// Lost a build race; keep the first one.
		if v, found := p.cache.Get(key); found {
			return v.(Provider), nil
		}
	}
	return provider, nil
}

// Len reports how many providers are pooled.
func (p *Pool) Len() int {
	return p.cache.ItemCount()
}

// poolKey avoids holding raw credentials as map keys.
func poolKey(backend ProviderType, credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return fmt.Sprintf("%s:%s", backend, hex.EncodeToString(sum[:8]))
}
