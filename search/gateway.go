// Package search is the gateway to web search and page scraping.
//
// Two interchangeable backends serve queries: a keyless DuckDuckGo scraper
// and the keyed Serper API. Callers pick by credential: a Serper key selects
// Serper, no key selects DuckDuckGo. Upstream failures are logged and
// degrade to empty results; nothing here returns an error to the caller.
package search

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/richinex/dossier/internal/logging"
	"github.com/richinex/dossier/model"
)

// Backend identifies a search provider.
type Backend int

const (
	// BackendDuckDuckGo is the keyless generic backend.
	BackendDuckDuckGo Backend = iota
	// BackendSerper is the keyed Google-results backend.
	BackendSerper
)

// String returns the identifier used in cache keys.
func (b Backend) String() string {
	switch b {
	case BackendSerper:
		return "serper"
	default:
		return "duckduckgo"
	}
}

// DisplayName returns the human-facing backend name.
func (b Backend) DisplayName() string {
	switch b {
	case BackendSerper:
		return "Serper"
	default:
		return "DuckDuckGo"
	}
}

// BackendFor selects the keyed backend iff a credential is present.
func BackendFor(credential string) Backend {
	if strings.TrimSpace(credential) != "" {
		return BackendSerper
	}
	return BackendDuckDuckGo
}

// Searcher is implemented by each search backend.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]model.SearchResult, error)
}

// Defaults.
const (
	DefaultMaxResults    = 10
	DefaultScrapeChars   = 5000
	DefaultScrapeTimeout = 5 * time.Second
	DefaultCallTimeout   = 30 * time.Second
)

// Options configures a Gateway. Zero values take defaults.
type Options struct {
	HTTPClient    *http.Client
	DuckDuckGoURL string
	SerperURL     string
	CallTimeout   time.Duration
	ScrapeTimeout time.Duration
	Logger        *zap.Logger
}

// Gateway routes searches to a backend and fetches pages.
type Gateway struct {
	client        *http.Client
	ddgURL        string
	serperURL     string
	callTimeout   time.Duration
	scrapeTimeout time.Duration
	log           *zap.Logger
}

// NewGateway creates a gateway.
func NewGateway(opts Options) *Gateway {
	g := &Gateway{
		client:        opts.HTTPClient,
		ddgURL:        opts.DuckDuckGoURL,
		serperURL:     opts.SerperURL,
		callTimeout:   opts.CallTimeout,
		scrapeTimeout: opts.ScrapeTimeout,
		log:           logging.OrNop(opts.Logger).Named("search"),
	}
	if g.client == nil {
		g.client = &http.Client{}
	}
	if g.ddgURL == "" {
		g.ddgURL = duckDuckGoEndpoint
	}
	if g.serperURL == "" {
		g.serperURL = serperEndpoint
	}
	if g.callTimeout <= 0 {
		g.callTimeout = DefaultCallTimeout
	}
	if g.scrapeTimeout <= 0 {
		g.scrapeTimeout = DefaultScrapeTimeout
	}
	return g
}

// Searcher returns the backend for a credential.
func (g *Gateway) Searcher(credential string) (Searcher, Backend) {
	backend := BackendFor(credential)
	if backend == BackendSerper {
		return &Serper{client: g.client, endpoint: g.serperURL, apiKey: strings.TrimSpace(credential)}, backend
	}
	return &DuckDuckGo{client: g.client, endpoint: g.ddgURL}, backend
}

// Search runs query on the backend chosen by credential. Failures are logged
// and yield an empty list.
func (g *Gateway) Search(ctx context.Context, query, credential string, maxResults int) ([]model.SearchResult, Backend) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	searcher, backend := g.Searcher(credential)

	ctx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	start := time.Now()
	results, err := searcher.Search(ctx, query, maxResults)
	if err != nil {
		g.log.Warn("search failed",
			zap.String("backend", backend.String()),
			zap.String("query", query),
			zap.Error(err))
		return nil, backend
	}
	if len(results) > maxResults {
		results = results[:maxResults]
	}

	g.log.Info("search completed",
		zap.String("backend", backend.String()),
		zap.String("query", query),
		zap.Int("results", len(results)),
		zap.Duration("elapsed", time.Since(start)))
	return results, backend
}
