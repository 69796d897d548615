// Package config provides application settings loaded from an optional YAML
// file and environment variables.
//
// Settings are created via New() or Load() which handle:
// - Default value application
// - YAML file overlay
// - Environment variable parsing with validation (env wins over the file)
// - Provider-specific configuration lookup

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/richinex/dossier/llm"
)

// Settings holds all application configuration.
type Settings struct {
	LLM    LLMConfig    `yaml:"llm"`
	Agent  AgentConfig  `yaml:"agent"`
	Cache  CacheConfig  `yaml:"cache"`
	Search SearchConfig `yaml:"search"`
	Log    LogConfig    `yaml:"log"`
}

// LLMConfig holds generative backend configuration.
type LLMConfig struct {
	// Provider is the canonical backend name used when a request names none.
	Provider string `yaml:"provider"`
	// Model is the model for Provider.
	Model string `yaml:"-"`
	// Models overrides the default model per backend name.
	Models    map[string]string `yaml:"models"`
	MaxTokens uint32            `yaml:"max_tokens"`
	// Temperature overrides every backend's tuned default when set.
	Temperature *float64      `yaml:"temperature"`
	CallTimeout time.Duration `yaml:"call_timeout"`
}

// AgentConfig holds agentic loop configuration.
type AgentConfig struct {
	MaxIterations int           `yaml:"max_iterations"`
	ToolTimeout   time.Duration `yaml:"tool_timeout"`
}

// Cache store kinds.
const (
	StoreSqlite   = "sqlite"
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// CacheConfig selects and tunes the interaction log.
type CacheConfig struct {
	Store          string  `yaml:"store"`
	DBPath         string  `yaml:"db_path"`
	RedisAddr      string  `yaml:"redis_addr"`
	RedisPrefix    string  `yaml:"redis_prefix"`
	PostgresDSN    string  `yaml:"postgres_dsn"`
	Threshold      float64 `yaml:"similarity_threshold"`
	ExactScanLimit int     `yaml:"exact_scan_limit"`
	FuzzyScanLimit int     `yaml:"fuzzy_scan_limit"`
}

// SearchConfig bounds search and scraping.
type SearchConfig struct {
	MaxResults    int           `yaml:"max_results"`
	ScrapeChars   int           `yaml:"scrape_max_chars"`
	ScrapeTimeout time.Duration `yaml:"scrape_timeout"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Defaults returns settings before any file or environment overlay.
func Defaults() Settings {
	return Settings{
		LLM: LLMConfig{
			Provider:    llm.ProviderOpenAI.String(),
			MaxTokens:   4096,
			CallTimeout: 120 * time.Second,
		},
		Agent: AgentConfig{
			MaxIterations: 5,
			ToolTimeout:   30 * time.Second,
		},
		Cache: CacheConfig{
			Store:          StoreSqlite,
			DBPath:         "dossier.db",
			RedisAddr:      "localhost:6379",
			RedisPrefix:    "dossier:logs",
			Threshold:      0.8,
			ExactScanLimit: 50,
			FuzzyScanLimit: 20,
		},
		Search: SearchConfig{
			MaxResults:    10,
			ScrapeChars:   5000,
			ScrapeTimeout: 5 * time.Second,
		},
	}
}

// New creates settings for the specified provider, loading values from environment variables.
// An empty provider falls back to LLM_PROVIDER and then to openai.
func New(provider string) (Settings, error) {
	return Load(provider, "")
}

// Load is New with an optional YAML file applied before the environment.
func Load(provider, path string) (Settings, error) {
	s := Defaults()

	if path != "" {
		if err := s.applyFile(path); err != nil {
			return Settings{}, err
		}
	}
	if err := s.applyEnv(); err != nil {
		return Settings{}, err
	}

	if provider != "" {
		s.LLM.Provider = provider
	}
	backend, err := llm.ParseProviderType(s.LLM.Provider)
	if err != nil {
		return Settings{}, err
	}
	s.LLM.Provider = backend.String()
	s.LLM.Model = s.LLM.ModelFor(backend)

	if err := s.validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// MustNew creates settings for the specified provider.
// Panics if the provider is unknown or environment variables are invalid.
// Use this only when configuration errors should be fatal.
func MustNew(provider string) Settings {
	settings, err := New(provider)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

func (s *Settings) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (s *Settings) applyEnv() error {
	var err error
	s.LLM.Provider = getEnvString("LLM_PROVIDER", s.LLM.Provider)
	for _, backend := range llm.ProviderTypes {
		if model := os.Getenv(modelEnv(backend)); model != "" {
			if s.LLM.Models == nil {
				s.LLM.Models = make(map[string]string)
			}
			s.LLM.Models[backend.String()] = model
		}
	}
	if s.LLM.MaxTokens, err = getEnvUint32("LLM_MAX_TOKENS", s.LLM.MaxTokens); err != nil {
		return err
	}
	if val := os.Getenv("LLM_TEMPERATURE"); val != "" {
		t, err := getEnvFloat64("LLM_TEMPERATURE", 0)
		if err != nil {
			return err
		}
		s.LLM.Temperature = &t
	}
	if s.LLM.CallTimeout, err = getEnvDuration("CALL_TIMEOUT", s.LLM.CallTimeout); err != nil {
		return err
	}

	if s.Agent.MaxIterations, err = getEnvInt("AGENT_MAX_ITERATIONS", s.Agent.MaxIterations); err != nil {
		return err
	}
	if s.Agent.ToolTimeout, err = getEnvDuration("TOOL_TIMEOUT", s.Agent.ToolTimeout); err != nil {
		return err
	}

	s.Cache.Store = strings.ToLower(getEnvString("CACHE_STORE", s.Cache.Store))
	s.Cache.DBPath = getEnvString("CACHE_DB_PATH", s.Cache.DBPath)
	s.Cache.RedisAddr = getEnvString("REDIS_ADDR", s.Cache.RedisAddr)
	s.Cache.RedisPrefix = getEnvString("REDIS_PREFIX", s.Cache.RedisPrefix)
	s.Cache.PostgresDSN = getEnvString("POSTGRES_DSN", s.Cache.PostgresDSN)
	if s.Cache.Threshold, err = getEnvFloat64("CACHE_SIMILARITY_THRESHOLD", s.Cache.Threshold); err != nil {
		return err
	}
	if s.Cache.ExactScanLimit, err = getEnvInt("CACHE_EXACT_SCAN_LIMIT", s.Cache.ExactScanLimit); err != nil {
		return err
	}
	if s.Cache.FuzzyScanLimit, err = getEnvInt("CACHE_FUZZY_SCAN_LIMIT", s.Cache.FuzzyScanLimit); err != nil {
		return err
	}

	if s.Search.MaxResults, err = getEnvInt("SEARCH_MAX_RESULTS", s.Search.MaxResults); err != nil {
		return err
	}
	if s.Search.ScrapeChars, err = getEnvInt("SCRAPE_MAX_CHARS", s.Search.ScrapeChars); err != nil {
		return err
	}
	if s.Search.ScrapeTimeout, err = getEnvDuration("SCRAPE_TIMEOUT", s.Search.ScrapeTimeout); err != nil {
		return err
	}

	s.Log.Level = getEnvString("LOG_LEVEL", s.Log.Level)
	s.Log.Format = getEnvString("LOG_FORMAT", s.Log.Format)
	s.Log.File = getEnvString("LOG_FILE", s.Log.File)
	return nil
}

func (s Settings) validate() error {
	var errs []error
	if s.Agent.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("agent max iterations must be at least 1, got %d", s.Agent.MaxIterations))
	}
	if s.Cache.Threshold <= 0 || s.Cache.Threshold > 1 {
		errs = append(errs, fmt.Errorf("similarity threshold must be in (0, 1], got %v", s.Cache.Threshold))
	}
	switch s.Cache.Store {
	case StoreSqlite, StoreMemory, StoreRedis, StorePostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown cache store %q", s.Cache.Store))
	}
	if s.Cache.Store == StorePostgres && s.Cache.PostgresDSN == "" {
		errs = append(errs, errors.New("POSTGRES_DSN is required for the postgres cache store"))
	}
	if s.Search.MaxResults < 1 || s.Search.ScrapeChars < 1 {
		errs = append(errs, errors.New("search max results and scrape max chars must be positive"))
	}
	return errors.Join(errs...)
}

// Backend returns the configured default backend.
func (c LLMConfig) Backend() llm.ProviderType {
	backend, _ := llm.ParseProviderType(c.Provider)
	return backend
}

// ModelFor returns the configured model for backend, or its default.
func (c LLMConfig) ModelFor(backend llm.ProviderType) string {
	if m := c.Models[backend.String()]; m != "" {
		return m
	}
	return backend.DefaultModel()
}

// PoolModels returns the per-backend model overrides in pool form.
func (c LLMConfig) PoolModels() map[llm.ProviderType]string {
	out := make(map[llm.ProviderType]string, len(llm.ProviderTypes))
	for _, backend := range llm.ProviderTypes {
		out[backend] = c.ModelFor(backend)
	}
	return out
}

// Temperature32 returns the temperature override in pool form, or nil.
func (c LLMConfig) Temperature32() *float32 {
	if c.Temperature == nil {
		return nil
	}
	t := float32(*c.Temperature)
	return &t
}

func modelEnv(backend llm.ProviderType) string {
	return strings.ToUpper(backend.String()) + "_MODEL"
}

// APIKeyFor returns the API key for a provider from environment variables.
func APIKeyFor(provider string) (string, error) {
	backend, err := llm.ParseProviderType(provider)
	if err != nil {
		return "", err
	}

	key := os.Getenv(backend.EnvVar())
	if key == "" {
		return "", fmt.Errorf("%s environment variable not set", backend.EnvVar())
	}
	return key, nil
}

// SearchAPIKey returns the keyed search credential, or "" to use the keyless backend.
func SearchAPIKey() string {
	return os.Getenv("SERPER_API_KEY")
}

// SupportedProviders returns the list of supported provider names.
func SupportedProviders() []string {
	result := make([]string, 0, len(llm.ProviderTypes))
	for _, backend := range llm.ProviderTypes {
		result = append(result, backend.String())
	}
	return result
}

// Environment variable helpers with proper error handling

func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}

func getEnvUint32(key string, defaultVal uint32) (uint32, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return uint32(i), nil
}

func getEnvFloat64(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return f, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return d, nil
}
