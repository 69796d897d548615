// Provider factory: a small builder for constructing backends.
//
//	gemini, err := llm.ProviderGemini.APIKey(key)
//
//	grok, err := llm.ProviderGrok.
//	    Model(llm.ModelGrok41Fast).
//	    MaxTokens(2048).
//	    Temperature(0.8).
//	    APIKey(key)

package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingCredential is returned when a provider is built without an API key.
var ErrMissingCredential = errors.New("missing API key")

// ProviderType identifies a generative backend.
type ProviderType int

const (
	// ProviderGemini is the Google Gemini backend.
	ProviderGemini ProviderType = iota
	// ProviderOpenAI is the OpenAI backend.
	ProviderOpenAI
	// ProviderGrok is xAI Grok over its OpenAI-compatible API.
	ProviderGrok
	// ProviderAnthropic is the Anthropic Claude backend.
	ProviderAnthropic
)

// ProviderTypes lists every supported backend.
var ProviderTypes = []ProviderType{ProviderGemini, ProviderOpenAI, ProviderGrok, ProviderAnthropic}

// String returns the lowercase identifier used in config and cache keys.
func (p ProviderType) String() string {
	switch p {
	case ProviderGemini:
		return "gemini"
	case ProviderOpenAI:
		return "openai"
	case ProviderGrok:
		return "grok"
	case ProviderAnthropic:
		return "anthropic"
	default:
		return "unknown"
	}
}

// DisplayName returns the human-facing backend name used in messages.
func (p ProviderType) DisplayName() string {
	switch p {
	case ProviderGemini:
		return "Gemini"
	case ProviderOpenAI:
		return "OpenAI"
	case ProviderGrok:
		return "Grok"
	case ProviderAnthropic:
		return "Anthropic"
	default:
		return "Unknown"
	}
}

// EnvVar returns the environment variable holding this backend's API key.
func (p ProviderType) EnvVar() string {
	switch p {
	case ProviderGemini:
		return "GEMINI_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGrok:
		return "GROK_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	default:
		return ""
	}
}

// DefaultModel returns the default model for this backend.
func (p ProviderType) DefaultModel() string {
	switch p {
	case ProviderGemini:
		return ModelGemini25Flash
	case ProviderOpenAI:
		return ModelOpenAIGPT5Nano
	case ProviderGrok:
		return ModelGrok41Fast
	case ProviderAnthropic:
		return ModelAnthropicClaudeSonnet4
	default:
		return ""
	}
}

// DefaultTemperature returns the sampling temperature tuned for this backend.
func (p ProviderType) DefaultTemperature() float32 {
	switch p {
	case ProviderOpenAI:
		return 1.0
	case ProviderGrok:
		return 0.8
	default:
		return 0.7
	}
}

// ParseProviderType parses a backend name (case-insensitive).
func ParseProviderType(s string) (ProviderType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gemini", "google":
		return ProviderGemini, nil
	case "openai", "gpt":
		return ProviderOpenAI, nil
	case "grok", "xai":
		return ProviderGrok, nil
	case "anthropic", "claude":
		return ProviderAnthropic, nil
	default:
		return 0, fmt.Errorf("unknown provider: %s", s)
	}
}

// Model starts configuring this backend with a specific model.
func (p ProviderType) Model(model string) *ProviderBuilder {
	return NewProviderBuilder(p).Model(model)
}

// APIKey builds this backend with defaults and the given key.
func (p ProviderType) APIKey(key string) (Provider, error) {
	return NewProviderBuilder(p).APIKey(key)
}

// ProviderBuilder configures a backend before construction.
type ProviderBuilder struct {
	providerType ProviderType
	model        string
	baseURL      string
	maxTokens    uint32
	temperature  *float32
}

// NewProviderBuilder creates a new builder for the given backend.
func NewProviderBuilder(providerType ProviderType) *ProviderBuilder {
	return &ProviderBuilder{providerType: providerType}
}

// Model sets the model to use.
func (b *ProviderBuilder) Model(model string) *ProviderBuilder {
	b.model = model
	return b
}

// BaseURL overrides the API endpoint.
func (b *ProviderBuilder) BaseURL(url string) *ProviderBuilder {
	b.baseURL = url
	return b
}

// MaxTokens sets maximum tokens for responses.
func (b *ProviderBuilder) MaxTokens(tokens uint32) *ProviderBuilder {
	b.maxTokens = tokens
	return b
}

// Temperature sets the sampling temperature.
func (b *ProviderBuilder) Temperature(temp float32) *ProviderBuilder {
	b.temperature = &temp
	return b
}

// APIKey builds the provider with an explicit API key.
func (b *ProviderBuilder) APIKey(key string) (Provider, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("%s: %w", b.providerType, ErrMissingCredential)
	}

	opts := providerOptions{
		apiKey:      key,
		model:       b.model,
		baseURL:     b.baseURL,
		maxTokens:   b.maxTokens,
		temperature: b.providerType.DefaultTemperature(),
	}
	if opts.model == "" {
		opts.model = b.providerType.DefaultModel()
	}
	if opts.maxTokens == 0 {
		opts.maxTokens = 4096
	}
	if b.temperature != nil {
		opts.temperature = *b.temperature
	}

	switch b.providerType {
	case ProviderOpenAI:
		return newOpenAIProvider("openai", opts), nil
	case ProviderGrok:
		return newGrokProvider(opts), nil
	case ProviderAnthropic:
		return newAnthropicProvider(opts), nil
	case ProviderGemini:
		return newGeminiProvider(opts)
	default:
		return nil, fmt.Errorf("unknown provider type: %v", b.providerType)
	}
}

// providerOptions is the resolved configuration handed to each adapter.
type providerOptions struct {
	apiKey      string
	model       string
	baseURL     string
	maxTokens   uint32
	temperature float32
}

// OpenAI model identifiers.
const (
	ModelOpenAIGPT5Nano = "gpt-5-nano"
	ModelOpenAIGPT4o    = "gpt-4o"
)

// Gemini model identifiers.
const (
	ModelGemini25Flash     = "gemini-2.5-flash"
	ModelGemini3ProPreview = "gemini-3-pro-preview"
)

// ModelGrok41Fast is the fast Grok 4.1 model.
const ModelGrok41Fast = "grok-4-1-fast"

// ModelAnthropicClaudeSonnet4 is Claude Sonnet 4.
const ModelAnthropicClaudeSonnet4 = "claude-sonnet-4-20250514"
