// Package llm provides the generative backends used for content synthesis and
// tool-driven research.
//
// Each provider hides:
// - SDK client construction and authentication
// - Conversion between ChatMessage and the vendor wire format
// - Tool-call encoding for the vendor's function-calling API

package llm

import (
	"context"
)

// Provider is the provider-agnostic generative backend.
// Providers are immutable once built and safe for concurrent use.
type Provider interface {
	// Name returns the backend name (for logging).
	Name() string

	// Model returns the model identifier in use.
	Model() string

	// Chat sends a plain chat completion request.
	Chat(ctx context.Context, messages []ChatMessage) (LLMResponse, error)

	// ChatWithTools sends a chat completion request with tool definitions.
	// The model may respond with tool calls in LLMResponse.ToolCalls.
	ChatWithTools(ctx context.Context, messages []ChatMessage, tools []ToolDefinition) (LLMResponse, error)
}
