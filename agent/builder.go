// Loop builder for fluent configuration.
//
// Information Hiding:
// - Builder state management hidden
// - Default value application hidden

package agent

import (
	"fmt"
	"time"
)

// Builder provides fluent configuration for a loop.
// Usage: agent.NewBuilder("name") - no stutter.
type Builder struct {
	name          string
	systemPrompt  string
	maxIterations int
	callTimeout   time.Duration
}

// NewBuilder creates a new builder with the given name.
func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

// SystemPrompt sets the system prompt.
func (b *Builder) SystemPrompt(prompt string) *Builder {
	b.systemPrompt = prompt
	return b
}

// MaxIterations sets the tool round cap.
func (b *Builder) MaxIterations(n int) *Builder {
	b.maxIterations = n
	return b
}

// CallTimeout sets the per-call backend timeout.
func (b *Builder) CallTimeout(d time.Duration) *Builder {
	b.callTimeout = d
	return b
}

// Build creates the configuration.
func (b *Builder) Build() Config {
	systemPrompt := b.systemPrompt
	if systemPrompt == "" {
		systemPrompt = fmt.Sprintf(
			"You are a research agent named %s. Use available tools to complete tasks.",
			b.name,
		)
	}

	return Config{
		Name:          b.name,
		SystemPrompt:  systemPrompt,
		MaxIterations: b.maxIterations,
		CallTimeout:   b.callTimeout,
	}
}
