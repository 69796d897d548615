// Package agent provides the bounded tool-calling loop.
//
// Contains the loop states, task input and run result.
package agent

import (
	"github.com/richinex/dossier/llm"
	"github.com/richinex/dossier/model"
)

// State is a position in the loop's state machine.
type State int

const (
	// StateAwaitModel waits for the backend's next response.
	StateAwaitModel State = iota
	// StateExecuteTools runs the tool calls the backend requested.
	StateExecuteTools
	// StateDone means the backend answered without requesting tools.
	StateDone
	// StateExhausted means the iteration cap was hit and a final tool-less
	// answer was requested instead.
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateAwaitModel:
		return "AWAIT_MODEL"
	case StateExecuteTools:
		return "EXECUTE_TOOLS"
	case StateDone:
		return "DONE"
	case StateExhausted:
		return "EXHAUSTED"
	default:
		return "UNKNOWN"
	}
}

// Task is the input to one loop run.
type Task struct {
	// SystemPrompt overrides the configured system prompt when set.
	SystemPrompt string
	Prompt       string
}

// ToolCall is an alias for model.ToolCall for tool call metadata.
type ToolCall = model.ToolCall

// Result is the outcome of one loop run. Text is always set; when Failed is
// true it holds an "Error: ..." message.
type Result struct {
	Text        string
	State       State
	Failed      bool
	Iterations  int
	Invocations []ToolCall
	Metadata    Metadata
}

// Metadata contains metadata about loop execution.
type Metadata struct {
	ExecutionTimeMs uint64
	TokenUsage      llm.TokenUsage
	LLMCalls        int
}
