// Package tools provides the research tools a generative backend may call
// during an agentic run.
//
// Information Hiding:
// - Argument decoding and validation hidden behind typed argument structs
// - Search and history collaborators hidden behind narrow interfaces
// - Model-facing rendering confined to FormatForModel
package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// Tool names.
const (
	NameSearchWeb     = "search_web"
	NameScrapeWebpage = "scrape_webpage"
	NameGetHistory    = "get_history"
)

// ToolParameter defines a parameter schema for a tool.
type ToolParameter struct {
	Name        string `json:"name"`
	ParamType   string `json:"param_type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// ToolMetadata describes what a tool does and how to use it.
type ToolMetadata struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
}

// String returns a string representation of the tool metadata.
func (m ToolMetadata) String() string {
	return fmt.Sprintf("%s: %s", m.Name, m.Description)
}

// Result is the outcome of one tool execution. Success is determined by
// whether Error is nil. Data, when set, is the structured payload rendered
// as JSON for the model; otherwise Output is passed through as text.
type Result struct {
	Output string `json:"output"`
	Data   any    `json:"data,omitempty"`
	Error  error  `json:"-"`
}

// MarshalJSON implements custom JSON marshaling for Result.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Error != nil {
		return json.Marshal(struct {
			Success bool   `json:"success"`
			Error   string `json:"error"`
		}{
			Success: false,
			Error:   r.Error.Error(),
		})
	}
	return json.Marshal(struct {
		Success bool   `json:"success"`
		Output  string `json:"output,omitempty"`
		Data    any    `json:"data,omitempty"`
	}{
		Success: true,
		Output:  r.Output,
		Data:    r.Data,
	})
}

// Success returns true if the tool execution succeeded.
func (r Result) Success() bool {
	return r.Error == nil
}

// SuccessResult creates a successful text result.
func SuccessResult(output string) Result {
	return Result{Output: output}
}

// DataResult creates a successful structured result.
func DataResult(data any) Result {
	return Result{Data: data}
}

// FailureResult creates a failed tool result.
func FailureResult(err error) Result {
	return Result{Error: err}
}

// FailureResultf creates a failed tool result with a formatted error message.
func FailureResultf(format string, args ...any) Result {
	return Result{Error: fmt.Errorf(format, args...)}
}

// Tool is the interface that all tools must implement.
type Tool interface {
	// Metadata returns tool metadata (name, description, parameters).
	Metadata() ToolMetadata

	// Execute runs the tool. Failures are reported in the Result.
	Execute(ctx context.Context, args json.RawMessage) Result
}

// Invocation is one tool call requested by the model.
type Invocation struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
	Iteration int             `json:"iteration"`
}

// FormatForModel renders a result for the backend's tool-result channel.
func FormatForModel(name string, r Result) string {
	if r.Error != nil {
		return fmt.Sprintf("Tool '%s' failed: %s", name, r.Error)
	}
	if r.Data != nil {
		data, err := json.MarshalIndent(r.Data, "", "  ")
		if err != nil {
			return fmt.Sprintf("Tool '%s' failed: unencodable result: %s", name, err)
		}
		return string(data)
	}
	return r.Output
}
