package tools

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/richinex/dossier/internal/logging"
	"github.com/richinex/dossier/model"
)

// DefaultToolTimeout bounds a single tool call.
const DefaultToolTimeout = 30 * time.Second

// Executor dispatches named tool calls against a registry. Calls are made
// once; failures come back inside the Result and are never retried.
type Executor struct {
	registry *Registry
	timeout  time.Duration
	log      *zap.Logger
}

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewExecutor creates an executor over registry.
func NewExecutor(registry *Registry, opts ExecutorOptions) *Executor {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultToolTimeout
	}
	return &Executor{
		registry: registry,
		timeout:  opts.Timeout,
		log:      logging.OrNop(opts.Logger).Named("tools"),
	}
}

// Registry returns the executor's tool registry.
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Execute runs the named tool with args. Unknown names and invalid arguments
// produce a failure Result.
func (e *Executor) Execute(ctx context.Context, name string, args json.RawMessage) Result {
	tool, ok := e.registry.Get(name)
	if !ok {
		e.log.Warn("unknown tool requested", zap.String("tool", name))
		return FailureResultf("Unknown tool: %s", name)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	result := tool.Execute(ctx, args)
	elapsed := time.Since(start)

	if result.Error != nil {
		e.log.Warn("tool failed",
			zap.String("tool", name),
			zap.ByteString("args", args),
			zap.Duration("elapsed", elapsed),
			zap.Error(result.Error))
	} else {
		e.log.Info("tool executed",
			zap.String("tool", name),
			zap.ByteString("args", args),
			zap.Duration("elapsed", elapsed))
	}
	return result
}

// Invoke executes inv and returns the model-facing text plus an audit entry.
func (e *Executor) Invoke(ctx context.Context, inv Invocation) (string, model.ToolCall) {
	start := time.Now()
	result := e.Execute(ctx, inv.Name, inv.Arguments)
	text := FormatForModel(inv.Name, result)

	return text, model.ToolCall{
		Name:       inv.Name,
		Iteration:  inv.Iteration,
		InputSize:  len(inv.Arguments),
		OutputSize: len(text),
		DurationMs: uint64(time.Since(start).Milliseconds()),
		Success:    result.Success(),
	}
}
