package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/richinex/dossier/content"
	"github.com/richinex/dossier/internal/logging"
	"github.com/richinex/dossier/llm"
	"github.com/richinex/dossier/tools"
)

// RunnerOptions wires a Runner to its collaborators.
type RunnerOptions struct {
	Pool    *llm.Pool
	Gateway tools.WebGateway
	// History is optional.
	History     tools.HistoryProvider
	Config      Config
	ToolTimeout time.Duration
	MaxResults  int
	ScrapeChars int
	Logger      *zap.Logger
}

// Runner builds a provider, tool set and controller per request.
type Runner struct {
	opts RunnerOptions
	log  *zap.Logger
}

// NewRunner creates a runner.
func NewRunner(opts RunnerOptions) *Runner {
	if opts.Config.Name == "" {
		opts.Config = DefaultConfig()
	}
	return &Runner{opts: opts, log: logging.OrNop(opts.Logger)}
}

// Request is one agentic research request.
type Request struct {
	Task       Task
	Backend    llm.ProviderType
	Credential string
	// SearchCredential selects the keyed search backend when non-empty.
	SearchCredential string
	// Owner scopes get_history.
	Owner string
}

// Run executes req. Precondition failures come back as failed results.
func (r *Runner) Run(ctx context.Context, req Request) Result {
	if strings.TrimSpace(req.Credential) == "" {
		return Result{Text: content.MissingCredential(req.Backend), State: StateDone, Failed: true}
	}

	provider, err := r.opts.Pool.Get(req.Backend, req.Credential)
	if err != nil {
		text := fmt.Sprintf("Error: %s backend unavailable: %v", req.Backend.DisplayName(), err)
		if errors.Is(err, llm.ErrMissingCredential) {
			text = content.MissingCredential(req.Backend)
		}
		return Result{Text: text, State: StateDone, Failed: true}
	}

	registry, err := tools.NewResearchRegistry(tools.ResearchConfig{
		Gateway:          r.opts.Gateway,
		SearchCredential: req.SearchCredential,
		History:          r.opts.History,
		Owner:            req.Owner,
		MaxResults:       r.opts.MaxResults,
		ScrapeChars:      r.opts.ScrapeChars,
	})
	if err != nil {
		return Result{Text: fmt.Sprintf("Error: %v", err), State: StateDone, Failed: true}
	}

	executor := tools.NewExecutor(registry, tools.ExecutorOptions{Timeout: r.opts.ToolTimeout, Logger: r.log})
	return New(r.opts.Config, provider, executor, r.log).Run(ctx, req.Task)
}
