// Bounded tool-calling loop.
//
// Information Hiding:
// - Conversation state and tool-call bookkeeping hidden
// - Backend communication hidden behind llm.Provider
// - Tool dispatch hidden behind tools.Executor

package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/richinex/dossier/internal/logging"
	"github.com/richinex/dossier/llm"
	"github.com/richinex/dossier/tools"
)

// Controller drives one backend through request, tool execution and
// response rounds until it answers or the iteration cap is reached.
type Controller struct {
	config   Config
	provider llm.Provider
	executor *tools.Executor
	log      *zap.Logger
}

// New creates a controller.
func New(config Config, provider llm.Provider, executor *tools.Executor, logger *zap.Logger) *Controller {
	return &Controller{
		config:   config,
		provider: provider,
		executor: executor,
		log:      logging.OrNop(logger).Named("agent").With(zap.String("loop", config.Name)),
	}
}

// run holds the mutable state of one Run call.
type run struct {
	conversation []llm.ChatMessage
	pending      []llm.ToolCall
	gathered     []gatheredResult
	iterations   int
	result       Result
}

type gatheredResult struct {
	tool string
	text string
}

// Run executes task. It never panics past its boundary and always returns
// non-empty text.
func (c *Controller) Run(ctx context.Context, task Task) (result Result) {
	start := time.Now()
	maxIterations := c.config.maxIterations()

	systemPrompt := task.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = c.config.SystemPrompt
	}

	r := &run{conversation: []llm.ChatMessage{
		llm.SystemMessage(systemPrompt),
		llm.UserMessage(task.Prompt),
	}}

	defer func() {
		if p := recover(); p != nil {
			c.log.Error("loop panicked", zap.Any("panic", p))
			result = r.fail(fmt.Sprintf("Error: research loop aborted: %v", p))
		}
		result.Iterations = r.iterations
		result.Metadata.ExecutionTimeMs = uint64(time.Since(start).Milliseconds())
	}()

	defs := c.executor.Registry().Definitions()
	state := StateAwaitModel

	for {
		c.log.Debug("state", zap.Stringer("state", state), zap.Int("iteration", r.iterations))

		switch state {
		case StateAwaitModel:
			if r.iterations >= maxIterations {
				state = StateExhausted
				continue
			}
			if err := ctx.Err(); err != nil {
				return r.fail(fmt.Sprintf("Error: research cancelled: %v", err))
			}

			resp, err := c.chat(ctx, r, r.conversation, defs)
			if err != nil {
				c.log.Error("backend request failed", zap.String("backend", c.provider.Name()), zap.Error(err))
				return r.fail(fmt.Sprintf("Error: %s request failed: %v", c.provider.Name(), err))
			}

			if len(resp.ToolCalls) == 0 {
				r.result.Text = resp.Content
				r.result.State = StateDone
				if strings.TrimSpace(resp.Content) == "" {
					r.result.Text = "Error: the model returned an empty response."
					r.result.Failed = true
				}
				c.log.Info("loop completed",
					zap.Int("iterations", r.iterations),
					zap.Int("tool_calls", len(r.result.Invocations)))
				return r.result
			}

			r.conversation = append(r.conversation, llm.AssistantMessage(resp.Content, resp.ToolCalls...))
			r.pending = resp.ToolCalls
			state = StateExecuteTools

		case StateExecuteTools:
			r.iterations++
			for _, call := range r.pending {
				text, audit := c.executor.Invoke(ctx, tools.Invocation{
					ID:        call.ID,
					Name:      call.Name,
					Arguments: call.Arguments,
					Iteration: r.iterations,
				})
				r.result.Invocations = append(r.result.Invocations, audit)
				r.gathered = append(r.gathered, gatheredResult{tool: call.Name, text: text})
				r.conversation = append(r.conversation, llm.ToolMessage(call.ID, call.Name, text))
			}
			r.pending = nil
			state = StateAwaitModel

		case StateExhausted:
			c.log.Warn("iteration cap reached", zap.Int("max_iterations", maxIterations))
			return c.finalAnswer(ctx, r, systemPrompt, task.Prompt, maxIterations)

		default:
			return r.fail(fmt.Sprintf("Error: research loop reached unknown state %v", state))
		}
	}
}

// finalAnswer asks for an answer without tools. The transcript is flattened
// into plain messages because some backends reject tool results when no
// tools are declared.
func (c *Controller) finalAnswer(ctx context.Context, r *run, systemPrompt, prompt string, maxIterations int) Result {
	r.result.State = StateExhausted
	unable := fmt.Sprintf("Error: unable to generate a response after %d tool iterations.", maxIterations)

	var b strings.Builder
	b.WriteString(prompt)
	if len(r.gathered) > 0 {
		b.WriteString("\n\nInformation gathered so far:\n")
		for i, g := range r.gathered {
			fmt.Fprintf(&b, "\n[%d] %s:\n%s\n", i+1, g.tool, g.text)
		}
	}
	b.WriteString("\nYou have reached the tool usage limit. Answer now with the information gathered so far. Do not request any more tools.")

	messages := []llm.ChatMessage{
		llm.SystemMessage(systemPrompt),
		llm.UserMessage(b.String()),
	}

	resp, err := c.chat(ctx, r, messages, nil)
	if err != nil || strings.TrimSpace(resp.Content) == "" {
		if err != nil {
			c.log.Error("final answer failed", zap.Error(err))
		}
		r.result.Text = unable
		r.result.Failed = true
		return r.result
	}

	r.result.Text = resp.Content
	return r.result
}

// chat issues one bounded backend call. A nil defs slice sends no tools.
func (c *Controller) chat(ctx context.Context, r *run, messages []llm.ChatMessage, defs []llm.ToolDefinition) (llm.LLMResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.callTimeout())
	defer cancel()

	var (
		resp llm.LLMResponse
		err  error
	)
	if defs == nil {
		resp, err = c.provider.Chat(ctx, messages)
	} else {
		resp, err = c.provider.ChatWithTools(ctx, messages, defs)
	}
	if err != nil {
		return resp, err
	}

	r.result.Metadata.LLMCalls++
	if resp.Usage != nil {
		r.result.Metadata.TokenUsage.PromptTokens += resp.Usage.PromptTokens
		r.result.Metadata.TokenUsage.CompletionTokens += resp.Usage.CompletionTokens
		r.result.Metadata.TokenUsage.TotalTokens += resp.Usage.TotalTokens
	}
	return resp, nil
}

func (r *run) fail(text string) Result {
	r.result.Text = text
	r.result.Failed = true
	if r.result.State != StateExhausted {
		r.result.State = StateDone
	}
	return r.result
}
