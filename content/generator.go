// Package content renders fixed prompt templates and sends them to a
// generative backend.
//
// Generate never returns a Go error. Missing credentials and backend failures
// come back as text starting with "Error", which the cache failure filter
// recognises and refuses to serve.
package content

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/richinex/dossier/cache"
	ijson "github.com/richinex/dossier/internal/json"
	"github.com/richinex/dossier/internal/logging"
	"github.com/richinex/dossier/llm"
)

// Template selects the prompt shape.
type Template int

const (
	TemplateProfile Template = iota
	TemplateNote
	TemplatePlan
	TemplateReport
)

func (t Template) String() string {
	switch t {
	case TemplateProfile:
		return "profile"
	case TemplateNote:
		return "note"
	case TemplatePlan:
		return "plan"
	case TemplateReport:
		return "report"
	default:
		return fmt.Sprintf("template(%d)", int(t))
	}
}

func (t Template) systemPrompt() string {
	switch t {
	case TemplateProfile:
		return profileSystemPrompt
	case TemplateNote:
		return noteSystemPrompt
	default:
		return analystSystemPrompt
	}
}

// Inputs carries template parameters. Each template reads only its own fields.
type Inputs struct {
	// Profile.
	ResearchData any

	// Note.
	ProfileText string
	Length      int
	Tone        string
	Context     string

	// Plan and report.
	Topic           string
	ResearchContext string
}

// Note defaults.
const (
	DefaultNoteLength = 300
	DefaultNoteTone   = "professional"
)

// PlannedQueries is how many search queries a plan asks for and keeps.
const PlannedQueries = 4

// Completion is the generated text plus the prompt that produced it.
type Completion struct {
	Text   string
	Prompt string
}

// Plan is the outcome of query planning. Raw holds the model text on success
// and the failure text when the fallback was used.
type Plan struct {
	Queries  []string
	Prompt   string
	Raw      string
	Fallback bool
}

// Options configures a Generator.
type Options struct {
	// CallTimeout bounds each backend call. Zero means 120s.
	CallTimeout time.Duration
	Logger      *zap.Logger
}

// Generator dispatches rendered templates to pooled providers.
type Generator struct {
	pool    *llm.Pool
	timeout time.Duration
	log     *zap.Logger
}

// NewGenerator creates a generator drawing providers from pool.
func NewGenerator(pool *llm.Pool, opts Options) *Generator {
	timeout := opts.CallTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Generator{
		pool:    pool,
		timeout: timeout,
		log:     logging.OrNop(opts.Logger).Named("content"),
	}
}

// MissingCredential is the precondition text for an absent backend key.
func MissingCredential(backend llm.ProviderType) string {
	return fmt.Sprintf("Error: %s API key is required.", backend.DisplayName())
}

// Render builds the user prompt for a template.
func Render(tmpl Template, in Inputs) (string, error) {
	switch tmpl {
	case TemplateProfile:
		return profilePrompt(in)
	case TemplateNote:
		if in.Length <= 0 {
			in.Length = DefaultNoteLength
		}
		if strings.TrimSpace(in.Tone) == "" {
			in.Tone = DefaultNoteTone
		}
		return notePrompt(in), nil
	case TemplatePlan:
		return planPrompt(in), nil
	case TemplateReport:
		return reportPrompt(in), nil
	default:
		return "", fmt.Errorf("unknown template: %s", tmpl)
	}
}

// Generate renders tmpl and completes it on backend.
func (g *Generator) Generate(ctx context.Context, tmpl Template, in Inputs, backend llm.ProviderType, credential string) Completion {
	prompt, err := Render(tmpl, in)
	if err != nil {
		return Completion{Text: fmt.Sprintf("Error generating %s: %v", tmpl, err)}
	}
	if strings.TrimSpace(credential) == "" {
		g.log.Warn("missing credential", zap.String("template", tmpl.String()), zap.String("backend", backend.String()))
		return Completion{Text: MissingCredential(backend), Prompt: prompt}
	}

	provider, err := g.pool.Get(backend, credential)
	if err != nil {
		if errors.Is(err, llm.ErrMissingCredential) {
			return Completion{Text: MissingCredential(backend), Prompt: prompt}
		}
		return Completion{Text: fmt.Sprintf("Error generating %s: %v", tmpl, err), Prompt: prompt}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := provider.Chat(ctx, []llm.ChatMessage{
		llm.SystemMessage(tmpl.systemPrompt()),
		llm.UserMessage(prompt),
	})
	if err != nil {
		g.log.Error("generation failed",
			zap.String("template", tmpl.String()),
			zap.String("backend", provider.Name()),
			zap.Error(err))
		return Completion{Text: fmt.Sprintf("Error generating %s: %v", tmpl, err), Prompt: prompt}
	}

	g.log.Info("generation completed",
		zap.String("template", tmpl.String()),
		zap.String("backend", provider.Name()),
		zap.String("model", provider.Model()),
		zap.Int("chars", len(resp.Content)),
		zap.Duration("elapsed", time.Since(start)))
	return Completion{Text: resp.Content, Prompt: prompt}
}

// FallbackQueries is the deterministic plan used when planning fails.
func FallbackQueries(topic string) []string {
	return []string{
		topic,
		topic + " details",
		topic + " analysis",
		topic + " latest news",
	}
}

// Plan asks the backend for search queries about topic. A failed call or an
// unparsable answer yields FallbackQueries, so the result always has queries.
func (g *Generator) Plan(ctx context.Context, topic string, backend llm.ProviderType, credential string) Plan {
	c := g.Generate(ctx, TemplatePlan, Inputs{Topic: topic}, backend, credential)
	if cache.IsFailure(c.Text) {
		return g.fallback(topic, c.Prompt, c.Text)
	}

	parsed, err := ijson.ExtractList[string](c.Text)
	if err != nil {
		return g.fallback(topic, c.Prompt, fmt.Sprintf("Error parsing plan: %v", err))
	}

	queries := make([]string, 0, PlannedQueries)
	for _, q := range parsed {
		if q = strings.TrimSpace(q); q != "" {
			queries = append(queries, q)
		}
		if len(queries) == PlannedQueries {
			break
		}
	}
	if len(queries) == 0 {
		return g.fallback(topic, c.Prompt, "Error parsing plan: no queries in response")
	}
	return Plan{Queries: queries, Prompt: c.Prompt, Raw: c.Text}
}

func (g *Generator) fallback(topic, prompt, reason string) Plan {
	g.log.Warn("using fallback plan", zap.String("topic", topic), zap.String("reason", reason))
	return Plan{Queries: FallbackQueries(topic), Prompt: prompt, Raw: reason, Fallback: true}
}
