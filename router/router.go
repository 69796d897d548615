// Package router turns profile, deep-research and note requests into calls on
// the research pipeline, the agentic loop and the content generator, choosing
// between them by mode and short-circuiting through the cache.
package router

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/richinex/dossier/agent"
	"github.com/richinex/dossier/cache"
	"github.com/richinex/dossier/content"
	"github.com/richinex/dossier/internal/logging"
	"github.com/richinex/dossier/llm"
	"github.com/richinex/dossier/model"
	"github.com/richinex/dossier/research"
	"github.com/richinex/dossier/tools"
)

// ProfileSearchResults caps the results gathered for a profile.
const ProfileSearchResults = 5

// HistoryStore keeps generated profiles per owner.
type HistoryStore interface {
	tools.HistoryProvider
	SaveProfile(ctx context.Context, p model.SavedProfile) (int64, error)
}

// Options wires a Router. History is optional.
type Options struct {
	Cache     *cache.Manager
	Generator *content.Generator
	Pipeline  *research.Pipeline
	Agents    *agent.Runner
	History   HistoryStore
	Logger    *zap.Logger
}

// Router dispatches requests by mode.
type Router struct {
	cache    *cache.Manager
	gen      *content.Generator
	pipeline *research.Pipeline
	agents   *agent.Runner
	history  HistoryStore
	log      *zap.Logger
}

// New creates a router.
func New(opts Options) *Router {
	return &Router{
		cache:    opts.Cache,
		gen:      opts.Generator,
		pipeline: opts.Pipeline,
		agents:   opts.Agents,
		history:  opts.History,
		log:      logging.OrNop(opts.Logger).Named("router"),
	}
}

// Credentials names the keys a request runs with. SearchKey selects the
// keyed search backend when set.
type Credentials struct {
	Backend   llm.ProviderType
	APIKey    string
	SearchKey string
}

// DeepResearchRequest asks for a report on a topic.
type DeepResearchRequest struct {
	Topic  string
	Mode   string
	Bypass bool
	Owner  string
	Credentials
}

// ProfileRequest asks for a professional profile of a person.
type ProfileRequest struct {
	Name           string
	Company        string
	AdditionalInfo string
	Mode           string
	Bypass         bool
	Owner          string
	Credentials
}

// NoteRequest asks for a connection note written from a profile.
type NoteRequest struct {
	ProfileText string
	Length      int
	Tone        string
	Context     string
	Bypass      bool
	Credentials
}

// Response is what every request produces. Text starts with "Error" when the
// request failed.
type Response struct {
	RequestID string
	Text      string
	FromCache bool
	ModeUsed  Mode
	// CachedNote is a note previously written for a similar profile.
	CachedNote *cache.NoteMatch
	// ResearchData is the gathered search context of a RAG profile.
	ResearchData map[string]any
}

// Failed reports whether the response carries error text.
func (r Response) Failed() bool {
	return cache.IsFailure(r.Text)
}

func (rt *Router) begin(kind string) (string, *zap.Logger) {
	id := uuid.NewString()
	return id, rt.log.With(zap.String("request_id", id), zap.String("request", kind))
}

func invalidMode(id string, err error) Response {
	return Response{RequestID: id, Text: "Error: " + err.Error()}
}

// DeepResearch produces a report on req.Topic.
func (rt *Router) DeepResearch(ctx context.Context, req DeepResearchRequest) Response {
	id, log := rt.begin("deep_research")
	mode, err := ParseMode(req.Mode)
	if err != nil {
		log.Warn("rejected request", zap.Error(err))
		return invalidMode(id, err)
	}
	log = log.With(zap.Stringer("mode", mode))
	log.Info("deep research requested", zap.String("topic", req.Topic))

	resp := Response{RequestID: id, ModeUsed: mode}
	pipelineReq := research.Request{
		Topic:            req.Topic,
		Backend:          req.Backend,
		Credential:       req.APIKey,
		SearchCredential: req.SearchKey,
		Bypass:           req.Bypass,
	}

	switch mode {
	case ModeRAG:
		out := rt.pipeline.Run(ctx, pipelineReq)
		resp.Text, resp.FromCache = out.Report, out.FromCache

	case ModeTools:
		resp.Text = rt.runTools(ctx, log, cache.ActionDeepResearchTools,
			cache.Fields{"topic": req.Topic, "mode": string(mode)},
			researchTask(req.Topic), req.Owner, req.Credentials)

	case ModeHybrid:
		out := rt.pipeline.Run(ctx, pipelineReq)
		task := researchTask(req.Topic)
		if !cache.IsFailure(out.Report) {
			task = seeded(task, out.Report)
		} else {
			log.Warn("hybrid seed unavailable", zap.String("error", out.Report))
		}
		resp.Text = rt.runTools(ctx, log, cache.ActionDeepResearchTools,
			cache.Fields{"topic": req.Topic, "mode": string(mode)},
			task, req.Owner, req.Credentials)
	}

	log.Info("deep research finished", zap.Bool("from_cache", resp.FromCache), zap.Bool("failed", resp.Failed()))
	return resp
}

// runTools runs one agentic pass and records its output for audit. Records
// under the *_tools actions are never consulted by lookups.
func (rt *Router) runTools(ctx context.Context, log *zap.Logger, action cache.ActionType, input cache.Fields, task, owner string, creds Credentials) string {
	res := rt.agents.Run(ctx, agent.Request{
		Task:             agent.Task{Prompt: task},
		Backend:          creds.Backend,
		Credential:       creds.APIKey,
		SearchCredential: creds.SearchKey,
		Owner:            owner,
	})
	log.Info("tools pass finished",
		zap.Stringer("state", res.State),
		zap.Int("iterations", res.Iterations),
		zap.Int("tool_calls", len(res.Invocations)),
		zap.Bool("failed", res.Failed))

	if strings.TrimSpace(creds.APIKey) != "" {
		rt.record(ctx, log, cache.Entry{
			Action:      action,
			UserInput:   input,
			SearchData:  res.Invocations,
			ModelInput:  task,
			ModelOutput: res.Text,
			FinalOutput: res.Text,
		})
	}
	return res.Text
}

// Note writes a connection note from a profile.
func (rt *Router) Note(ctx context.Context, req NoteRequest) Response {
	id, log := rt.begin("note")
	resp := Response{RequestID: id}

	if req.Length <= 0 {
		req.Length = content.DefaultNoteLength
	}
	if strings.TrimSpace(req.Tone) == "" {
		req.Tone = content.DefaultNoteTone
	}
	input := cache.Fields{
		"profile_text": req.ProfileText,
		"length":       req.Length,
		"tone":         req.Tone,
		"context":      req.Context,
	}

	if !req.Bypass {
		if note, ok := rt.cache.LookupFuzzy(ctx, cache.ActionGenerateNote, input); ok {
			resp.Text, resp.FromCache = note, true
			return resp
		}
	}
	if strings.TrimSpace(req.APIKey) == "" {
		resp.Text = content.MissingCredential(req.Backend)
		return resp
	}

	c := rt.gen.Generate(ctx, content.TemplateNote, content.Inputs{
		ProfileText: req.ProfileText,
		Length:      req.Length,
		Tone:        req.Tone,
		Context:     req.Context,
	}, req.Backend, req.APIKey)
	rt.record(ctx, log, cache.Entry{
		Action:      cache.ActionGenerateNote,
		UserInput:   input,
		ModelInput:  c.Prompt,
		ModelOutput: c.Text,
		FinalOutput: c.Text,
	})
	resp.Text = c.Text
	return resp
}

func (rt *Router) record(ctx context.Context, log *zap.Logger, e cache.Entry) {
	if _, err := rt.cache.Record(ctx, e); err != nil {
		log.Warn("interaction not recorded", zap.String("action", string(e.Action)), zap.Error(err))
	}
}
