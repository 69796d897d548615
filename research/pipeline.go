// Package research runs the fixed deep-research pipeline: plan search
// queries, search each one, merge results by URL, scrape the pages and
// synthesize a report. Planning, every search and the report are recorded in
// the interaction log so repeated topics and queries are served from cache.
package research

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/richinex/dossier/cache"
	"github.com/richinex/dossier/content"
	"github.com/richinex/dossier/internal/logging"
	"github.com/richinex/dossier/llm"
	"github.com/richinex/dossier/model"
	"github.com/richinex/dossier/search"
)

// Defaults applied when Options leaves a budget at zero.
const (
	DefaultMaxResults  = search.DefaultMaxResults
	DefaultScrapeChars = search.DefaultScrapeChars
)

// Mode names recorded on sessions built by this package.
const ModeRAG = "rag"

// Gateway is the slice of search.Gateway the pipeline needs.
type Gateway interface {
	Search(ctx context.Context, query, credential string, maxResults int) ([]model.SearchResult, search.Backend)
	Scrape(ctx context.Context, url string, maxChars int) model.ScrapedPage
}

// Options wires a Pipeline.
type Options struct {
	Cache       *cache.Manager
	Generator   *content.Generator
	Gateway     Gateway
	MaxResults  int
	ScrapeChars int
	Logger      *zap.Logger
}

// Pipeline executes deep research. It is safe for concurrent use; each run
// owns its own Session.
type Pipeline struct {
	cache       *cache.Manager
	gen         *content.Generator
	gateway     Gateway
	maxResults  int
	scrapeChars int
	log         *zap.Logger
}

// New creates a pipeline.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		cache:       opts.Cache,
		gen:         opts.Generator,
		gateway:     opts.Gateway,
		maxResults:  opts.MaxResults,
		scrapeChars: opts.ScrapeChars,
		log:         logging.OrNop(opts.Logger).Named("research"),
	}
	if p.maxResults <= 0 {
		p.maxResults = DefaultMaxResults
	}
	if p.scrapeChars <= 0 {
		p.scrapeChars = DefaultScrapeChars
	}
	return p
}

// Request is one deep-research request.
type Request struct {
	Topic            string
	Backend          llm.ProviderType
	Credential       string
	SearchCredential string
	// Bypass skips the topic-level cache check. Per-query search caching
	// still applies.
	Bypass bool
}

// Outcome is the pipeline result. Session is nil when the report came from
// cache or from a concurrent identical run.
type Outcome struct {
	Report    string
	FromCache bool
	Shared    bool
	Session   *Session
}

// Run executes the pipeline for req. It never returns an error; failures
// surface as report text starting with "Error".
func (p *Pipeline) Run(ctx context.Context, req Request) Outcome {
	topic := strings.TrimSpace(req.Topic)
	topicKey := cache.Fields{"topic": topic}
	log := p.log.With(zap.String("topic", topic))

	if !req.Bypass {
		if report, ok := p.cache.LookupFuzzy(ctx, cache.ActionDeepResearch, topicKey); ok {
			log.Info("deep research served from cache")
			return Outcome{Report: report, FromCache: true}
		}
	}

	if strings.TrimSpace(req.Credential) == "" {
		return Outcome{Report: content.MissingCredential(req.Backend)}
	}

	var session *Session
	report, shared := p.cache.Collapse(cache.ActionDeepResearch, topicKey, func() string {
		session = p.execute(ctx, log, topic, req)
		return session.Report
	})
	if shared {
		return Outcome{Report: report, Shared: true}
	}
	return Outcome{Report: report, Session: session}
}

func (p *Pipeline) execute(ctx context.Context, log *zap.Logger, topic string, req Request) *Session {
	start := time.Now()
	session := newSession(topic, ModeRAG)
	topicKey := cache.Fields{"topic": topic}

	plan := p.gen.Plan(ctx, topic, req.Backend, req.Credential)
	session.Queries = plan.Queries
	p.record(ctx, cache.Entry{
		Action:      cache.ActionDeepResearchPlanning,
		UserInput:   topicKey,
		ModelInput:  plan.Prompt,
		ModelOutput: plan.Raw,
		FinalOutput: mustJSON(plan.Queries),
	})
	log.Info("planned queries", zap.Strings("queries", plan.Queries), zap.Bool("fallback", plan.Fallback))

	for _, query := range plan.Queries {
		session.Add(p.CachedSearch(ctx, query, req.SearchCredential, p.maxResults))
	}

	for _, r := range session.Results() {
		if err := ctx.Err(); err != nil {
			log.Warn("scraping interrupted", zap.Error(err))
			break
		}
		page := p.gateway.Scrape(ctx, r.URL, p.scrapeChars)
		body := page.Content
		if !page.Success || strings.TrimSpace(body) == "" {
			body = ContentUnavailable
		}
		session.Sources = append(session.Sources, Source{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Snippet,
			Content: body,
		})
	}

	researchContext, err := json.MarshalIndent(session.Sources, "", "  ")
	if err != nil {
		researchContext = []byte("[]")
	}
	completion := p.gen.Generate(ctx, content.TemplateReport, content.Inputs{
		Topic:           topic,
		ResearchContext: string(researchContext),
	}, req.Backend, req.Credential)
	session.Report = completion.Text

	p.record(ctx, cache.Entry{
		Action:      cache.ActionDeepResearch,
		UserInput:   topicKey,
		SearchData:  session.Sources,
		ModelInput:  completion.Prompt,
		ModelOutput: completion.Text,
		FinalOutput: completion.Text,
	})

	log.Info("deep research completed",
		zap.Int("queries", len(session.Queries)),
		zap.Int("sources", len(session.Sources)),
		zap.Bool("failure", cache.IsFailure(session.Report)),
		zap.Duration("elapsed", time.Since(start)))
	return session
}

// CachedSearch serves query from the web_search log or, on a miss, from the
// gateway. Only non-empty result sets are recorded. maxResults <= 0 uses the
// pipeline default.
func (p *Pipeline) CachedSearch(ctx context.Context, query, credential string, maxResults int) []model.SearchResult {
	if maxResults <= 0 {
		maxResults = p.maxResults
	}
	key := SearchKey(query, search.BackendFor(credential))
	log := p.log.With(zap.String("query", query))

	if cached, ok := p.cache.LookupExact(ctx, cache.ActionWebSearch, key); ok {
		var results []model.SearchResult
		if err := json.Unmarshal([]byte(cached), &results); err == nil {
			log.Debug("search served from cache", zap.Int("results", len(results)))
			return truncate(results, maxResults)
		}
		log.Warn("discarding undecodable cached search")
	}

	results, backend := p.gateway.Search(ctx, query, credential, maxResults)
	if len(results) == 0 {
		log.Info("search returned nothing", zap.Stringer("backend", backend))
		return nil
	}

	p.record(ctx, cache.Entry{
		Action:      cache.ActionWebSearch,
		UserInput:   cache.Fields{"query": query},
		SearchData:  key,
		FinalOutput: mustJSON(results),
	})
	return results
}

func truncate(results []model.SearchResult, n int) []model.SearchResult {
	if len(results) > n {
		return results[:n]
	}
	return results
}

// SearchKey is the exact-match key of a cached web search.
func SearchKey(query string, backend search.Backend) cache.Fields {
	return cache.Fields{"query": query, "backend": backend.String()}
}

func (p *Pipeline) record(ctx context.Context, e cache.Entry) {
	if _, err := p.cache.Record(ctx, e); err != nil {
		p.log.Warn("interaction not recorded", zap.String("action", string(e.Action)), zap.Error(err))
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
