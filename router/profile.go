package router

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/richinex/dossier/cache"
	"github.com/richinex/dossier/content"
	"github.com/richinex/dossier/model"
	"github.com/richinex/dossier/search"
)

// Profile researches a person and writes a professional profile.
func (rt *Router) Profile(ctx context.Context, req ProfileRequest) Response {
	id, log := rt.begin("profile")
	mode, err := ParseMode(req.Mode)
	if err != nil {
		log.Warn("rejected request", zap.Error(err))
		return invalidMode(id, err)
	}
	log = log.With(zap.Stringer("mode", mode), zap.String("name", req.Name))
	log.Info("profile requested")

	var resp Response
	switch mode {
	case ModeRAG:
		resp = rt.ragProfile(ctx, log, req)

	case ModeTools:
		resp.Text = rt.runTools(ctx, log, cache.ActionGenerateProfileTools,
			profileInput(req, mode), profileTask(req.Name, req.Company, req.AdditionalInfo),
			req.Owner, req.Credentials)

	case ModeHybrid:
		rag := rt.ragProfile(ctx, log, req)
		task := profileTask(req.Name, req.Company, req.AdditionalInfo)
		if !rag.Failed() {
			task = seeded(task, rag.Text)
		}
		resp.Text = rt.runTools(ctx, log, cache.ActionGenerateProfileTools,
			profileInput(req, mode), task, req.Owner, req.Credentials)
		resp.ResearchData = rag.ResearchData
	}

	resp.RequestID, resp.ModeUsed = id, mode
	if !resp.FromCache {
		rt.saveProfile(ctx, log, req, resp)
	}
	log.Info("profile finished", zap.Bool("from_cache", resp.FromCache), zap.Bool("failed", resp.Failed()))
	return resp
}

func profileInput(req ProfileRequest, mode Mode) cache.Fields {
	return cache.Fields{
		"name":            req.Name,
		"company":         req.Company,
		"additional_info": req.AdditionalInfo,
		"mode":            string(mode),
	}
}

// completeKey identifies a whole profile request, including both backends.
func completeKey(req ProfileRequest) cache.Fields {
	return cache.Fields{
		"name":            req.Name,
		"company":         req.Company,
		"additional_info": req.AdditionalInfo,
		"search_provider": search.BackendFor(req.SearchKey).String(),
		"model_provider":  req.Backend.String(),
	}
}

// ragProfile checks the whole-request cache, gathers search context, checks
// the profile cache on that context, and only then generates.
func (rt *Router) ragProfile(ctx context.Context, log *zap.Logger, req ProfileRequest) Response {
	var resp Response
	key := completeKey(req)

	if !req.Bypass {
		if text, ok := rt.cache.LookupExact(ctx, cache.ActionCompleteResearch, key); ok {
			resp.Text, resp.FromCache = text, true
			rt.attachNote(ctx, &resp)
			return resp
		}
	}
	if strings.TrimSpace(req.APIKey) == "" {
		resp.Text = content.MissingCredential(req.Backend)
		return resp
	}

	resp.ResearchData = rt.gather(ctx, req)

	if !req.Bypass {
		if text, ok := rt.cache.LookupExact(ctx, cache.ActionGenerateProfile, resp.ResearchData); ok {
			resp.Text, resp.FromCache = text, true
			rt.attachNote(ctx, &resp)
		}
	}

	if !resp.FromCache {
		c := rt.gen.Generate(ctx, content.TemplateProfile, content.Inputs{ResearchData: resp.ResearchData}, req.Backend, req.APIKey)
		rt.record(ctx, log, cache.Entry{
			Action:      cache.ActionGenerateProfile,
			UserInput:   cache.Fields{"name": req.Name, "company": req.Company},
			SearchData:  resp.ResearchData,
			ModelInput:  c.Prompt,
			ModelOutput: c.Text,
			FinalOutput: c.Text,
		})
		resp.Text = c.Text
	}

	if !req.Bypass {
		rt.record(ctx, log, cache.Entry{
			Action:      cache.ActionCompleteResearch,
			UserInput:   key,
			SearchData:  key,
			FinalOutput: resp.Text,
		})
	}
	return resp
}

// gather runs the single profile query through the cached search path.
func (rt *Router) gather(ctx context.Context, req ProfileRequest) map[string]any {
	query := strings.Join(strings.Fields(req.Name+" "+req.Company+" linkedin profile professional bio"), " ")
	if info := strings.TrimSpace(req.AdditionalInfo); info != "" {
		query += " " + info
	}

	results := rt.pipeline.CachedSearch(ctx, query, req.SearchKey, ProfileSearchResults)
	if results == nil {
		results = []model.SearchResult{}
	}
	return map[string]any{
		"query":           query,
		"general_results": results,
		"source":          search.BackendFor(req.SearchKey).DisplayName(),
	}
}

func (rt *Router) attachNote(ctx context.Context, resp *Response) {
	if note, ok := rt.cache.RecentNote(ctx, resp.Text); ok {
		resp.CachedNote = &note
	}
}

func (rt *Router) saveProfile(ctx context.Context, log *zap.Logger, req ProfileRequest, resp Response) {
	if rt.history == nil || req.Owner == "" || resp.Failed() {
		return
	}
	_, err := rt.history.SaveProfile(ctx, model.SavedProfile{
		Owner:          req.Owner,
		Name:           req.Name,
		Company:        req.Company,
		AdditionalInfo: req.AdditionalInfo,
		ProfileText:    resp.Text,
		SearchBackend:  search.BackendFor(req.SearchKey).String(),
		ModelBackend:   req.Backend.String(),
		FromCache:      resp.FromCache,
	})
	if err != nil {
		log.Warn("profile not saved to history", zap.Error(err))
	}
}
