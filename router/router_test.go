package router

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinex/dossier/agent"
	"github.com/richinex/dossier/cache"
	"github.com/richinex/dossier/content"
	"github.com/richinex/dossier/llm"
	"github.com/richinex/dossier/model"
	"github.com/richinex/dossier/research"
	"github.com/richinex/dossier/search"
)

// backend answers by system prompt so one stub serves every template.
type backend struct {
	mu         sync.Mutex
	profileErr error
	chats      []string
	toolTasks  []string
}

func (b *backend) Name() string  { return "stub" }
func (b *backend) Model() string { return "stub-1" }

func (b *backend) Chat(_ context.Context, messages []llm.ChatMessage) (llm.LLMResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	system, prompt := messages[0].Content, messages[len(messages)-1].Content
	b.chats = append(b.chats, prompt)

	switch {
	case strings.Contains(system, "professional research assistant"):
		if b.profileErr != nil {
			return llm.LLMResponse{}, b.profileErr
		}
		return llm.LLMResponse{Content: "# Ada Lovelace\nMathematician."}, nil
	case strings.Contains(system, "networking assistant"):
		return llm.LLMResponse{Content: "Hi Ada, I enjoyed reading about your work."}, nil
	case strings.Contains(prompt, "search queries"):
		return llm.LLMResponse{Content: `["q1", "q2"]`}, nil
	default:
		return llm.LLMResponse{Content: "# RAG report"}, nil
	}
}

func (b *backend) ChatWithTools(_ context.Context, messages []llm.ChatMessage, _ []llm.ToolDefinition) (llm.LLMResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.toolTasks = append(b.toolTasks, messages[1].Content)
	return llm.LLMResponse{Content: "tools answer"}, nil
}

func (b *backend) chatCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.chats)
}

type gateway struct {
	mu      sync.Mutex
	queries []string
}

func (g *gateway) Search(_ context.Context, query, credential string, _ int) ([]model.SearchResult, search.Backend) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.queries = append(g.queries, query)
	return []model.SearchResult{{Title: "About Ada", URL: "https://ada.example", Snippet: "Countess of Lovelace"}}, search.BackendFor(credential)
}

func (g *gateway) Scrape(_ context.Context, url string, _ int) model.ScrapedPage {
	return model.ScrapedPage{URL: url, Content: "page", Success: true}
}

type history struct {
	mu    sync.Mutex
	saved []model.SavedProfile
}

func (h *history) SaveProfile(_ context.Context, p model.SavedProfile) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.saved = append(h.saved, p)
	return int64(len(h.saved)), nil
}

func (h *history) SearchProfiles(context.Context, string, string, int) ([]model.SavedProfile, error) {
	return nil, nil
}

func (h *history) RecentProfiles(context.Context, string, int) ([]model.SavedProfile, error) {
	return nil, nil
}

type harness struct {
	router  *Router
	store   *cache.MemoryStore
	backend *backend
	gateway *gateway
	history *history
}

func newHarness() harness {
	b, gw, hist := &backend{}, &gateway{}, &history{}
	store := cache.NewMemoryStore()
	manager := cache.NewManager(store, cache.Options{})
	pool := llm.NewPool(llm.PoolOptions{Build: func(llm.ProviderType, string) (llm.Provider, error) {
		return b, nil
	}})
	gen := content.NewGenerator(pool, content.Options{})

	r := New(Options{
		Cache:     manager,
		Generator: gen,
		Pipeline:  research.New(research.Options{Cache: manager, Generator: gen, Gateway: gw}),
		Agents:    agent.NewRunner(agent.RunnerOptions{Pool: pool, Gateway: gw, History: hist}),
		History:   hist,
	})
	return harness{router: r, store: store, backend: b, gateway: gw, history: hist}
}

func (h harness) count(t *testing.T, action cache.ActionType) int {
	t.Helper()
	recs, err := h.store.Recent(context.Background(), action, 0)
	require.NoError(t, err)
	return len(recs)
}

var creds = Credentials{Backend: llm.ProviderOpenAI, APIKey: "sk-test"}

func TestParseMode(t *testing.T) {
	cases := []struct {
		in   string
		want Mode
		ok   bool
	}{
		{"", ModeRAG, true},
		{"rag", ModeRAG, true},
		{"TOOLS", ModeTools, true},
		{" Hybrid ", ModeHybrid, true},
		{"fast", "", false},
	}
	for _, tc := range cases {
		got, err := ParseMode(tc.in)
		if !tc.ok {
			var modeErr *InvalidModeError
			require.ErrorAs(t, err, &modeErr)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestInvalidModeIsPreconditionText(t *testing.T) {
	h := newHarness()

	resp := h.router.DeepResearch(context.Background(), DeepResearchRequest{Topic: "x", Mode: "fast", Credentials: creds})
	assert.Equal(t, `Error: invalid mode "fast"; expected rag, tools, or hybrid.`, resp.Text)
	assert.True(t, resp.Failed())
	assert.NotEmpty(t, resp.RequestID)

	resp = h.router.Profile(context.Background(), ProfileRequest{Name: "Ada", Mode: "deep", Credentials: creds})
	assert.True(t, resp.Failed())
	assert.Zero(t, h.backend.chatCount())
	assert.Empty(t, h.gateway.queries)
}

func TestDeepResearchRAGThenCached(t *testing.T) {
	h := newHarness()
	req := DeepResearchRequest{Topic: "history of computing", Credentials: creds}

	first := h.router.DeepResearch(context.Background(), req)
	assert.Equal(t, "# RAG report", first.Text)
	assert.Equal(t, ModeRAG, first.ModeUsed)
	assert.False(t, first.FromCache)

	second := h.router.DeepResearch(context.Background(), req)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Text, second.Text)
	assert.NotEqual(t, first.RequestID, second.RequestID)
}

func TestDeepResearchToolsSkipsPipeline(t *testing.T) {
	h := newHarness()

	resp := h.router.DeepResearch(context.Background(), DeepResearchRequest{Topic: "fusion power", Mode: "tools", Credentials: creds})
	assert.Equal(t, "tools answer", resp.Text)
	assert.Equal(t, ModeTools, resp.ModeUsed)
	assert.Zero(t, h.count(t, cache.ActionWebSearch))
	assert.Zero(t, h.count(t, cache.ActionDeepResearch))
	assert.Equal(t, 1, h.count(t, cache.ActionDeepResearchTools))
	require.Len(t, h.backend.toolTasks, 1)
	assert.Contains(t, h.backend.toolTasks[0], "fusion power")
	assert.NotContains(t, h.backend.toolTasks[0], seedHeading)
}

func TestDeepResearchHybridSeedsToolsPass(t *testing.T) {
	h := newHarness()

	resp := h.router.DeepResearch(context.Background(), DeepResearchRequest{Topic: "fusion power", Mode: "hybrid", Credentials: creds})
	assert.Equal(t, "tools answer", resp.Text)
	assert.Equal(t, ModeHybrid, resp.ModeUsed)
	assert.Equal(t, 1, h.count(t, cache.ActionDeepResearch))
	assert.Equal(t, 1, h.count(t, cache.ActionDeepResearchTools))

	require.Len(t, h.backend.toolTasks, 1)
	assert.Contains(t, h.backend.toolTasks[0], seedHeading+"\n# RAG report")
}

func TestProfileRAGRecordsAndCaches(t *testing.T) {
	h := newHarness()
	req := ProfileRequest{Name: "Ada Lovelace", Company: "Analytical Engines", Owner: "u1", Credentials: creds}

	first := h.router.Profile(context.Background(), req)
	assert.Equal(t, "# Ada Lovelace\nMathematician.", first.Text)
	assert.False(t, first.FromCache)
	assert.Equal(t, []string{"Ada Lovelace Analytical Engines linkedin profile professional bio"}, h.gateway.queries)
	assert.Equal(t, "DuckDuckGo", first.ResearchData["source"])
	assert.Equal(t, 1, h.count(t, cache.ActionGenerateProfile))
	assert.Equal(t, 1, h.count(t, cache.ActionCompleteResearch))
	assert.Equal(t, 1, h.count(t, cache.ActionWebSearch))

	require.Len(t, h.history.saved, 1)
	assert.Equal(t, "u1", h.history.saved[0].Owner)
	assert.Equal(t, "openai", h.history.saved[0].ModelBackend)

	calls := h.backend.chatCount()
	second := h.router.Profile(context.Background(), req)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, calls, h.backend.chatCount())
	assert.Len(t, h.gateway.queries, 1)
	assert.Len(t, h.history.saved, 1)
}

func TestProfileServedFromProfileCacheForOtherBackend(t *testing.T) {
	h := newHarness()
	req := ProfileRequest{Name: "Ada Lovelace", Credentials: creds}
	h.router.Profile(context.Background(), req)

	req.Backend = llm.ProviderAnthropic
	resp := h.router.Profile(context.Background(), req)
	assert.True(t, resp.FromCache)
	assert.Equal(t, 1, h.count(t, cache.ActionGenerateProfile))
	assert.Equal(t, 2, h.count(t, cache.ActionCompleteResearch))
}

func TestProfileCacheHitAttachesNote(t *testing.T) {
	h := newHarness()
	req := ProfileRequest{Name: "Ada Lovelace", Credentials: creds}

	profile := h.router.Profile(context.Background(), req)
	note := h.router.Note(context.Background(), NoteRequest{ProfileText: profile.Text, Tone: "friendly", Credentials: creds})
	require.False(t, note.Failed())

	again := h.router.Profile(context.Background(), req)
	require.True(t, again.FromCache)
	require.NotNil(t, again.CachedNote)
	assert.Equal(t, note.Text, again.CachedNote.Note)
	assert.Equal(t, "friendly", again.CachedNote.Tone)
	assert.Equal(t, content.DefaultNoteLength, again.CachedNote.Length)
}

func TestProfileFailureIsNotServed(t *testing.T) {
	h := newHarness()
	h.backend.profileErr = errors.New("quota exceeded")
	req := ProfileRequest{Name: "Ada Lovelace", Owner: "u1", Credentials: creds}

	first := h.router.Profile(context.Background(), req)
	assert.True(t, first.Failed())
	assert.Contains(t, first.Text, "quota exceeded")
	assert.Empty(t, h.history.saved)

	h.backend.mu.Lock()
	h.backend.profileErr = nil
	h.backend.mu.Unlock()

	second := h.router.Profile(context.Background(), req)
	assert.False(t, second.FromCache)
	assert.False(t, second.Failed())
	assert.Len(t, h.history.saved, 1)
}

func TestProfileMissingCredential(t *testing.T) {
	h := newHarness()

	resp := h.router.Profile(context.Background(), ProfileRequest{Name: "Ada", Credentials: Credentials{Backend: llm.ProviderGrok}})
	assert.Equal(t, "Error: Grok API key is required.", resp.Text)
	assert.Empty(t, h.gateway.queries)
	assert.Zero(t, h.count(t, cache.ActionCompleteResearch))
}

func TestProfileToolsAndHybrid(t *testing.T) {
	h := newHarness()

	tools := h.router.Profile(context.Background(), ProfileRequest{Name: "Ada Lovelace", Mode: "tools", Credentials: creds})
	assert.Equal(t, "tools answer", tools.Text)
	assert.Empty(t, h.gateway.queries)

	hybrid := h.router.Profile(context.Background(), ProfileRequest{Name: "Ada Lovelace", Mode: "hybrid", Credentials: creds})
	assert.Equal(t, "tools answer", hybrid.Text)
	assert.NotNil(t, hybrid.ResearchData)
	require.Len(t, h.backend.toolTasks, 2)
	assert.Contains(t, h.backend.toolTasks[1], seedHeading+"\n# Ada Lovelace")
	assert.Equal(t, 2, h.count(t, cache.ActionGenerateProfileTools))
}

func TestNoteFuzzyCache(t *testing.T) {
	h := newHarness()
	profile := "Ada Lovelace is a mathematician who wrote the first published algorithm."

	first := h.router.Note(context.Background(), NoteRequest{ProfileText: profile, Credentials: creds})
	assert.False(t, first.FromCache)
	assert.Equal(t, 1, h.count(t, cache.ActionGenerateNote))

	similar := h.router.Note(context.Background(), NoteRequest{ProfileText: profile + " ", Length: 300, Tone: "professional", Credentials: creds})
	assert.True(t, similar.FromCache)
	assert.Equal(t, first.Text, similar.Text)

	otherTone := h.router.Note(context.Background(), NoteRequest{ProfileText: profile, Tone: "casual", Credentials: creds})
	assert.False(t, otherTone.FromCache)
	assert.Equal(t, 2, h.count(t, cache.ActionGenerateNote))
}
