package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func newTestManager(t *testing.T) (*Manager, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	return NewManager(store, Options{}), store
}

func TestExactRoundTrip(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	key := Fields{"query": "go generics", "backend": "duckduckgo"}
	_, err := m.Record(ctx, Entry{Action: ActionWebSearch, SearchData: key, FinalOutput: "R"})
	require.NoError(t, err)

	got, ok := m.LookupExact(ctx, ActionWebSearch, Fields{"backend": "duckduckgo", "query": "go generics"})
	require.True(t, ok)
	assert.Equal(t, "R", got)

	_, ok = m.LookupExact(ctx, ActionGenerateProfile, key)
	assert.False(t, ok, "lookups never cross action types")

	_, ok = m.LookupExact(ctx, ActionWebSearch, Fields{"query": "go generic", "backend": "duckduckgo"})
	assert.False(t, ok)
}

func TestExactStructAndMapKeysAgree(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	type searchKey struct {
		Query   string `json:"query"`
		Backend string `json:"backend"`
	}
	_, err := m.Record(ctx, Entry{Action: ActionWebSearch, SearchData: searchKey{"q", "serper"}, FinalOutput: "hit"})
	require.NoError(t, err)

	got, ok := m.LookupExact(ctx, ActionWebSearch, map[string]string{"backend": "serper", "query": "q"})
	require.True(t, ok)
	assert.Equal(t, "hit", got)
}

func TestExactSkipsFailuresAndKeepsScanning(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	key := Fields{"topic": "x"}

	_, _ = m.Record(ctx, Entry{Action: ActionCompleteResearch, SearchData: key, FinalOutput: "good old"})
	_, _ = m.Record(ctx, Entry{Action: ActionCompleteResearch, SearchData: key, FinalOutput: "Error: boom"})

	got, ok := m.LookupExact(ctx, ActionCompleteResearch, key)
	require.True(t, ok)
	assert.Equal(t, "good old", got)
}

func TestErrorExclusion(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, _ = m.Record(ctx, Entry{
		Action:      ActionDeepResearch,
		UserInput:   Fields{"topic": "quantum networking"},
		SearchData:  Fields{"topic": "quantum networking"},
		FinalOutput: "Error: boom",
	})

	_, ok := m.LookupExact(ctx, ActionDeepResearch, Fields{"topic": "quantum networking"})
	assert.False(t, ok)
	_, ok = m.LookupFuzzy(ctx, ActionDeepResearch, Fields{"topic": "quantum networking"})
	assert.False(t, ok)
}

func TestExactScanWindow(t *testing.T) {
	store := NewMemoryStore()
	m := NewManager(store, Options{ExactScanLimit: 3})
	ctx := context.Background()

	_, _ = m.Record(ctx, Entry{Action: ActionWebSearch, SearchData: Fields{"query": "old"}, FinalOutput: "old"})
	for i := 0; i < 3; i++ {
		_, _ = m.Record(ctx, Entry{Action: ActionWebSearch, SearchData: Fields{"query": "new", "i": i}, FinalOutput: "new"})
	}

	_, ok := m.LookupExact(ctx, ActionWebSearch, Fields{"query": "old"})
	assert.False(t, ok, "records older than the scan window are not consulted")
}

func TestFuzzyThresholdBoundary(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, _ = m.Record(ctx, Entry{Action: ActionDeepResearch, UserInput: Fields{"topic": "Tesla Motors"}, FinalOutput: "report"})

	got, ok := m.LookupFuzzy(ctx, ActionDeepResearch, Fields{"topic": "Tesla Motor"})
	require.True(t, ok)
	assert.Equal(t, "report", got)

	_, ok = m.LookupFuzzy(ctx, ActionDeepResearch, Fields{"topic": "Banana Farming"})
	assert.False(t, ok)
}

func TestFuzzyThresholdIsInclusive(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, _ = m.Record(ctx, Entry{Action: ActionDeepResearchPlanning, UserInput: Fields{"topic": "abcde"}, FinalOutput: "plan"})

	// 4 of 5 characters shared: ratio 2*4/10 = 0.8.
	_, ok := m.LookupFuzzy(ctx, ActionDeepResearchPlanning, Fields{"topic": "abcdx"})
	assert.True(t, ok)
	_, ok = m.LookupFuzzy(ctx, ActionDeepResearchPlanning, Fields{"topic": "abcxy"})
	assert.False(t, ok)
}

func TestFuzzyHonoursConfiguredThreshold(t *testing.T) {
	m := NewManager(NewMemoryStore(), Options{Threshold: 0.99})
	ctx := context.Background()
	_, _ = m.Record(ctx, Entry{Action: ActionDeepResearch, UserInput: Fields{"topic": "Tesla Motors"}, FinalOutput: "report"})

	_, ok := m.LookupFuzzy(ctx, ActionDeepResearch, Fields{"topic": "Tesla Motor"})
	assert.False(t, ok)
	assert.Equal(t, 0.99, m.Threshold())
}

func TestFuzzyUnsupportedAction(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	_, _ = m.Record(ctx, Entry{Action: ActionGenerateProfile, UserInput: Fields{"topic": "same"}, FinalOutput: "profile"})

	_, ok := m.LookupFuzzy(ctx, ActionGenerateProfile, Fields{"topic": "same"})
	assert.False(t, ok)
}

func TestNoteMatchingStrictness(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	stored := Fields{"profile_text": "Jane Doe is a staff engineer at Acme.", "tone": "professional", "length": 300, "context": ""}
	_, _ = m.Record(ctx, Entry{Action: ActionGenerateNote, UserInput: stored, FinalOutput: "Hi Jane"})

	same := Fields{"profile_text": "Jane Doe is a staff engineer at Acme", "tone": "professional", "length": 300, "context": ""}
	got, ok := m.LookupFuzzy(ctx, ActionGenerateNote, same)
	require.True(t, ok)
	assert.Equal(t, "Hi Jane", got)

	for name, mutate := range map[string]func(Fields){
		"tone":    func(f Fields) { f["tone"] = "casual" },
		"length":  func(f Fields) { f["length"] = 150 },
		"context": func(f Fields) { f["context"] = "met at GopherCon" },
	} {
		t.Run(name, func(t *testing.T) {
			req := Fields{}
			for k, v := range same {
				req[k] = v
			}
			mutate(req)
			_, ok := m.LookupFuzzy(ctx, ActionGenerateNote, req)
			assert.False(t, ok)
		})
	}
}

func TestRecentNote(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, _ = m.Record(ctx, Entry{
		Action:      ActionGenerateNote,
		UserInput:   Fields{"profile_text": "Grace Hopper, rear admiral, COBOL pioneer", "tone": "warm", "length": 200, "context": "conference"},
		FinalOutput: "Dear Grace",
	})
	_, _ = m.Record(ctx, Entry{
		Action:      ActionGenerateNote,
		UserInput:   Fields{"profile_text": "Grace Hopper, rear admiral, COBOL pioneer", "tone": "warm", "length": 200},
		FinalOutput: "Error: Gemini API key is required.",
	})

	match, ok := m.RecentNote(ctx, "Grace Hopper, rear admiral, COBOL pioneer.")
	require.True(t, ok)
	assert.Equal(t, NoteMatch{Note: "Dear Grace", Tone: "warm", Length: 200, Context: "conference"}, match)

	_, ok = m.RecentNote(ctx, "Completely unrelated biography text")
	assert.False(t, ok)
}

func TestIsFailure(t *testing.T) {
	assert.True(t, IsFailure(""))
	assert.True(t, IsFailure("Error: boom"))
	assert.True(t, IsFailure("Error generating report: timeout"))
	assert.False(t, IsFailure("Errors in distributed systems"))
	assert.False(t, IsFailure("A fine report"))
}

type failingStore struct{ MemoryStore }

func (f *failingStore) Recent(context.Context, ActionType, int) ([]Record, error) {
	return nil, errors.New("disk on fire")
}

func (f *failingStore) Insert(context.Context, Record) (int64, error) {
	return 0, errors.New("disk on fire")
}

func TestStoreErrorsDegradeToMiss(t *testing.T) {
	m := NewManager(&failingStore{}, Options{})
	ctx := context.Background()

	_, ok := m.LookupExact(ctx, ActionWebSearch, Fields{"query": "q"})
	assert.False(t, ok)
	_, ok = m.LookupFuzzy(ctx, ActionDeepResearch, Fields{"topic": "t"})
	assert.False(t, ok)

	_, err := m.Record(ctx, Entry{Action: ActionWebSearch, FinalOutput: "x"})
	assert.ErrorContains(t, err, "disk on fire")
}

func TestClear(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	_, _ = m.Record(ctx, Entry{Action: ActionWebSearch, SearchData: Fields{"query": "q"}, FinalOutput: "r"})

	require.NoError(t, m.Clear(ctx))
	_, ok := m.LookupExact(ctx, ActionWebSearch, Fields{"query": "q"})
	assert.False(t, ok)
}

func TestCollapseSharesInFlightWork(t *testing.T) {
	defer goleak.VerifyNone(t)

	m, _ := newTestManager(t)
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	work := func() string {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return "report"
	}

	var wg sync.WaitGroup
	results := make([]string, 8)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = m.Collapse(ActionDeepResearch, Fields{"topic": "t"}, work)
	}()
	<-started

	for i := 1; i < len(results); i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = m.Collapse(ActionDeepResearch, Fields{"topic": "t"}, work)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, "report", r)
	}
}

func TestCollapseDistinctKeysRunIndependently(t *testing.T) {
	defer goleak.VerifyNone(t)

	m, _ := newTestManager(t)
	a, sharedA := m.Collapse(ActionDeepResearch, Fields{"topic": "a"}, func() string { return "A" })
	b, sharedB := m.Collapse(ActionDeepResearch, Fields{"topic": "b"}, func() string { return "B" })
	assert.Equal(t, "A", a)
	assert.Equal(t, "B", b)
	assert.False(t, sharedA)
	assert.False(t, sharedB)
}
