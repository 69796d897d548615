package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/richinex/dossier/cache"
)

// runStoreContract exercises the behaviour every cache.Store must share.
func runStoreContract(t *testing.T, store cache.Store) {
	t.Helper()
	ctx := context.Background()

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		_, err := store.Insert(ctx, cache.Record{
			Timestamp:   base.Add(time.Duration(i) * time.Second),
			Action:      cache.ActionWebSearch,
			SearchData:  fmt.Sprintf(`{"query":"q%d"}`, i),
			FinalOutput: fmt.Sprintf("result %d", i),
		})
		if err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	if _, err := store.Insert(ctx, cache.Record{
		Action:      cache.ActionDeepResearch,
		UserInput:   `{"topic":"other"}`,
		ModelInput:  "prompt",
		ModelOutput: "raw",
		FinalOutput: "report",
	}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	recent, err := store.Recent(ctx, cache.ActionWebSearch, 3)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recent))
	}
	for i, want := range []string{"result 4", "result 3", "result 2"} {
		if recent[i].FinalOutput != want {
			t.Errorf("record %d: expected %q, got %q", i, want, recent[i].FinalOutput)
		}
		if recent[i].Action != cache.ActionWebSearch {
			t.Errorf("record %d: unexpected action %q", i, recent[i].Action)
		}
	}
	if recent[0].SearchData != `{"query":"q4"}` {
		t.Errorf("search data not preserved verbatim: %q", recent[0].SearchData)
	}
	if recent[0].ID == 0 {
		t.Error("expected a non-zero record ID")
	}

	research, err := store.Recent(ctx, cache.ActionDeepResearch, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(research) != 1 {
		t.Fatalf("expected 1 research record, got %d", len(research))
	}
	got := research[0]
	if got.UserInput != `{"topic":"other"}` || got.ModelInput != "prompt" || got.ModelOutput != "raw" || got.SearchData != "" {
		t.Errorf("fields not round-tripped: %+v", got)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	after, err := store.Recent(ctx, cache.ActionWebSearch, 10)
	if err != nil {
		t.Fatalf("Recent after clear failed: %v", err)
	}
	if len(after) != 0 {
		t.Errorf("expected empty store after clear, got %d records", len(after))
	}
}

func TestMemoryStoreContract(t *testing.T) {
	runStoreContract(t, cache.NewMemoryStore())
}
