package cache

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/richinex/dossier/internal/logging"
)

// Scan limits.
const (
	DefaultExactScanLimit = 50
	DefaultFuzzyScanLimit = 20
)

// Options configures a Manager. Zero values take the defaults.
type Options struct {
	Threshold      float64
	ExactScanLimit int
	FuzzyScanLimit int
	Logger         *zap.Logger
}

// Manager composes a Store with exact and fuzzy lookup and the failure filter.
type Manager struct {
	store     Store
	threshold float64
	exactScan int
	fuzzyScan int
	log       *zap.Logger
	inflight  singleflight.Group
}

// NewManager wraps store.
func NewManager(store Store, opts Options) *Manager {
	m := &Manager{
		store:     store,
		threshold: opts.Threshold,
		exactScan: opts.ExactScanLimit,
		fuzzyScan: opts.FuzzyScanLimit,
		log:       logging.OrNop(opts.Logger).Named("cache"),
	}
	if m.threshold <= 0 || m.threshold > 1 {
		m.threshold = DefaultThreshold
	}
	if m.exactScan <= 0 || m.exactScan > DefaultExactScanLimit {
		m.exactScan = DefaultExactScanLimit
	}
	if m.fuzzyScan <= 0 {
		m.fuzzyScan = DefaultFuzzyScanLimit
	}
	return m
}

// Threshold returns the fuzzy-match threshold in effect.
func (m *Manager) Threshold() float64 {
	return m.threshold
}

// LookupExact returns the newest servable output of action whose stored
// search data canonicalizes identically to keyed. Failure-flagged records
// are skipped and the scan continues.
func (m *Manager) LookupExact(ctx context.Context, action ActionType, keyed any) (string, bool) {
	key, err := Canonical(keyed)
	if err != nil || key == "" {
		return "", false
	}

	records, err := m.store.Recent(ctx, action, m.exactScan)
	if err != nil {
		m.log.Warn("cache scan failed", zap.String("action", string(action)), zap.Error(err))
		return "", false
	}

	for _, rec := range records {
		if rec.SearchData != key {
			continue
		}
		if !rec.Servable() {
			m.log.Info("skipping cached error",
				zap.String("action", string(action)),
				zap.Int64("record", rec.ID),
				zap.String("error_preview", preview(rec.FinalOutput, 50)))
			continue
		}
		m.log.Info("cache hit (exact)", zap.String("action", string(action)), zap.Int64("record", rec.ID))
		return rec.FinalOutput, true
	}

	m.log.Debug("cache miss (exact)", zap.String("action", string(action)))
	return "", false
}

// comparisonField names the text compared by fuzzy lookup for an action.
// Actions without one never fuzzy-match.
func comparisonField(action ActionType) string {
	switch action {
	case ActionDeepResearch, ActionDeepResearchPlanning:
		return "topic"
	case ActionGenerateNote:
		return "profile_text"
	default:
		return ""
	}
}

// noteContextKeys must be equal, not merely similar, for note matches.
var noteContextKeys = []string{"tone", "length", "context"}

// LookupFuzzy returns the newest servable output of action whose comparison
// field is at least Threshold similar to input's.
func (m *Manager) LookupFuzzy(ctx context.Context, action ActionType, input Fields) (string, bool) {
	field := comparisonField(action)
	if field == "" {
		return "", false
	}
	target := input.String(field)
	if target == "" {
		return "", false
	}

	records, err := m.store.Recent(ctx, action, m.fuzzyScan)
	if err != nil {
		m.log.Warn("cache scan failed", zap.String("action", string(action)), zap.Error(err))
		return "", false
	}

	for _, rec := range records {
		candidate := decodeFields(rec.UserInput)
		text := candidate.String(field)
		if text == "" {
			continue
		}

		score := Similarity(target, text)
		if score < m.threshold {
			continue
		}
		if action == ActionGenerateNote && !sameValues(input, candidate, noteContextKeys) {
			continue
		}
		if !rec.Servable() {
			m.log.Info("skipping cached error",
				zap.String("action", string(action)),
				zap.Int64("record", rec.ID),
				zap.String("error_preview", preview(rec.FinalOutput, 50)))
			continue
		}

		m.log.Info("cache hit (fuzzy)",
			zap.String("action", string(action)),
			zap.Int64("record", rec.ID),
			zap.Float64("similarity", score))
		return rec.FinalOutput, true
	}

	m.log.Debug("cache miss (fuzzy)", zap.String("action", string(action)))
	return "", false
}

func sameValues(a, b Fields, keys []string) bool {
	for _, k := range keys {
		if mustCanonical(a[k]) != mustCanonical(b[k]) {
			return false
		}
	}
	return true
}

// Entry is an interaction to append. Map-like fields are canonicalized.
type Entry struct {
	Action      ActionType
	UserInput   any
	SearchData  any
	ModelInput  string
	ModelOutput string
	FinalOutput string
}

// Record appends an interaction to the store.
func (m *Manager) Record(ctx context.Context, e Entry) (int64, error) {
	userInput, err := Canonical(e.UserInput)
	if err != nil {
		return 0, fmt.Errorf("record %s user input: %w", e.Action, err)
	}
	searchData, err := Canonical(e.SearchData)
	if err != nil {
		return 0, fmt.Errorf("record %s search data: %w", e.Action, err)
	}

	id, err := m.store.Insert(ctx, Record{
		Action:      e.Action,
		UserInput:   userInput,
		SearchData:  searchData,
		ModelInput:  e.ModelInput,
		ModelOutput: e.ModelOutput,
		FinalOutput: e.FinalOutput,
	})
	if err != nil {
		m.log.Error("record failed", zap.String("action", string(e.Action)), zap.Error(err))
		return 0, fmt.Errorf("record %s: %w", e.Action, err)
	}

	m.log.Debug("recorded interaction",
		zap.String("action", string(e.Action)),
		zap.Int64("record", id),
		zap.Bool("failure", IsFailure(e.FinalOutput)))
	return id, nil
}

// NoteMatch is a previously generated note for a similar profile.
type NoteMatch struct {
	Note    string
	Tone    string
	Length  int
	Context string
}

// RecentNote finds the newest servable note generated for a profile similar
// to profileText.
func (m *Manager) RecentNote(ctx context.Context, profileText string) (NoteMatch, bool) {
	if profileText == "" {
		return NoteMatch{}, false
	}

	records, err := m.store.Recent(ctx, ActionGenerateNote, m.fuzzyScan)
	if err != nil {
		m.log.Warn("cache scan failed", zap.String("action", string(ActionGenerateNote)), zap.Error(err))
		return NoteMatch{}, false
	}

	for _, rec := range records {
		if !rec.Servable() {
			continue
		}
		input := decodeFields(rec.UserInput)
		text := input.String("profile_text")
		if text == "" || Similarity(profileText, text) < m.threshold {
			continue
		}

		match := NoteMatch{Note: rec.FinalOutput, Tone: input.String("tone"), Context: input.String("context")}
		if match.Tone == "" {
			match.Tone = "professional"
		}
		match.Length = 300
		if n, err := strconv.Atoi(fmt.Sprint(input["length"])); err == nil {
			match.Length = n
		}
		m.log.Info("found cached note", zap.Int64("record", rec.ID))
		return match, true
	}
	return NoteMatch{}, false
}

// Collapse runs fn at most once at a time per (action, keyed) pair. Callers
// arriving while a computation is in flight wait for and share its result;
// shared reports whether this caller received another caller's result.
func (m *Manager) Collapse(action ActionType, keyed any, fn func() string) (result string, shared bool) {
	key := string(action) + "|" + mustCanonical(keyed)
	v, _, shared := m.inflight.Do(key, func() (any, error) {
		return fn(), nil
	})
	if shared {
		m.log.Debug("collapsed concurrent request", zap.String("action", string(action)))
	}
	return v.(string), shared
}

// Clear removes every cached interaction.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	m.log.Info("cache cleared")
	return nil
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
