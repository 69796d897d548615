package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/richinex/dossier/model"
)

// HistoryProvider looks up an owner's previously generated profiles.
type HistoryProvider interface {
	SearchProfiles(ctx context.Context, owner, query string, limit int) ([]model.SavedProfile, error)
	RecentProfiles(ctx context.Context, owner string, limit int) ([]model.SavedProfile, error)
}

// ErrHistoryUnavailable is reported when no history collaborator is wired.
var ErrHistoryUnavailable = errors.New("history unavailable: no research history is configured")

const (
	defaultHistoryLimit = 5
	excerptChars        = 200
)

// GetHistoryTool searches or lists the owner's past research.
type GetHistoryTool struct {
	history HistoryProvider
	owner   string
}

// NewGetHistoryTool creates a get_history tool. history may be nil, in which
// case every call reports ErrHistoryUnavailable.
func NewGetHistoryTool(history HistoryProvider, owner string) *GetHistoryTool {
	return &GetHistoryTool{history: history, owner: owner}
}

// Metadata returns the tool metadata.
func (t *GetHistoryTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        NameGetHistory,
		Description: "Search and retrieve the user's past research profiles. Use this to find information the user has already researched.",
		Parameters: []ToolParameter{
			{Name: "query", ParamType: "string", Description: "Optional search query to filter history (e.g., person name, company, topic)."},
			{Name: "limit", ParamType: "integer", Description: "Maximum number of history items to return (default: 5)"},
		},
	}
}

// Execute runs the lookup.
func (t *GetHistoryTool) Execute(ctx context.Context, raw json.RawMessage) Result {
	if t.history == nil {
		return FailureResult(ErrHistoryUnavailable)
	}
	args, err := decodeArgs[GetHistoryArgs](NameGetHistory, raw)
	if err != nil {
		return FailureResult(err)
	}
	if args.Limit == 0 {
		args.Limit = defaultHistoryLimit
	}

	var profiles []model.SavedProfile
	if q := strings.TrimSpace(args.Query); q != "" {
		profiles, err = t.history.SearchProfiles(ctx, t.owner, q, args.Limit)
	} else {
		profiles, err = t.history.RecentProfiles(ctx, t.owner, args.Limit)
	}
	if err != nil {
		return FailureResult(fmt.Errorf("history lookup failed: %w", err))
	}
	if len(profiles) > args.Limit {
		profiles = profiles[:args.Limit]
	}

	return SuccessResult(FormatHistory(Condense(profiles)))
}

// Condense reduces profiles to name, affiliation and an opening excerpt.
func Condense(profiles []model.SavedProfile) []model.HistoryEntry {
	entries := make([]model.HistoryEntry, 0, len(profiles))
	for _, p := range profiles {
		entries = append(entries, model.HistoryEntry{
			Name:        p.Name,
			Affiliation: p.Company,
			Excerpt:     excerpt(p.ProfileText, excerptChars),
		})
	}
	return entries
}

// FormatHistory renders entries for the model.
func FormatHistory(entries []model.HistoryEntry) string {
	if len(entries) == 0 {
		return "No history found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d past research profile(s):\n", len(entries))
	for i, e := range entries {
		b.WriteString("\n")
		if e.Affiliation != "" {
			fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, e.Name, e.Affiliation)
		} else {
			fmt.Fprintf(&b, "%d. %s\n", i+1, e.Name)
		}
		fmt.Fprintf(&b, "   %s\n", e.Excerpt)
	}
	return b.String()
}

func excerpt(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
