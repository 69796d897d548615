// Package cache implements the interaction log that doubles as a multi-tier
// cache: exact lookups on canonical keys, fuzzy lookups on one text field per
// action, and a failure filter that keeps error text from being served.
package cache

import (
	"strings"
	"time"
)

// ActionType tags what produced a record. Lookups never cross action types.
type ActionType string

const (
	ActionGenerateProfile      ActionType = "generate_profile"
	ActionCompleteResearch     ActionType = "complete_research"
	ActionGenerateNote         ActionType = "generate_note"
	ActionDeepResearch         ActionType = "deep_research"
	ActionDeepResearchPlanning ActionType = "deep_research_planning"
	ActionWebSearch            ActionType = "web_search"
	ActionDeepResearchTools    ActionType = "deep_research_tools"
	ActionGenerateProfileTools ActionType = "generate_profile_tools"
)

// Record is one immutable interaction. UserInput and SearchData hold
// canonical JSON (or "" when absent).
type Record struct {
	ID          int64      `json:"id"`
	Timestamp   time.Time  `json:"timestamp"`
	Action      ActionType `json:"action_type"`
	UserInput   string     `json:"user_input,omitempty"`
	SearchData  string     `json:"search_data,omitempty"`
	ModelInput  string     `json:"model_input,omitempty"`
	ModelOutput string     `json:"model_output,omitempty"`
	FinalOutput string     `json:"final_output,omitempty"`
}

// Servable reports whether the record may satisfy a lookup.
func (r Record) Servable() bool {
	return !IsFailure(r.FinalOutput)
}

// IsFailure reports whether text is empty or lexically an error message.
func IsFailure(text string) bool {
	return text == "" || strings.HasPrefix(text, "Error:") || strings.HasPrefix(text, "Error ")
}
