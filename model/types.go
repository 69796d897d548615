// Package model provides domain types shared across packages.
package model

import "time"

// SearchResult is one web search hit. URL is the identity used for
// deduplication; results without one are dropped before scraping.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// ScrapedPage is the outcome of fetching and cleaning one page.
type ScrapedPage struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// HistoryEntry condenses a previously researched profile for tool output.
type HistoryEntry struct {
	Name        string `json:"name"`
	Affiliation string `json:"affiliation,omitempty"`
	Excerpt     string `json:"excerpt"`
}

// ToolCall records one tool invocation made during an agentic run.
type ToolCall struct {
	Name       string `json:"name"`
	Iteration  int    `json:"iteration"`
	InputSize  int    `json:"input_size"`
	OutputSize int    `json:"output_size"`
	DurationMs uint64 `json:"duration_ms"`
	Success    bool   `json:"success"`
}

// SavedProfile is a generated profile kept in an owner's research history.
type SavedProfile struct {
	ID             int64     `json:"id"`
	Owner          string    `json:"owner"`
	Name           string    `json:"name"`
	Company        string    `json:"company,omitempty"`
	AdditionalInfo string    `json:"additional_info,omitempty"`
	ProfileText    string    `json:"profile_text"`
	SearchBackend  string    `json:"search_backend"`
	ModelBackend   string    `json:"model_backend"`
	FromCache      bool      `json:"from_cache"`
	CreatedAt      time.Time `json:"created_at"`
}
