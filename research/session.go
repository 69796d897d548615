package research

import (
	"strings"

	"github.com/richinex/dossier/model"
)

// ContentUnavailable replaces the body of a page that could not be scraped.
const ContentUnavailable = "(Content not available)"

// Source is one deduplicated search result together with its page text.
type Source struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Content string `json:"content"`
}

// Session is the working state of one pipeline run. It is owned by that run
// and never shared.
type Session struct {
	Topic   string
	Mode    string
	Queries []string

	results map[string]model.SearchResult
	order   []string

	Sources []Source
	Report  string
}

func newSession(topic, mode string) *Session {
	return &Session{Topic: topic, Mode: mode, results: make(map[string]model.SearchResult)}
}

// Add merges results keyed by URL. Results without a URL are dropped; a
// repeated URL keeps its first position and takes the latest value.
func (s *Session) Add(results []model.SearchResult) {
	for _, r := range results {
		url := strings.TrimSpace(r.URL)
		if url == "" {
			continue
		}
		if _, seen := s.results[url]; !seen {
			s.order = append(s.order, url)
		}
		r.URL = url
		s.results[url] = r
	}
}

// Results returns the deduplicated results in first-seen order.
func (s *Session) Results() []model.SearchResult {
	out := make([]model.SearchResult, 0, len(s.order))
	for _, url := range s.order {
		out = append(out, s.results[url])
	}
	return out
}
