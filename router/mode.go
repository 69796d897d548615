package router

import (
	"fmt"
	"strings"
)

// Mode selects how a request is researched.
type Mode string

const (
	// ModeRAG gathers search results first and hands them to the generator.
	ModeRAG Mode = "rag"
	// ModeTools lets the backend drive search and scraping through tools.
	ModeTools Mode = "tools"
	// ModeHybrid runs RAG, then a tools pass seeded with the RAG output.
	ModeHybrid Mode = "hybrid"
)

func (m Mode) String() string { return string(m) }

// InvalidModeError reports an unrecognised mode value.
type InvalidModeError struct {
	Value string
}

func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid mode %q; expected rag, tools, or hybrid.", e.Value)
}

// ParseMode parses a mode case-insensitively. The empty string is ModeRAG.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeRAG:
		return ModeRAG, nil
	case ModeTools:
		return ModeTools, nil
	case ModeHybrid:
		return ModeHybrid, nil
	default:
		return "", &InvalidModeError{Value: s}
	}
}
