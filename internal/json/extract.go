// Package json pulls JSON values out of free-form model replies.
//
// Models wrap structured answers in prose or markdown fences. The helpers here
// strip the fences, try the whole reply, then fall back to the outermost
// bracket pair of the requested kind.
package json

import (
	"encoding/json"
	"fmt"
	"strings"
)

// shape selects which JSON container a caller expects.
type shape struct {
	open, close string
}

var (
	objectShape = shape{open: "{", close: "}"}
	arrayShape  = shape{open: "[", close: "]"}
)

// extract finds the JSON portion of a reply for the given container shape.
// Bracket matching is positional, so braces inside strings before the real
// value can defeat it; the full-reply attempt covers the common case.
func extract(response string, want shape) (string, error) {
	response = stripMarkdownCodeBlocks(response)

	if strings.HasPrefix(response, want.open) && json.Valid([]byte(response)) {
		return response, nil
	}

	start := strings.Index(response, want.open)
	if start != -1 {
		end := strings.LastIndex(response, want.close)
		if end > start {
			candidate := response[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, nil
			}
		}
	}

	preview := response
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	return "", fmt.Errorf("failed to extract valid JSON from response: %q", preview)
}

// stripMarkdownCodeBlocks removes ```json / ``` fences around a reply.
func stripMarkdownCodeBlocks(response string) string {
	trimmed := strings.TrimSpace(response)

	if strings.HasPrefix(trimmed, "```json") {
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "```json"))
	} else if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
	}

	if strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, "```"))
	}

	return trimmed
}

// ExtractJSONFromResponse extracts a JSON object from a reply and decodes it into T.
func ExtractJSONFromResponse[T any](response string) (T, error) {
	var result T
	raw, err := extract(response, objectShape)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return result, nil
}

// ExtractList extracts a JSON array from a reply and decodes it into []T.
func ExtractList[T any](response string) ([]T, error) {
	raw, err := extract(response, arrayShape)
	if err != nil {
		return nil, err
	}
	var result []T
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON list: %w", err)
	}
	return result, nil
}

// ExtractJSON returns the raw JSON object text embedded in a reply.
func ExtractJSON(response string) (string, error) {
	return extract(response, objectShape)
}
