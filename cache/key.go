package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Fields is a keyed-data map such as {"topic": ...} or {"query", "backend"}.
type Fields map[string]any

// String returns the field as text, or "" when absent or not a string.
func (f Fields) String(key string) string {
	s, _ := f[key].(string)
	return s
}

// Canonical serializes v so that structurally equal values produce identical
// text: object keys sorted, numbers kept verbatim, no HTML escaping.
// nil and empty maps canonicalize to "".
func Canonical(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	if s, ok := v.(string); ok && s == "" {
		return "", nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("canonicalize: %w", err)
	}

	// Round trip through a generic value so structs and maps with the same
	// content converge on sorted map-key order.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return "", fmt.Errorf("canonicalize: %w", err)
	}
	if m, ok := generic.(map[string]any); ok && len(m) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(generic); err != nil {
		return "", fmt.Errorf("canonicalize: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// mustCanonical is Canonical for values already known to be JSON-safe.
func mustCanonical(v any) string {
	s, err := Canonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return s
}

// decodeFields parses a stored canonical user_input back into Fields.
func decodeFields(raw string) Fields {
	if raw == "" {
		return nil
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var f Fields
	if err := dec.Decode(&f); err != nil {
		return nil
	}
	return f
}
