package cache

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultThreshold is the similarity at or above which fuzzy lookups hit.
const DefaultThreshold = 0.8

// Similarity returns the Ratcliff/Obershelp ratio of a and b in [0, 1],
// computed over characters. Two empty strings are identical.
func Similarity(a, b string) float64 {
	m := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return m.Ratio()
}
