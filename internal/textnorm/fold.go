// Package textnorm normalizes words and identifiers before they are compared:
// case folding, identifier splitting, stemming and stop-word filtering.
package textnorm

import (
	"strings"

	"golang.org/x/text/cases"
)

// Fold trims surrounding space and applies Unicode case folding.
// A Caser is stateful, so one is built per call.
func Fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// EqualFold reports whether a and b are equal after Fold.
func EqualFold(a, b string) bool {
	return Fold(a) == Fold(b)
}

// IsBlank reports whether s is empty or only whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
