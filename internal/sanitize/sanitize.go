// Package sanitize cleans text that reaches tracelink from MCP clients: mention
// references, model instance names and identifiers. Everything it returns is safe
// to log and to echo back in tool results.
package sanitize

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxTextLength is the maximum length, in runes, of a reference or name.
const MaxTextLength = 200

// MaxIDLength is the maximum length of an identifier.
const MaxIDLength = 128

// Text sanitizes a mention reference or instance name. It drops control and format
// characters, collapses whitespace runs to one space, trims and truncates to
// MaxTextLength runes.
func Text(input string) string {
	if input == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(input))
	space := false
	for _, r := range input {
		switch {
		case unicode.IsSpace(r):
			space = true
			continue
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r), r == utf8.RuneError:
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}

	return truncateRunes(b.String(), MaxTextLength)
}

// ID sanitizes an identifier, keeping only [a-zA-Z0-9-_.:/] and enforcing
// MaxIDLength.
func ID(input string) string {
	if input == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '-' || r == '_' || r == '.' || r == ':' || r == '/' {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if len(s) > MaxIDLength {
		s = s[:MaxIDLength]
	}
	return s
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n]))
}
