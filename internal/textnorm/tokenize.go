package textnorm

import (
	"strings"
	"unicode"
)

// Tokenize splits a string into word tokens.
// Word characters are letters, digits, and underscores.
func Tokenize(s string) []string {
	words := make([]string, 0)
	var current strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			current.WriteRune(r)
		} else if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}
	return words
}

// SplitIdentifier breaks an identifier or phrase into lower-case parts.
// Spaces, punctuation and underscores separate parts, and so do camelCase humps:
// "HTTPServerLogic" -> [http server logic], "user_db" -> [user db].
func SplitIdentifier(s string) []string {
	var parts []string
	for _, tok := range Tokenize(s) {
		for _, piece := range strings.Split(tok, "_") {
			parts = append(parts, splitCamel(piece)...)
		}
	}
	for i, p := range parts {
		parts[i] = Fold(p)
	}
	return parts
}

func splitCamel(s string) []string {
	runes := []rune(s)
	if len(runes) == 0 {
		return nil
	}
	var parts []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := false
		switch {
		case unicode.IsLower(prev) && unicode.IsUpper(cur):
			boundary = true
		case unicode.IsUpper(prev) && unicode.IsUpper(cur) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			boundary = true
		case unicode.IsDigit(prev) != unicode.IsDigit(cur):
			boundary = true
		}
		if boundary {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	return append(parts, string(runes[start:]))
}
