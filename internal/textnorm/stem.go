package textnorm

import (
	"strings"

	porterstemmer "github.com/reiver/go-porterstemmer"
)

// Stem reduces a word to its Porter stem after folding.
// Multi-word input is stemmed word by word and rejoined with single spaces.
func Stem(word string) string {
	parts := Tokenize(Fold(word))
	for i, p := range parts {
		parts[i] = porterstemmer.StemString(p)
	}
	return strings.Join(parts, " ")
}
