package similarity

import (
	"context"

	"github.com/nvandessel/tracelink/internal/constants"
	"github.com/nvandessel/tracelink/internal/textnorm"
)

// Jaccard computes |a ∩ b| / |a ∪ b|. Returns 0.0 if both sets are empty.
func Jaccard(a, b map[string]bool) float64 {
	intersection := 0
	for s := range a {
		if b[s] {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0.0
	}

	return float64(intersection) / float64(union)
}

// TokenOverlap compares identifiers by the Jaccard index of their parts,
// so "UserDatabase" and "user_db" are judged on {user, database} vs {user, db}.
type TokenOverlap struct {
	Threshold float64
}

// Name implements Measure.
func (TokenOverlap) Name() string { return constants.MeasureJaccard }

// POSPairs implements Measure.
func (TokenOverlap) POSPairs() []POSPair { return nil }

// Compare implements Measure. Terms without any word characters are unknown.
func (m TokenOverlap) Compare(_ context.Context, a, b Term) (Verdict, error) {
	setA := toSet(textnorm.SplitIdentifier(a.Text))
	setB := toSet(textnorm.SplitIdentifier(b.Text))
	if len(setA) == 0 || len(setB) == 0 {
		return unknown(), nil
	}
	return threshold(Jaccard(setA, setB), m.Threshold), nil
}

func toSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
