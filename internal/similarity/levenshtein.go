package similarity

import (
	"context"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/nvandessel/tracelink/internal/constants"
	"github.com/nvandessel/tracelink/internal/textnorm"
)

// Levenshtein judges words similar when 1 - distance/maxLen reaches Threshold.
// Words shorter than MinLength only match exactly ("log" never matches "dog").
type Levenshtein struct {
	Threshold float64
	MinLength int
}

// Name implements Measure.
func (Levenshtein) Name() string { return constants.MeasureLevenshtein }

// POSPairs implements Measure.
func (Levenshtein) POSPairs() []POSPair { return nil }

// Compare implements Measure.
func (m Levenshtein) Compare(_ context.Context, a, b Term) (Verdict, error) {
	fa, fb := textnorm.Fold(a.Text), textnorm.Fold(b.Text)
	if fa == fb {
		return Verdict{Score: 1, Similar: true, Known: true}, nil
	}

	la, lb := utf8.RuneCountInString(fa), utf8.RuneCountInString(fb)
	if la == 0 || lb == 0 {
		return Verdict{Known: true}, nil
	}

	longest := max(la, lb)
	score := 1 - float64(levenshtein.ComputeDistance(fa, fb))/float64(longest)
	v := threshold(score, m.Threshold)
	if min(la, lb) < m.MinLength {
		v.Similar = false
	}
	return v, nil
}
