package similarity

import (
	"context"

	"github.com/nvandessel/tracelink/internal/constants"
	"github.com/nvandessel/tracelink/internal/textnorm"
)

// Equality judges words similar when they are equal under Unicode case folding.
type Equality struct{}

// Name implements Measure.
func (Equality) Name() string { return constants.MeasureEquality }

// POSPairs implements Measure.
func (Equality) POSPairs() []POSPair { return nil }

// Compare implements Measure.
func (Equality) Compare(_ context.Context, a, b Term) (Verdict, error) {
	if textnorm.EqualFold(a.Text, b.Text) {
		return Verdict{Score: 1, Similar: true, Known: true}, nil
	}
	return Verdict{Known: true}, nil
}
