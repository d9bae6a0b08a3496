package similarity

import (
	"context"
	"fmt"

	"github.com/nvandessel/tracelink/internal/constants"
	"github.com/nvandessel/tracelink/internal/textnorm"
	"github.com/nvandessel/tracelink/internal/wordsim"
)

// WordSim looks up stemmed word pairs in a co-occurrence table such as SEWordSim.
// A pair missing from the table is unknown.
type WordSim struct {
	table     wordsim.Table
	threshold float64
}

// NewWordSim creates the measure over an open table. The table stays owned by the caller.
func NewWordSim(table wordsim.Table, threshold float64) *WordSim {
	return &WordSim{table: table, threshold: threshold}
}

// Name implements Measure.
func (*WordSim) Name() string { return constants.MeasureWordSim }

// POSPairs implements Measure.
func (*WordSim) POSPairs() []POSPair { return nil }

// Compare implements Measure. Lookup failures are reported as ErrUnavailable.
func (m *WordSim) Compare(ctx context.Context, a, b Term) (Verdict, error) {
	sa, sb := textnorm.Stem(a.Text), textnorm.Stem(b.Text)
	if sa == "" || sb == "" {
		return unknown(), nil
	}

	score, ok, err := wordsim.Lookup(ctx, m.table, sa, sb)
	if err != nil {
		return unknown(), fmt.Errorf("%w: wordsim lookup %s/%s: %v", ErrUnavailable, sa, sb, err)
	}
	if !ok {
		return unknown(), nil
	}
	return threshold(score, m.threshold), nil
}
