// Package wordsim provides read access to pairwise word-similarity tables such as
// SEWordSim: rows of (stem, stem, similarity) mined from software-engineering text.
//
// Tables are keyed by Porter stems; callers stem before looking up. A pair missing
// from the table is unknown, not dissimilar.
package wordsim

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed table.
var ErrClosed = errors.New("wordsim: table closed")

// Pair is one row of a similarity table.
type Pair struct {
	First      string
	Second     string
	Similarity float64
}

// Table is a read-only similarity table. Implementations are safe for concurrent reads.
type Table interface {
	// Similarity returns the stored score for (first, second) in that key order.
	// ok is false when the pair is not in the table.
	Similarity(ctx context.Context, first, second string) (score float64, ok bool, err error)

	// Contains reports whether stem appears as a first term.
	Contains(ctx context.Context, stem string) (bool, error)

	// Words returns the distinct first terms in ascending order.
	Words(ctx context.Context) ([]string, error)

	Close() error
}

// PairSource streams every row of a table.
type PairSource interface {
	Pairs(ctx context.Context, fn func(Pair) error) error
}

// Lookup checks (first, second) and then (second, first).
// SEWordSim stores most pairs in one direction only.
func Lookup(ctx context.Context, t Table, first, second string) (float64, bool, error) {
	score, ok, err := t.Similarity(ctx, first, second)
	if err != nil || ok {
		return score, ok, err
	}
	if first == second {
		return 0, false, nil
	}
	return t.Similarity(ctx, second, first)
}
