// Package similarity decides whether two words name the same thing. Independent
// measures each give a verdict and the Aggregator ORs them together, favoring recall.
package similarity

import (
	"context"
	"errors"

	"github.com/nvandessel/tracelink/internal/constants"
	"github.com/nvandessel/tracelink/internal/models"
)

// ErrUnavailable marks a measure whose backing store could not answer.
// The aggregator treats it as "not similar" for that measure only.
var ErrUnavailable = errors.New("similarity measure unavailable")

// Term is a word with an optional part-of-speech tag.
type Term struct {
	Text string
	POS  models.POS
}

// Plain returns a term without a POS tag.
func Plain(text string) Term {
	return Term{Text: text}
}

// POSPair is an unordered pair of tags a measure is valid for.
type POSPair struct {
	A, B models.POS
}

// Verdict is one measure's answer for a pair of terms.
type Verdict struct {
	// Score is the raw measure value, comparable only within one measure.
	Score float64 `json:"score"`

	// Similar is the thresholded decision.
	Similar bool `json:"similar"`

	// Known is false when the measure has no information about the pair,
	// e.g. a word missing from a lookup table.
	Known bool `json:"known"`
}

// Measure is one way of deciding similarity.
type Measure interface {
	// Name identifies the measure in configuration and logs.
	Name() string

	// POSPairs lists the tag pairs the measure applies to. Nil means any.
	POSPairs() []POSPair

	// Compare scores a against b. Implementations must be safe for concurrent use.
	Compare(ctx context.Context, a, b Term) (Verdict, error)
}

// Applies reports whether m is valid for the tags of a and b.
// An untagged term does not exclude a measure.
func Applies(m Measure, a, b Term) bool {
	pairs := m.POSPairs()
	if len(pairs) == 0 {
		return true
	}
	if a.POS == models.POSUnknown || b.POS == models.POSUnknown {
		return true
	}
	for _, p := range pairs {
		if (p.A == a.POS && p.B == b.POS) || (p.A == b.POS && p.B == a.POS) {
			return true
		}
	}
	return false
}

func unknown() Verdict { return Verdict{} }

func threshold(score, min float64) Verdict {
	return Verdict{Score: score, Similar: score+constants.ScoreEpsilon >= min, Known: true}
}
