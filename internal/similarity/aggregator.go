package similarity

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/nvandessel/tracelink/internal/logging"
)

// Aggregator ORs an ordered list of measures: two words are similar as soon as one
// applicable measure says so. A measure that fails is logged and counted as
// "not similar" for that comparison only.
//
// An Aggregator is safe for concurrent use once built.
type Aggregator struct {
	measures  []Measure
	failures  map[string]*atomic.Int64
	closers   []io.Closer
	skipped   map[string]string
	logger    *slog.Logger
	decisions *logging.DecisionLogger
}

// NewAggregator creates an aggregator over measures in priority order.
func NewAggregator(logger *slog.Logger, measures ...Measure) *Aggregator {
	a := &Aggregator{
		measures: measures,
		failures: make(map[string]*atomic.Int64, len(measures)),
		skipped:  make(map[string]string),
		logger:   logging.OrDiscard(logger),
	}
	for _, m := range measures {
		a.failures[m.Name()] = new(atomic.Int64)
	}
	return a
}

// SetDecisionLogger routes measure failures to a decision trace.
func (a *Aggregator) SetDecisionLogger(decisions *logging.DecisionLogger) {
	a.decisions = decisions
}

// Measures returns the active measure names in priority order.
func (a *Aggregator) Measures() []string {
	names := make([]string, 0, len(a.measures))
	for _, m := range a.measures {
		names = append(names, m.Name())
	}
	return names
}

// Skipped returns the configured measures that were left out, with the reason.
func (a *Aggregator) Skipped() map[string]string {
	out := make(map[string]string, len(a.skipped))
	for k, v := range a.skipped {
		out[k] = v
	}
	return out
}

// Failures returns how many comparisons each measure failed so far.
func (a *Aggregator) Failures() map[string]int64 {
	out := make(map[string]int64, len(a.failures))
	for name, n := range a.failures {
		out[name] = n.Load()
	}
	return out
}

// AreSimilar compares two untagged words.
func (a *Aggregator) AreSimilar(ctx context.Context, x, y string) bool {
	return a.AreTermsSimilar(ctx, Plain(x), Plain(y))
}

// AreTermsSimilar reports whether any applicable measure judges x and y similar.
// Measures run in priority order and evaluation stops at the first match.
func (a *Aggregator) AreTermsSimilar(ctx context.Context, x, y Term) bool {
	for _, m := range a.measures {
		if !Applies(m, x, y) {
			continue
		}
		v, err := m.Compare(ctx, x, y)
		if err != nil {
			a.recordFailure(ctx, m, x, y, err)
			continue
		}
		a.trace(ctx, m, x, y, v)
		if v.Known && v.Similar {
			return true
		}
	}
	return false
}

// Score returns the highest known score any applicable measure gives x and y.
// Scores from different measures are not calibrated against each other; the result
// ranks candidates for one word, nothing more. ok is false when no measure knew the pair.
func (a *Aggregator) Score(ctx context.Context, x, y string) (score float64, ok bool) {
	tx, ty := Plain(x), Plain(y)
	for _, m := range a.measures {
		if !Applies(m, tx, ty) {
			continue
		}
		v, err := m.Compare(ctx, tx, ty)
		if err != nil {
			a.recordFailure(ctx, m, tx, ty, err)
			continue
		}
		if v.Known && (!ok || v.Score > score) {
			score, ok = v.Score, true
		}
	}
	return score, ok
}

// MeasureVerdict is one line of an Explanation.
type MeasureVerdict struct {
	Measure    string  `json:"measure"`
	Applicable bool    `json:"applicable"`
	Verdict    Verdict `json:"verdict"`
	Error      string  `json:"error,omitempty"`
}

// Explanation is the full per-measure breakdown behind a similarity decision.
type Explanation struct {
	Similar  bool             `json:"similar"`
	Score    float64          `json:"score"`
	Known    bool             `json:"known"`
	Measures []MeasureVerdict `json:"measures"`
}

// Explain runs every measure on x and y, without stopping at the first match.
// Similar agrees with AreTermsSimilar.
func (a *Aggregator) Explain(ctx context.Context, x, y Term) Explanation {
	var exp Explanation
	for _, m := range a.measures {
		mv := MeasureVerdict{Measure: m.Name(), Applicable: Applies(m, x, y)}
		if mv.Applicable {
			v, err := m.Compare(ctx, x, y)
			if err != nil {
				a.recordFailure(ctx, m, x, y, err)
				mv.Error = err.Error()
			} else {
				mv.Verdict = v
				if v.Known {
					exp.Similar = exp.Similar || v.Similar
					if !exp.Known || v.Score > exp.Score {
						exp.Score, exp.Known = v.Score, true
					}
				}
			}
		}
		exp.Measures = append(exp.Measures, mv)
	}
	return exp
}

// Close releases the resources Build opened for the measures.
func (a *Aggregator) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

func (a *Aggregator) recordFailure(ctx context.Context, m Measure, x, y Term, err error) {
	if n, ok := a.failures[m.Name()]; ok {
		n.Add(1)
	}
	a.logger.WarnContext(ctx, "similarity measure failed",
		"measure", m.Name(), "a", x.Text, "b", y.Text, "error", err)
	a.decisions.Log(map[string]any{
		"event":   "measure_failed",
		"measure": m.Name(),
		"a":       x.Text,
		"b":       y.Text,
		"error":   err.Error(),
	})
}

func (a *Aggregator) trace(ctx context.Context, m Measure, x, y Term, v Verdict) {
	a.logger.Log(ctx, logging.LevelTrace, "similarity verdict",
		"measure", m.Name(), "a", x.Text, "b", y.Text,
		"score", v.Score, "similar", v.Similar, "known", v.Known)
}
