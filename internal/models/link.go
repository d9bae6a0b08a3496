package models

import (
	"math"
	"sort"
)

// Evidence is one proposal for a link: who proposed it and with what probability.
type Evidence struct {
	Claimant    Claimant `json:"claimant"`
	Probability float64  `json:"probability"`
}

// Link connects a recommended instance to a model instance.
type Link struct {
	Recommended *RecommendedInstance `json:"-"`
	Instance    *ModelInstance       `json:"-"`

	// Evidence holds every proposal for this pair, in arrival order.
	Evidence []Evidence `json:"evidence"`

	// Confidence is the noisy-OR of all evidence probabilities.
	Confidence float64 `json:"confidence"`
}

// NoisyOR combines independent probabilities as 1 - prod(1 - p).
// The product is taken in a canonical order so the result does not depend on arrival order.
func NoisyOR(evidence []Evidence) float64 {
	if len(evidence) == 0 {
		return 0
	}
	ps := make([]float64, 0, len(evidence))
	for _, e := range evidence {
		ps = append(ps, math.Min(1, math.Max(0, e.Probability)))
	}
	sort.Float64s(ps)
	miss := 1.0
	for _, p := range ps {
		miss *= 1 - p
	}
	return math.Min(1, math.Max(0, 1-miss))
}
