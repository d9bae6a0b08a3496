// Package connection links recommended instances to model instances. Every proposal
// for a link is kept as evidence; a link's confidence is the noisy-OR of its evidence.
package connection

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/nvandessel/tracelink/internal/logging"
	"github.com/nvandessel/tracelink/internal/models"
)

// ErrInvalidLink is returned by AddLink for nil endpoints or out-of-range probabilities.
var ErrInvalidLink = errors.New("invalid link")

type key struct {
	recommended *models.RecommendedInstance
	instance    string
}

type linkEntry struct {
	recommended *models.RecommendedInstance
	instance    *models.ModelInstance
	evidence    []models.Evidence
}

// State accumulates links. It is safe for concurrent use.
type State struct {
	mu    sync.Mutex
	links map[key]*linkEntry

	logger    *slog.Logger
	decisions *logging.DecisionLogger
}

// NewState creates an empty link state.
func NewState() *State {
	return &State{links: make(map[key]*linkEntry), logger: logging.Discard()}
}

// SetLogger sets the operational logger and the decision trace.
func (s *State) SetLogger(logger *slog.Logger, decisions *logging.DecisionLogger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logging.OrDiscard(logger)
	s.decisions = decisions
}

// AddLink records one proposal that ri corresponds to mi. Repeated proposals for the
// same pair add evidence; nothing is overwritten.
func (s *State) AddLink(ri *models.RecommendedInstance, mi *models.ModelInstance, claimant models.Claimant, probability float64) error {
	if ri == nil || mi == nil {
		return fmt.Errorf("%w: nil endpoint", ErrInvalidLink)
	}
	if probability < 0 || probability > 1 {
		return fmt.Errorf("%w: probability %v outside [0, 1]", ErrInvalidLink, probability)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{recommended: ri, instance: mi.ID}
	e, ok := s.links[k]
	if !ok {
		e = &linkEntry{recommended: ri, instance: mi}
		s.links[k] = e
	}
	e.evidence = append(e.evidence, models.Evidence{Claimant: claimant, Probability: probability})
	confidence := models.NoisyOR(e.evidence)

	s.decisions.Log(map[string]any{
		"event":       "link_evidence",
		"recommended": ri.ID(),
		"name":        ri.Name(),
		"instance":    mi.ID,
		"claimant":    string(claimant),
		"probability": probability,
		"confidence":  confidence,
		"evidence":    len(e.evidence),
	})
	s.logger.Debug("link evidence added",
		"name", ri.Name(), "instance", mi.ID, "claimant", claimant, "confidence", confidence)
	return nil
}

// Len returns the number of distinct links.
func (s *State) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.links)
}

// Links returns a snapshot of every link, ordered by model instance id and then by
// recommended instance name, type and id.
func (s *State) Links() []models.Link {
	return s.collect(func(*linkEntry) bool { return true })
}

// LinksFor returns the links of one model instance.
func (s *State) LinksFor(mi *models.ModelInstance) []models.Link {
	return s.collect(func(e *linkEntry) bool { return e.instance.ID == mi.ID })
}

// LinksForRecommended returns the links of one recommended instance.
func (s *State) LinksForRecommended(ri *models.RecommendedInstance) []models.Link {
	return s.collect(func(e *linkEntry) bool { return e.recommended == ri })
}

func (s *State) collect(keep func(*linkEntry) bool) []models.Link {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Link
	for _, e := range s.links {
		if !keep(e) {
			continue
		}
		evidence := append([]models.Evidence(nil), e.evidence...)
		out = append(out, models.Link{
			Recommended: e.recommended,
			Instance:    e.instance,
			Evidence:    evidence,
			Confidence:  models.NoisyOR(evidence),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Instance.ID != b.Instance.ID {
			return a.Instance.ID < b.Instance.ID
		}
		if an, bn := a.Recommended.Name(), b.Recommended.Name(); an != bn {
			return an < bn
		}
		if at, bt := a.Recommended.Type(), b.Recommended.Type(); at != bt {
			return at < bt
		}
		return a.Recommended.ID() < b.Recommended.ID()
	})
	return out
}
