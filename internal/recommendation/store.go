// Package recommendation keeps the deduplicated set of recommended instances that
// agents infer from the text. Proposals for the same entity are merged into one
// instance; proposals that only share a name but disagree on type stay separate.
package recommendation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/nvandessel/tracelink/internal/logging"
	"github.com/nvandessel/tracelink/internal/models"
	"github.com/nvandessel/tracelink/internal/textnorm"
)

// WordComparer decides whether two words are similar.
type WordComparer interface {
	AreSimilar(ctx context.Context, a, b string) bool
}

// Outcome describes what Add did with a submission.
type Outcome string

const (
	// OutcomeInserted means a new instance was stored.
	OutcomeInserted Outcome = "inserted"

	// OutcomeExtended means an existing instance absorbed the submission's mappings.
	OutcomeExtended Outcome = "extended"

	// OutcomeDuplicate means a structurally identical instance was already stored.
	OutcomeDuplicate Outcome = "duplicate"

	// OutcomeDropped means the submission had a blank type and matched nothing.
	OutcomeDropped Outcome = "dropped"

	// OutcomeRejected means both name and type were blank.
	OutcomeRejected Outcome = "rejected"
)

// Submission is one agent's proposal.
type Submission struct {
	Name         string
	Type         string
	Claimant     models.Claimant
	Probability  float64
	NameMappings []*models.Mention
	TypeMappings []*models.Mention
}

type entry struct {
	ri  *models.RecommendedInstance
	seq uint64
}

// Store holds recommended instances in (name, type, insertion) order.
// All operations are serialized by one mutex, so agents may call it concurrently.
type Store struct {
	mu      sync.Mutex
	entries []entry
	nextSeq uint64

	words     WordComparer
	logger    *slog.Logger
	decisions *logging.DecisionLogger
}

// NewStore creates an empty store that judges type similarity with words.
func NewStore(words WordComparer) *Store {
	return &Store{words: words, logger: logging.Discard()}
}

// SetLogger sets the operational logger and the decision trace.
func (s *Store) SetLogger(logger *slog.Logger, decisions *logging.DecisionLogger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logging.OrDiscard(logger)
	s.decisions = decisions
}

// Add merges a submission into the store and returns the instance that now carries
// its evidence (nil when dropped or rejected).
//
// The checks run in this order, and the order matters on ambiguous input:
//  1. a structurally identical instance exists: nothing to do
//  2. collect instances whose name equals the new name (case-insensitive)
//  3. among them, one whose type also equals: extend it
//  4. no instance with that name: insert
//  5. scan the name bucket in stored order; the first instance whose type is similar,
//     or whose type is blank while the new type is not, is extended (first match wins)
//  6. nothing matched: insert if the new type is non-blank, otherwise drop
func (s *Store) Add(ctx context.Context, sub Submission) (*models.RecommendedInstance, Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if textnorm.IsBlank(sub.Name) && textnorm.IsBlank(sub.Type) {
		s.logDecision(sub, nil, OutcomeRejected)
		return nil, OutcomeRejected
	}

	candidate := models.NewRecommendedInstance(sub.Name, sub.Type, sub.Claimant, sub.Probability,
		sub.NameMappings, sub.TypeMappings)
	ri, outcome := s.merge(ctx, candidate)
	s.logDecision(sub, ri, outcome)
	return ri, outcome
}

func (s *Store) merge(ctx context.Context, candidate *models.RecommendedInstance) (*models.RecommendedInstance, Outcome) {
	for _, e := range s.entries {
		if e.ri.SameAs(candidate) {
			return e.ri, OutcomeDuplicate
		}
	}

	var sameName []*models.RecommendedInstance
	for _, e := range s.entries {
		if textnorm.EqualFold(e.ri.Name(), candidate.Name()) {
			sameName = append(sameName, e.ri)
		}
	}

	var sameNameAndType []*models.RecommendedInstance
	for _, ri := range sameName {
		if textnorm.EqualFold(ri.Type(), candidate.Type()) {
			sameNameAndType = append(sameNameAndType, ri)
		}
	}

	switch {
	case len(sameNameAndType) > 1:
		panic(fmt.Sprintf("recommendation: %d instances share name %q and type %q",
			len(sameNameAndType), candidate.Name(), candidate.Type()))
	case len(sameNameAndType) == 1:
		existing := sameNameAndType[0]
		existing.AddMappings(candidate.NameMappings(), candidate.TypeMappings())
		return existing, OutcomeExtended
	case len(sameName) == 0:
		s.insert(candidate)
		return candidate, OutcomeInserted
	}

	newTypeBlank := textnorm.IsBlank(candidate.Type())
	for _, ri := range sameName {
		blankUpgrade := textnorm.IsBlank(ri.Type()) && !newTypeBlank
		if !blankUpgrade && !s.words.AreSimilar(ctx, ri.Type(), candidate.Type()) {
			continue
		}
		ri.AddMappings(candidate.NameMappings(), candidate.TypeMappings())
		if blankUpgrade {
			// A blank-typed instance is alone in its name bucket, so the refined
			// type cannot collide and its sorted position does not move.
			ri.RefineType(candidate.Type())
		}
		return ri, OutcomeExtended
	}

	if newTypeBlank {
		return nil, OutcomeDropped
	}
	s.insert(candidate)
	return candidate, OutcomeInserted
}

// insert places ri at its sorted position. Callers hold s.mu.
func (s *Store) insert(ri *models.RecommendedInstance) {
	e := entry{ri: ri, seq: s.nextSeq}
	s.nextSeq++
	s.place(e)
	s.checkInvariant(ri)
}

func (s *Store) place(e entry) {
	i := sort.Search(len(s.entries), func(i int) bool { return less(e, s.entries[i]) })
	s.entries = append(s.entries, entry{})
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = e
}

// checkInvariant panics when ri's case-insensitive (name, type) is held by another instance.
func (s *Store) checkInvariant(ri *models.RecommendedInstance) {
	for _, e := range s.entries {
		if e.ri != ri && textnorm.EqualFold(e.ri.Name(), ri.Name()) && textnorm.EqualFold(e.ri.Type(), ri.Type()) {
			panic(fmt.Sprintf("recommendation: duplicate instance for name %q and type %q", ri.Name(), ri.Type()))
		}
	}
}

func less(a, b entry) bool {
	if an, bn := a.ri.Name(), b.ri.Name(); an != bn {
		return an < bn
	}
	if at, bt := a.ri.Type(), b.ri.Type(); at != bt {
		return at < bt
	}
	return a.seq < b.seq
}

func (s *Store) logDecision(sub Submission, ri *models.RecommendedInstance, outcome Outcome) {
	event := map[string]any{
		"event":    "recommendation_merge",
		"outcome":  string(outcome),
		"name":     sub.Name,
		"type":     sub.Type,
		"claimant": string(sub.Claimant),
	}
	if ri != nil {
		event["instance"] = ri.ID()
		event["instance_type"] = ri.Type()
	}
	s.decisions.Log(event)
	s.logger.Debug("recommendation merged",
		"name", sub.Name, "type", sub.Type, "claimant", sub.Claimant, "outcome", outcome)
}
