// Package agents holds the contribution agents and the registry that runs them.
// Agents read mentions and model instances from a Blackboard and write into its
// recommendation store and link state.
package agents

import (
	"context"
	"log/slog"

	"github.com/nvandessel/tracelink/internal/connection"
	"github.com/nvandessel/tracelink/internal/models"
	"github.com/nvandessel/tracelink/internal/recommendation"
	"github.com/nvandessel/tracelink/internal/similarity"
)

// Agent is one strategy contributing recommendations or links.
type Agent interface {
	Name() models.Claimant
	Execute(ctx context.Context, bb *Blackboard) error
}

// Similarity is the part of the aggregator agents use.
type Similarity interface {
	AreSimilar(ctx context.Context, a, b string) bool
	AreTermsSimilar(ctx context.Context, a, b similarity.Term) bool
	Score(ctx context.Context, a, b string) (float64, bool)
}

// Blackboard is the state of one run. Mentions and Instances are read only;
// Recommendations and Links serialize their own mutation.
type Blackboard struct {
	Mentions        []*models.Mention
	Instances       []*models.ModelInstance
	Recommendations *recommendation.Store
	Links           *connection.State
	Similarity      Similarity
	Logger          *slog.Logger

	// pending collects submissions instead of merging them when non-nil.
	pending *[]recommendation.Submission
}

// NewBlackboard creates a blackboard with empty stores backed by sim.
func NewBlackboard(mentions []*models.Mention, instances []*models.ModelInstance, sim Similarity, logger *slog.Logger) *Blackboard {
	return &Blackboard{
		Mentions:        mentions,
		Instances:       instances,
		Recommendations: recommendation.NewStore(sim),
		Links:           connection.NewState(),
		Similarity:      sim,
		Logger:          logger,
	}
}

// Recommend submits a recommended instance. On a buffered blackboard the submission
// is held until the runner applies it.
func (bb *Blackboard) Recommend(ctx context.Context, sub recommendation.Submission) {
	if bb.pending != nil {
		*bb.pending = append(*bb.pending, sub)
		return
	}
	bb.Recommendations.Add(ctx, sub)
}

// buffered returns a view of bb that collects submissions into pending.
func (bb *Blackboard) buffered(pending *[]recommendation.Submission) *Blackboard {
	view := *bb
	view.pending = pending
	return &view
}

// MentionsOf returns the mentions of one kind, in input order.
func (bb *Blackboard) MentionsOf(kind models.MappingKind) []*models.Mention {
	var out []*models.Mention
	for _, m := range bb.Mentions {
		if m.Kind() == kind {
			out = append(out, m)
		}
	}
	return out
}
