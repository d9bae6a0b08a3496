package agents

import (
	"context"

	"github.com/nvandessel/tracelink/internal/config"
	"github.com/nvandessel/tracelink/internal/constants"
	"github.com/nvandessel/tracelink/internal/logging"
	"github.com/nvandessel/tracelink/internal/models"
	"github.com/nvandessel/tracelink/internal/recommendation"
	"github.com/nvandessel/tracelink/internal/textnorm"
)

// ModelTypeAgent recommends name mentions again under the type of each model
// instance whose name they resemble. A typeless recommendation for the same name
// then adopts that type.
type ModelTypeAgent struct {
	cfg config.ModelTypeConfig
}

// NewModelTypeAgent creates the agent.
func NewModelTypeAgent(cfg config.ModelTypeConfig) *ModelTypeAgent {
	return &ModelTypeAgent{cfg: cfg}
}

// Name implements Agent.
func (a *ModelTypeAgent) Name() models.Claimant { return constants.AgentModelType }

// Execute implements Agent.
func (a *ModelTypeAgent) Execute(ctx context.Context, bb *Blackboard) error {
	logger := logging.OrDiscard(bb.Logger)

	submitted := 0
	for _, name := range bb.MentionsOf(models.MappingKindName) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if textnorm.IsBlank(name.Reference()) {
			continue
		}

		seen := make(map[string]bool)
		for _, mi := range bb.Instances {
			key := textnorm.Fold(mi.Type)
			if textnorm.IsBlank(mi.Type) || seen[key] {
				continue
			}
			if !bb.Similarity.AreSimilar(ctx, name.Reference(), mi.Name) {
				continue
			}
			seen[key] = true
			bb.Recommend(ctx, recommendation.Submission{
				Name:         name.Reference(),
				Type:         mi.Type,
				Claimant:     a.Name(),
				Probability:  a.cfg.Probability,
				NameMappings: []*models.Mention{name},
			})
			submitted++
		}
	}

	logger.Debug("model-type agent finished", "submitted", submitted)
	return nil
}
