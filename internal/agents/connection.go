package agents

import (
	"context"

	"github.com/nvandessel/tracelink/internal/config"
	"github.com/nvandessel/tracelink/internal/connection"
	"github.com/nvandessel/tracelink/internal/constants"
	"github.com/nvandessel/tracelink/internal/logging"
	"github.com/nvandessel/tracelink/internal/models"
)

// InstanceConnectionAgent links the recommended instances to model instances with
// the forward and backward strategies.
type InstanceConnectionAgent struct {
	cfg config.InstanceConnectionConfig
}

// NewInstanceConnectionAgent creates the agent.
func NewInstanceConnectionAgent(cfg config.InstanceConnectionConfig) *InstanceConnectionAgent {
	return &InstanceConnectionAgent{cfg: cfg}
}

// Name implements Agent.
func (a *InstanceConnectionAgent) Name() models.Claimant { return constants.AgentInstanceConnection }

// Execute implements Agent.
func (a *InstanceConnectionAgent) Execute(ctx context.Context, bb *Blackboard) error {
	resolver := connection.NewResolver(bb.Similarity, connection.ResolverConfig{
		Claimant:               a.Name(),
		Probability:            a.cfg.Probability,
		ProbabilityWithoutType: a.cfg.ProbabilityWithoutType,
	})

	n, err := resolver.Resolve(ctx, bb.Recommendations.All(), bb.Instances, bb.Links)
	logging.OrDiscard(bb.Logger).Debug("instance-connection agent finished", "proposals", n)
	return err
}
