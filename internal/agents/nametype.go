package agents

import (
	"context"
	"strings"

	"github.com/nvandessel/tracelink/internal/config"
	"github.com/nvandessel/tracelink/internal/constants"
	"github.com/nvandessel/tracelink/internal/logging"
	"github.com/nvandessel/tracelink/internal/models"
	"github.com/nvandessel/tracelink/internal/recommendation"
	"github.com/nvandessel/tracelink/internal/similarity"
	"github.com/nvandessel/tracelink/internal/textnorm"
)

// NameTypeAgent turns name and type mentions into recommended instances.
//
// A name mention directly next to a type mention in the same sentence ("the Logic
// component", "component Logic") yields (name, type). The type is replaced by the
// model type identifiers similar to it when there are any. A name mention with no
// neighbouring type yields (name, "") at the lower probability.
type NameTypeAgent struct {
	cfg config.NameTypeConfig
}

// NewNameTypeAgent creates the agent.
func NewNameTypeAgent(cfg config.NameTypeConfig) *NameTypeAgent {
	return &NameTypeAgent{cfg: cfg}
}

// Name implements Agent.
func (a *NameTypeAgent) Name() models.Claimant { return constants.AgentNameType }

// Execute implements Agent.
func (a *NameTypeAgent) Execute(ctx context.Context, bb *Blackboard) error {
	logger := logging.OrDiscard(bb.Logger)
	names := bb.MentionsOf(models.MappingKindName)
	types := bb.MentionsOf(models.MappingKindType)
	identifiers := typeIdentifiers(bb.Instances)

	var paired, alone int
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		if textnorm.IsBlank(name.Reference()) {
			continue
		}

		neighbours := adjacentTypes(name, types)
		if len(neighbours) == 0 {
			bb.Recommend(ctx, recommendation.Submission{
				Name:         name.Reference(),
				Claimant:     a.Name(),
				Probability:  a.cfg.ProbabilityWithoutType,
				NameMappings: []*models.Mention{name},
			})
			alone++
			continue
		}

		for _, typ := range neighbours {
			for _, t := range similarTypes(ctx, bb.Similarity, typ, identifiers) {
				bb.Recommend(ctx, recommendation.Submission{
					Name:         name.Reference(),
					Type:         t,
					Claimant:     a.Name(),
					Probability:  a.cfg.Probability,
					NameMappings: []*models.Mention{name},
					TypeMappings: []*models.Mention{typ},
				})
				paired++
			}
		}
	}

	logger.Debug("name-type agent finished", "paired", paired, "without_type", alone)
	return nil
}

// adjacentTypes returns the type mentions that touch name in the same sentence.
func adjacentTypes(name *models.Mention, types []*models.Mention) []*models.Mention {
	first, last, ok := name.Span()
	if !ok {
		return nil
	}
	var out []*models.Mention
	for _, t := range types {
		if t.Sentence() != name.Sentence() {
			continue
		}
		tFirst, tLast, ok := t.Span()
		if !ok {
			continue
		}
		if tFirst == last+1 || tLast == first-1 {
			out = append(out, t)
		}
	}
	return out
}

// typeIdentifiers collects the model types and their space-separated parts.
func typeIdentifiers(instances []*models.ModelInstance) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		if textnorm.IsBlank(s) || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	for _, mi := range instances {
		add(mi.Type)
		for _, part := range strings.Fields(mi.Type) {
			add(part)
		}
	}
	return out
}

// similarTypes maps a type mention onto the model identifiers similar to it,
// falling back to the mention's own reference.
func similarTypes(ctx context.Context, sim Similarity, typ *models.Mention, identifiers []string) []string {
	term := similarity.Term{Text: typ.Reference(), POS: typ.POS()}
	var out []string
	for _, id := range identifiers {
		if sim.AreTermsSimilar(ctx, term, similarity.Plain(id)) {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return []string{typ.Reference()}
	}
	return out
}
