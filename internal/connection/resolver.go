package connection

import (
	"context"
	"math"

	"github.com/nvandessel/tracelink/internal/constants"
	"github.com/nvandessel/tracelink/internal/models"
	"github.com/nvandessel/tracelink/internal/textnorm"
)

// Similarity is what the resolver needs from the similarity aggregator.
type Similarity interface {
	AreSimilar(ctx context.Context, a, b string) bool
	Score(ctx context.Context, a, b string) (float64, bool)
}

// ResolverConfig holds the link probabilities.
type ResolverConfig struct {
	Claimant models.Claimant

	// Probability is used for recommended instances with type evidence, and for
	// every backward link.
	Probability float64

	// ProbabilityWithoutType is used for forward links of instances without type evidence.
	ProbabilityWithoutType float64
}

// Resolver matches recommended instances against model instances with two strategies.
// Forward starts from each model instance and links the most likely recommended
// instances; backward starts from each recommended instance and links every similar
// model instance.
type Resolver struct {
	sim Similarity
	cfg ResolverConfig
}

// NewResolver creates a resolver.
func NewResolver(sim Similarity, cfg ResolverConfig) *Resolver {
	return &Resolver{sim: sim, cfg: cfg}
}

// Resolve runs the forward then the backward strategy and returns the number of
// proposals made.
func (r *Resolver) Resolve(ctx context.Context, ris []*models.RecommendedInstance, mis []*models.ModelInstance, state *State) (int, error) {
	forward, err := r.Forward(ctx, ris, mis, state)
	if err != nil {
		return forward, err
	}
	backward, err := r.Backward(ctx, ris, mis, state)
	return forward + backward, err
}

// Forward links each model instance to its most likely recommended instances.
func (r *Resolver) Forward(ctx context.Context, ris []*models.RecommendedInstance, mis []*models.ModelInstance, state *State) (int, error) {
	n := 0
	for _, mi := range mis {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		for _, ri := range r.MostLikely(ctx, mi, ris) {
			p := r.cfg.ProbabilityWithoutType
			if ri.HasTypeMappings() {
				p = r.cfg.Probability
			}
			if err := state.AddLink(ri, mi, r.cfg.Claimant, p); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

// Backward links each recommended instance to every model instance it resembles.
func (r *Resolver) Backward(ctx context.Context, ris []*models.RecommendedInstance, mis []*models.ModelInstance, state *State) (int, error) {
	n := 0
	for _, ri := range ris {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		for _, mi := range mis {
			if !r.Matches(ctx, ri, mi) {
				continue
			}
			if err := state.AddLink(ri, mi, r.cfg.Claimant, r.cfg.Probability); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

// MostLikely returns the recommended instances whose name is similar to mi's name.
// When the aggregator can score some of them, only the best-scored ones are kept;
// when it can score none, all similar candidates are kept.
func (r *Resolver) MostLikely(ctx context.Context, mi *models.ModelInstance, ris []*models.RecommendedInstance) []*models.RecommendedInstance {
	type scored struct {
		ri    *models.RecommendedInstance
		score float64
		known bool
	}

	var candidates []scored
	best, anyKnown := 0.0, false
	for _, ri := range ris {
		if textnorm.IsBlank(ri.Name()) || !r.sim.AreSimilar(ctx, ri.Name(), mi.Name) {
			continue
		}
		score, known := r.sim.Score(ctx, ri.Name(), mi.Name)
		candidates = append(candidates, scored{ri: ri, score: score, known: known})
		if known && (!anyKnown || score > best) {
			best, anyKnown = score, true
		}
	}

	var out []*models.RecommendedInstance
	for _, c := range candidates {
		if !anyKnown || (c.known && math.Abs(c.score-best) <= constants.ScoreEpsilon) {
			out = append(out, c.ri)
		}
	}
	return out
}

// Matches reports whether ri resembles mi: any of ri's forms ("name", "name type")
// is similar to any of mi's forms.
func (r *Resolver) Matches(ctx context.Context, ri *models.RecommendedInstance, mi *models.ModelInstance) bool {
	for _, a := range forms(ri.Name(), ri.Type()) {
		for _, b := range forms(mi.Name, mi.Type) {
			if r.sim.AreSimilar(ctx, a, b) {
				return true
			}
		}
	}
	return false
}

func forms(name, typ string) []string {
	var out []string
	if !textnorm.IsBlank(name) {
		out = append(out, name)
		if !textnorm.IsBlank(typ) {
			out = append(out, name+" "+typ)
		}
	}
	return out
}
