// Package pipeline runs one resolution: it builds the similarity aggregator and the
// agent registry from configuration, executes the stages over a document and
// collects the recommended instances and links.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nvandessel/tracelink/internal/agents"
	"github.com/nvandessel/tracelink/internal/config"
	"github.com/nvandessel/tracelink/internal/input"
	"github.com/nvandessel/tracelink/internal/logging"
	"github.com/nvandessel/tracelink/internal/models"
	"github.com/nvandessel/tracelink/internal/similarity"
	"github.com/nvandessel/tracelink/internal/store"
)

// Options configures a run. Zero values fall back to defaults.
type Options struct {
	Config    *config.Config
	Logger    *slog.Logger
	Decisions *logging.DecisionLogger

	// Aggregator is reused when set; otherwise one is built from Config.Similarity
	// and closed when the run ends. A shared aggregator keeps its own decision logger.
	Aggregator *similarity.Aggregator

	// Registry overrides the agents built from Config.Agents.
	Registry *agents.Registry
}

// Result is the outcome of a run.
type Result struct {
	RunID           string
	StartedAt       time.Time
	Duration        time.Duration
	Recommendations []*models.RecommendedInstance
	Links           []models.Link

	// Skipped lists measures left out of the aggregator, with the reason.
	Skipped map[string]string

	// Failures counts failed comparisons per measure.
	Failures map[string]int64
}

// Snapshot flattens the result for output.
func (r *Result) Snapshot() *store.Snapshot {
	return store.NewSnapshot(r.RunID, r.StartedAt, r.Recommendations, r.Links)
}

// Run resolves a document. On error the returned result still holds whatever the
// completed work produced.
func Run(ctx context.Context, doc *input.Document, opts Options) (*Result, error) {
	mentions, instances := doc.Build()
	return RunModels(ctx, mentions, instances, opts)
}

// RunModels resolves already built mentions and instances.
func RunModels(ctx context.Context, mentions []*models.Mention, instances []*models.ModelInstance, opts Options) (*Result, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := logging.OrDiscard(opts.Logger)

	result := &Result{RunID: uuid.NewString(), StartedAt: time.Now()}
	decisions := opts.Decisions.With(map[string]any{"run_id": result.RunID})

	agg := opts.Aggregator
	if agg == nil {
		agg = similarity.Build(ctx, cfg.Similarity, logger)
		agg.SetDecisionLogger(decisions)
		defer func() {
			if err := agg.Close(); err != nil {
				logger.Warn("failed to close similarity resources", "error", err)
			}
		}()
	}

	reg := opts.Registry
	if reg == nil {
		reg = agents.FromConfig(cfg.Agents)
	}

	bb := agents.NewBlackboard(mentions, instances, agg, logger)
	bb.Recommendations.SetLogger(logger, decisions)
	bb.Links.SetLogger(logger, decisions)

	logger.Info("resolution started",
		"run_id", result.RunID,
		"mentions", len(mentions),
		"instances", len(instances),
		"measures", agg.Measures(),
		"agents", reg.Agents())

	runner := &agents.Runner{Parallel: cfg.Runner.Parallel, Logger: logger}
	runErr := runner.Run(ctx, reg, bb)

	result.Duration = time.Since(result.StartedAt)
	result.Recommendations = bb.Recommendations.All()
	result.Links = bb.Links.Links()
	result.Skipped = agg.Skipped()
	result.Failures = agg.Failures()

	logger.Info("resolution finished",
		"run_id", result.RunID,
		"recommendations", len(result.Recommendations),
		"links", len(result.Links),
		"duration_ms", result.Duration.Milliseconds())

	if runErr != nil {
		return result, fmt.Errorf("resolution %s: %w", result.RunID, runErr)
	}
	return result, nil
}
