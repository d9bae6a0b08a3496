package agents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nvandessel/tracelink/internal/logging"
	"github.com/nvandessel/tracelink/internal/recommendation"
)

// Runner executes the stages of a registry against a blackboard.
type Runner struct {
	// Parallel runs the agents of one stage concurrently.
	Parallel bool

	Logger *slog.Logger
}

// Run executes every stage in order. A stage completes before the next one starts.
// An agent error does not stop the other agents of its stage; all errors are joined
// and the run stops after the failing stage. Whatever was merged before a failure or
// cancellation stays consistent and readable.
func (r *Runner) Run(ctx context.Context, reg *Registry, bb *Blackboard) error {
	logger := logging.OrDiscard(r.Logger)

	for _, stage := range reg.Stages() {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()

		var err error
		if r.Parallel && len(stage.Agents) > 1 {
			err = runParallel(ctx, stage, bb)
		} else {
			err = runSequential(ctx, stage, bb)
		}

		logger.Debug("stage finished",
			"stage", stage.Name,
			"agents", len(stage.Agents),
			"duration_ms", time.Since(start).Milliseconds(),
			"recommendations", bb.Recommendations.Len(),
			"links", bb.Links.Len())
		if err != nil {
			return fmt.Errorf("stage %s: %w", stage.Name, err)
		}
	}
	return nil
}

func runSequential(ctx context.Context, stage Stage, bb *Blackboard) error {
	var errs []error
	for _, a := range stage.Agents {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := a.Execute(ctx, bb); err != nil {
			errs = append(errs, fmt.Errorf("agent %s: %w", a.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// runParallel executes the agents of a stage concurrently. Each agent's submissions
// are buffered and merged in registration order after the stage, so the store ends up
// as it would after a sequential run. Agents read the store as it was before the stage.
func runParallel(ctx context.Context, stage Stage, bb *Blackboard) error {
	var (
		wg      sync.WaitGroup
		pending = make([][]recommendation.Submission, len(stage.Agents))
		errs    = make([]error, len(stage.Agents))
	)
	for i, a := range stage.Agents {
		wg.Add(1)
		go func(i int, a Agent) {
			defer wg.Done()
			if err := a.Execute(ctx, bb.buffered(&pending[i])); err != nil {
				errs[i] = fmt.Errorf("agent %s: %w", a.Name(), err)
			}
		}(i, a)
	}
	wg.Wait()

	for _, subs := range pending {
		for _, sub := range subs {
			bb.Recommendations.Add(ctx, sub)
		}
	}
	return errors.Join(errs...)
}
