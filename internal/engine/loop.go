package engine

import (
	"context"
	"fmt"
	"time"
)

// Reason runs reasoning cycles until a cycle processes no directive.
//
// Each cycle runs the fact store to its fixpoint, then processes the
// directives found in working memory. limit bounds the number of cycles:
// the call fails with CYCLE_LIMIT_EXCEEDED when another cycle is needed
// after limit cycles have run, and immediately when limit <= 0.
//
// On error, working memory keeps whatever earlier cycles applied.
func (e *Engine) Reason(ctx context.Context, limit int) error {
	start := time.Now()
	budget := newCycleBudget(limit)
	e.fires = 0

	err := e.reason(ctx, budget)

	e.lastDuration = time.Since(start)
	e.metrics.ObserveReason(e.lastDuration, budget.Cycles(), string(CodeOf(err)))
	if err != nil {
		e.logger.Error("reasoning failed",
			"engine", e.id,
			"cycles", budget.Cycles(),
			"limit", budget.Limit(),
			"error", err)
		return err
	}

	e.logger.Debug("reasoning finished",
		"engine", e.id,
		"cycles", budget.Cycles(),
		"fires", e.fires,
		"facts", e.NumFacts(),
		"rules", e.NumRules(),
		"duration", e.lastDuration)
	return nil
}

func (e *Engine) reason(ctx context.Context, budget *cycleBudget) error {
	for {
		if err := budget.Check(); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("cycle %d: %w", budget.Cycles(), err)
		}

		fired, err := e.facts.Run(ctx, e.maxFires)
		e.fires += fired
		e.metrics.AddFires(fired)
		if err != nil {
			return fmt.Errorf("cycle %d: run rules: %w", budget.Cycles(), err)
		}

		processed, err := e.processDirectives(ctx)
		if err != nil {
			return err
		}

		e.logger.Debug("reasoning cycle",
			"engine", e.id,
			"cycle", budget.Cycles(),
			"fires", fired,
			"directives", processed)

		if processed == 0 {
			return nil
		}
	}
}
