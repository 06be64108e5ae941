package eval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/tensorplan/pkg/cache"
	"github.com/matzehuels/tensorplan/pkg/plan"
)

// EvaluateAll evaluates independent plans and returns their results in
// order. The plans share the evaluator's cache, so common subplans are
// computed once.
//
// When the cache is a [cache.Shared] the plans are evaluated concurrently
// (bounded by WithConcurrency); otherwise they run one after another. The
// first error stops plans that have not started yet and is returned.
func (e *Evaluator[T]) EvaluateAll(ctx context.Context, plans []*plan.Plan) ([]Result[T], error) {
	batch := uuid.NewString()
	_, concurrent := e.cache.(*cache.Shared[T])
	ctx, span := tracer.Start(ctx, "eval.EvaluateAll",
		trace.WithAttributes(
			attribute.String("eval.batch_id", batch),
			attribute.Int("eval.plans", len(plans)),
			attribute.Bool("eval.concurrent", concurrent),
		))
	defer span.End()

	start := time.Now()
	results := make([]Result[T], len(plans))
	run := func(ctx context.Context, i int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		r, err := e.evaluate(ctx, plans[i], fmt.Sprintf("%s/%d", batch, i))
		if err != nil {
			return fmt.Errorf("plan %d: %w", i, err)
		}
		results[i] = r
		return nil
	}

	if concurrent {
		g, gctx := errgroup.WithContext(ctx)
		if e.opts.workers > 0 {
			g.SetLimit(e.opts.workers)
		}
		for i := range plans {
			g.Go(func() error { return run(gctx, i) })
		}
		if err := g.Wait(); err != nil {
			span.RecordError(err)
			return nil, err
		}
	} else {
		for i := range plans {
			if err := run(ctx, i); err != nil {
				span.RecordError(err)
				return nil, err
			}
		}
	}

	e.opts.logger.Info("evaluated plans",
		"batch", batch,
		"plans", len(plans),
		"concurrent", concurrent,
		"cached", e.cache.Len(),
		"duration", time.Since(start))
	return results, nil
}
