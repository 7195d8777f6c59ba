// Package batch runs independent batches on a bounded worker pool.
package batch

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	dombatch "github.com/kailas-cloud/personarec/internal/domain/batch"
	domvector "github.com/kailas-cloud/personarec/internal/domain/vector"
)

// DefaultWorkers is used when no worker limit is configured.
const DefaultWorkers = 4

// Runner executes batches in parallel. A failed batch never stops the others.
type Runner struct {
	workers int
	logger  *zap.Logger
}

// NewRunner creates a runner with at most workers batches in flight.
func NewRunner(workers int, logger *zap.Logger) *Runner {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Runner{workers: workers, logger: logger}
}

// Workers returns the concurrency limit.
func (r *Runner) Workers() int { return r.workers }

// Run calls fn for every span and aggregates the results into a report.
// Spans not started before ctx is done are recorded as failed with the context error.
func (r *Runner) Run(ctx context.Context, spans []domvector.Span, fn Func) dombatch.Report {
	results := make([]dombatch.Result, len(spans))

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, span := range spans {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = dombatch.NewFailed(span.Index, span.Len(), err)
			} else {
				results[i] = fn(ctx, span)
			}
			if err := results[i].Err(); err != nil {
				r.logger.Warn("Batch failed",
					zap.Int("batch", span.Index),
					zap.Int("size", span.Len()),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	return dombatch.NewReport(results)
}
