// Package vectorindex validates, batches and post-filters traffic to the vector backend.
package vectorindex

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/personarec/internal/domain"
	dombatch "github.com/kailas-cloud/personarec/internal/domain/batch"
	domvector "github.com/kailas-cloud/personarec/internal/domain/vector"
	"github.com/kailas-cloud/personarec/internal/metrics"
	"github.com/kailas-cloud/personarec/internal/usecase/batch"
)

// DefaultBatchSize is the number of records per upsert batch.
const DefaultBatchSize = 250

// Service is the vector index used by ingestion and recommendation.
type Service struct {
	backend   Backend
	runner    *batch.Runner
	batchSize int
	dim       int
	logger    *zap.Logger
}

// New creates a vector index service. dim is enforced on every written record.
func New(b Backend, runner *batch.Runner, batchSize, dim int, logger *zap.Logger) *Service {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Service{backend: b, runner: runner, batchSize: batchSize, dim: dim, logger: logger}
}

// BatchSize returns the configured records per batch.
func (s *Service) BatchSize() int { return s.batchSize }

// EnsureNamespace creates the namespace in the backend if it is absent.
func (s *Service) EnsureNamespace(ctx context.Context, namespace string) error {
	if err := s.backend.EnsureNamespace(ctx, namespace, s.dim); err != nil {
		return fmt.Errorf("ensure namespace %s: %w", namespace, err)
	}
	return nil
}

// Upsert writes one batch and returns the number of records committed.
func (s *Service) Upsert(ctx context.Context, namespace string, records []domvector.Record) (int, error) {
	for _, r := range records {
		if err := r.Validate(s.dim); err != nil {
			return 0, fmt.Errorf("%w: %w", domain.ErrVectorStoreWrite, err)
		}
	}

	start := time.Now()
	n, err := s.backend.Upsert(ctx, namespace, records)
	metrics.VectorBatchDuration.WithLabelValues(s.backend.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.VectorBatchesTotal.WithLabelValues(s.backend.Name(), "error").Inc()
		return 0, fmt.Errorf("%w: %w", domain.ErrVectorStoreWrite, err)
	}
	metrics.VectorBatchesTotal.WithLabelValues(s.backend.Name(), "ok").Inc()
	return n, nil
}

// BatchOption customises one UpsertBatch call.
type BatchOption func(*batchHooks)

type batchHooks struct {
	skip      func(ctx context.Context, span domvector.Span) bool
	prepare   func(ctx context.Context, span domvector.Span, records []domvector.Record) error
	committed func(ctx context.Context, span domvector.Span)
}

// WithSkip reports spans that are already stored; they are not written and count as skipped.
func WithSkip(fn func(ctx context.Context, span domvector.Span) bool) BatchOption {
	return func(h *batchHooks) { h.skip = fn }
}

// WithPrepare completes a span's records in place before they are written.
// An error fails the span.
func WithPrepare(fn func(ctx context.Context, span domvector.Span, records []domvector.Record) error) BatchOption {
	return func(h *batchHooks) { h.prepare = fn }
}

// WithCommitted is called after a span is written.
func WithCommitted(fn func(ctx context.Context, span domvector.Span)) BatchOption {
	return func(h *batchHooks) { h.committed = fn }
}

// UpsertBatch splits records into batches and writes them in parallel.
// Each batch commits or fails on its own; the report carries every outcome.
func (s *Service) UpsertBatch(
	ctx context.Context, namespace string, records []domvector.Record, opts ...BatchOption,
) dombatch.Report {
	var h batchHooks
	for _, opt := range opts {
		opt(&h)
	}

	spans := domvector.Partition(len(records), s.batchSize)
	report := s.runner.Run(ctx, spans, func(ctx context.Context, span domvector.Span) dombatch.Result {
		if h.skip != nil && h.skip(ctx, span) {
			return dombatch.NewSkipped(span.Index, span.Len())
		}
		chunk := records[span.Lo:span.Hi]
		if h.prepare != nil {
			if err := h.prepare(ctx, span, chunk); err != nil {
				return dombatch.NewFailed(span.Index, span.Len(), err)
			}
		}
		n, err := s.Upsert(ctx, namespace, chunk)
		if err != nil {
			return dombatch.NewFailed(span.Index, span.Len(), err)
		}
		if h.committed != nil {
			h.committed(ctx, span)
		}
		return dombatch.NewCommitted(span.Index, span.Len(), n)
	})

	s.logger.Info("Vector upsert finished",
		zap.String("backend", s.backend.Name()),
		zap.String("namespace", namespace),
		zap.Int("batches", report.Batches()),
		zap.Int("committed", report.Committed()),
		zap.Int("failed_batches", len(report.Failures())),
	)
	return report
}

// Query returns at most TopK matches in descending score order.
// Matches whose metadata contradicts the filter are dropped.
func (s *Service) Query(ctx context.Context, q domvector.Query) ([]domvector.Match, error) {
	if q.TopK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive", domain.ErrInvalidQuery)
	}

	matches, err := s.backend.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w: %w", domain.ErrStoreUnavailable, err)
	}

	out := matches[:0]
	for _, m := range matches {
		if q.Filter.Contradicts(m.Metadata) {
			s.logger.Debug("Dropping match that contradicts filter",
				zap.String("id", m.ID),
				zap.Any("metadata", m.Metadata),
			)
			continue
		}
		out = append(out, m)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > q.TopK {
		out = out[:q.TopK]
	}
	return out, nil
}
