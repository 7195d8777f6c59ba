package ingest

import (
	"context"

	dombatch "github.com/kailas-cloud/personarec/internal/domain/batch"
	"github.com/kailas-cloud/personarec/internal/domain/persona"
	domvector "github.com/kailas-cloud/personarec/internal/domain/vector"
	domvenue "github.com/kailas-cloud/personarec/internal/domain/venue"
	"github.com/kailas-cloud/personarec/internal/usecase/vectorindex"
)

// Classifier scores a venue against every persona.
type Classifier interface {
	Score(ctx context.Context, v domvenue.Venue) (persona.Scores, error)
}

// GraphWriter persists venues and persona edges.
type GraphWriter interface {
	SeedPersonas(ctx context.Context) error
	WriteVenues(ctx context.Context, items []domvenue.Scored) []error
}

// VectorWriter persists venue embeddings in parallel batches.
type VectorWriter interface {
	EnsureNamespace(ctx context.Context, namespace string) error
	UpsertBatch(
		ctx context.Context, namespace string, records []domvector.Record, opts ...vectorindex.BatchOption,
	) dombatch.Report
}

// Checkpoints remembers committed units across runs.
type Checkpoints interface {
	Done(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}
