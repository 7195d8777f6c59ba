package recommend

import (
	"context"

	"github.com/kailas-cloud/personarec/internal/domain"
	domvector "github.com/kailas-cloud/personarec/internal/domain/vector"
	domvenue "github.com/kailas-cloud/personarec/internal/domain/venue"
)

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// VectorIndex finds candidate venues.
type VectorIndex interface {
	Query(ctx context.Context, q domvector.Query) ([]domvector.Match, error)
}

// VenueReader loads venue records from the graph.
type VenueReader interface {
	FetchByIDs(ctx context.Context, ids []string) ([]domvenue.Venue, error)
}
