// Package recommend answers recommendation queries: embed, retrieve candidates, enrich from the graph.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/personarec/internal/domain"
	domrec "github.com/kailas-cloud/personarec/internal/domain/recommend"
	domvector "github.com/kailas-cloud/personarec/internal/domain/vector"
	domvenue "github.com/kailas-cloud/personarec/internal/domain/venue"
	"github.com/kailas-cloud/personarec/internal/metrics"
)

// Timeouts bound each step of the query path. Zero disables the bound.
type Timeouts struct {
	Embed  time.Duration
	Vector time.Duration
	Graph  time.Duration
}

// Service runs the recommendation pipeline.
type Service struct {
	embed     Embedder
	index     VectorIndex
	venues    VenueReader
	namespace string
	timeouts  Timeouts
	logger    *zap.Logger
}

// New creates a recommendation service reading from namespace.
func New(
	embed Embedder, index VectorIndex, venues VenueReader,
	namespace string, timeouts Timeouts, logger *zap.Logger,
) *Service {
	return &Service{
		embed: embed, index: index, venues: venues,
		namespace: namespace, timeouts: timeouts, logger: logger,
	}
}

// Recommend returns up to TopK venues in similarity order.
// No candidates is an empty result, not an error.
func (s *Service) Recommend(ctx context.Context, q domrec.Query) ([]domrec.Result, error) {
	start := time.Now()
	results, err := s.recommend(ctx, q)
	metrics.RecommendationDuration.Observe(time.Since(start).Seconds())
	metrics.RecommendationsTotal.WithLabelValues(outcome(err)).Inc()
	return results, err
}

func (s *Service) recommend(ctx context.Context, q domrec.Query) ([]domrec.Result, error) {
	expr, err := q.Filter()
	if err != nil {
		return nil, err
	}

	vec, err := s.embedQuery(ctx, q.Text())
	if err != nil {
		return nil, err
	}

	ids, err := s.candidates(ctx, domvector.Query{
		Namespace: s.namespace,
		Vector:    vec,
		TopK:      q.TopK(),
		Filter:    expr,
	})
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []domrec.Result{}, nil
	}

	venues, err := s.fetch(ctx, ids)
	if err != nil {
		return nil, err
	}
	return s.rank(ids, venues), nil
}

func (s *Service) embedQuery(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := withTimeout(ctx, s.timeouts.Embed)
	defer cancel()

	res, err := s.embed.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	return res.Embedding, nil
}

// candidates returns matched ids in rank order with duplicates removed.
func (s *Service) candidates(ctx context.Context, q domvector.Query) ([]string, error) {
	ctx, cancel := withTimeout(ctx, s.timeouts.Vector)
	defer cancel()

	matches, err := s.index.Query(ctx, q)
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return nil, fmt.Errorf("query candidates: %w", err)
		}
		return nil, fmt.Errorf("query candidates: %w: %w", domain.ErrStoreUnavailable, err)
	}

	seen := make(map[string]struct{}, len(matches))
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (s *Service) fetch(ctx context.Context, ids []string) ([]domvenue.Venue, error) {
	ctx, cancel := withTimeout(ctx, s.timeouts.Graph)
	defer cancel()

	venues, err := s.venues.FetchByIDs(ctx, ids)
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return nil, fmt.Errorf("fetch venues: %w", err)
		}
		return nil, fmt.Errorf("fetch venues: %w: %w", domain.ErrStoreUnavailable, err)
	}
	return venues, nil
}

// rank orders venues by candidate position. Candidates missing from the graph are dropped.
func (s *Service) rank(ids []string, venues []domvenue.Venue) []domrec.Result {
	byID := make(map[string]domvenue.Venue, len(venues))
	for _, v := range venues {
		byID[v.ID] = v
	}

	out := make([]domrec.Result, 0, len(ids))
	for _, id := range ids {
		v, ok := byID[id]
		if !ok {
			metrics.StoreDivergenceTotal.Inc()
			s.logger.Debug("Candidate missing from graph", zap.String("venue_id", id))
			continue
		}
		out = append(out, domrec.Result{Name: v.Name, URL: v.URL})
	}
	return out
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidQuery):
		return "invalid"
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		return "embedding_unavailable"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "error"
	}
}
