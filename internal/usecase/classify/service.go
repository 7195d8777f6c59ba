// Package classify scores venues against the persona set.
package classify

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/personarec/internal/domain"
	"github.com/kailas-cloud/personarec/internal/domain/persona"
	domvenue "github.com/kailas-cloud/personarec/internal/domain/venue"
)

// Service builds the venue document and runs the scorer on it.
type Service struct {
	scorer Scorer
}

// New creates a classification service.
func New(s Scorer) *Service {
	return &Service{scorer: s}
}

// Score returns one weight per persona. A venue without any text scores zero everywhere
// and the model is not called.
func (s *Service) Score(ctx context.Context, v domvenue.Venue) (persona.Scores, error) {
	doc := domvenue.BuildDocument(v)
	if !doc.HasText() {
		return persona.Scores{}, nil
	}

	scores, err := s.scorer.Score(ctx, doc.String())
	if err != nil {
		if errors.Is(err, domain.ErrClassifierUnavailable) {
			return persona.Scores{}, fmt.Errorf("score venue %s: %w", v.ID, err)
		}
		return persona.Scores{}, fmt.Errorf("score venue %s: %w: %w", v.ID, domain.ErrClassifierUnavailable, err)
	}
	return scores, nil
}
