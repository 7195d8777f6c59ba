// Package venue serves single-venue lookups with their persona profile.
package venue

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/personarec/internal/domain"
	"github.com/kailas-cloud/personarec/internal/domain/persona"
	domvenue "github.com/kailas-cloud/personarec/internal/domain/venue"
)

// Profile is a venue with its ranked persona affinities.
type Profile struct {
	Venue      domvenue.Venue
	Affinities []persona.Affinity
}

// Service reads venue profiles.
type Service struct {
	reader Reader
	logger *zap.Logger
}

// New creates a venue service.
func New(r Reader, logger *zap.Logger) *Service {
	return &Service{reader: r, logger: logger}
}

// Get returns the venue and its persona profile.
// Personas without an edge count as weight 0.
func (s *Service) Get(ctx context.Context, id string) (Profile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Profile{}, fmt.Errorf("%w: venue id is required", domain.ErrInvalidQuery)
	}

	venues, err := s.reader.FetchByIDs(ctx, []string{id})
	if err != nil {
		return Profile{}, fmt.Errorf("get venue %s: %w", id, err)
	}
	if len(venues) == 0 {
		return Profile{}, fmt.Errorf("venue %s: %w", id, domain.ErrNotFound)
	}

	weights, err := s.reader.PersonaProfile(ctx, id)
	if err != nil {
		return Profile{}, fmt.Errorf("get profile %s: %w", id, err)
	}

	full := make(map[persona.Persona]float64, persona.Count)
	for _, p := range persona.All() {
		w := weights[p]
		if err := persona.ValidateWeight(w); err != nil {
			s.logger.Warn("Ignoring invalid persona weight",
				zap.String("venue_id", id),
				zap.String("persona", p.String()),
				zap.Error(err),
			)
			w = 0
		}
		full[p] = w
	}
	scores, err := persona.NewScores(full)
	if err != nil {
		return Profile{}, fmt.Errorf("build scores %s: %w", id, err)
	}

	return Profile{Venue: venues[0], Affinities: persona.Profile(scores)}, nil
}
