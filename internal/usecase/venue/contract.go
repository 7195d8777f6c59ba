package venue

import (
	"context"

	"github.com/kailas-cloud/personarec/internal/domain/persona"
	domvenue "github.com/kailas-cloud/personarec/internal/domain/venue"
)

// Reader reads venues and their persona edges from the graph.
type Reader interface {
	FetchByIDs(ctx context.Context, ids []string) ([]domvenue.Venue, error)
	PersonaProfile(ctx context.Context, venueID string) (map[persona.Persona]float64, error)
}
