package classify

import (
	"context"

	"github.com/kailas-cloud/personarec/internal/domain/persona"
)

// Scorer runs persona inference on a rendered document.
type Scorer interface {
	Score(ctx context.Context, document string) (persona.Scores, error)
}
