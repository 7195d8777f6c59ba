package batch

import (
	"context"

	dombatch "github.com/kailas-cloud/personarec/internal/domain/batch"
	domvector "github.com/kailas-cloud/personarec/internal/domain/vector"
)

// Func processes one span and reports its outcome.
// The result index must be the span index.
type Func func(ctx context.Context, span domvector.Span) dombatch.Result
