package personarec

import "github.com/kailas-cloud/personarec/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound               = domain.ErrNotFound
	ErrInvalidQuery           = domain.ErrInvalidQuery
	ErrInvalidVenue           = domain.ErrInvalidVenue
	ErrEmbeddingUnavailable   = domain.ErrEmbeddingUnavailable
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrClassifierUnavailable  = domain.ErrClassifierUnavailable
	ErrStoreUnavailable       = domain.ErrStoreUnavailable
	ErrVectorStoreWrite       = domain.ErrVectorStoreWrite
	ErrGraphWrite             = domain.ErrGraphWrite
)
