package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidQuery signals a malformed recommendation query.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidVenue signals a venue that cannot be written.
	ErrInvalidVenue = errors.New("invalid venue")
	// ErrEmbeddingUnavailable signals that the query text could not be embedded.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrClassifierUnavailable signals a persona classifier failure.
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	// ErrStoreUnavailable signals a graph or vector store read failure or timeout.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrVectorStoreWrite signals a failed vector batch write.
	ErrVectorStoreWrite = errors.New("vector store write failure")
	// ErrGraphWrite signals a failed graph statement group.
	ErrGraphWrite = errors.New("graph write failure")
)

// BatchError is the typed failure of one vector batch.
type BatchError struct {
	Index int
	Cause error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%s: batch %d: %v", ErrVectorStoreWrite.Error(), e.Index, e.Cause)
}

// Unwrap exposes both the sentinel and the underlying cause to errors.Is/As.
func (e *BatchError) Unwrap() []error { return []error{ErrVectorStoreWrite, e.Cause} }

// NewBatchError creates a batch failure for the batch at index.
func NewBatchError(index int, cause error) error {
	return &BatchError{Index: index, Cause: cause}
}
