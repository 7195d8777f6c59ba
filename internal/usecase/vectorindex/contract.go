package vectorindex

import (
	"context"

	domvector "github.com/kailas-cloud/personarec/internal/domain/vector"
)

// Backend is a vector store that can hold namespaced records.
type Backend interface {
	Name() string
	EnsureNamespace(ctx context.Context, namespace string, dim int) error
	Upsert(ctx context.Context, namespace string, records []domvector.Record) (int, error)
	Query(ctx context.Context, q domvector.Query) ([]domvector.Match, error)
}
