package db

import (
	"context"
	"time"
)

// Store is the Valkey facade used by the vector index, the embedding cache and the
// ingest checkpoints. Consumers declare the narrow sub-interface they need.
type Store interface {
	Pinger
	HashStore
	KVStore
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem holds a single key+fields pair for a pipelined hash write.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore writes the vector record hashes.
type HashStore interface {
	// HReplaceMulti overwrites each hash with exactly the given fields in one round-trip.
	HReplaceMulti(ctx context.Context, items []HashSetItem) error
}

// KVStore provides key-value operations for the embedding cache and checkpoints.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher runs vector searches over FT indexes.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}
