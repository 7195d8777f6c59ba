package memory

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/personarec/internal/db"
)

type kvEntry struct {
	value   []byte
	expires time.Time
}

// KV is a string key-value store with optional expiry.
type KV struct {
	mu   sync.Mutex
	data map[string]kvEntry
	now  func() time.Time
}

// NewKV creates an empty store.
func NewKV() *KV {
	return &KV{data: make(map[string]kvEntry), now: time.Now}
}

// Get returns db.ErrKeyNotFound for missing or expired keys.
func (k *KV) Get(_ context.Context, key string) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	e, ok := k.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	if !e.expires.IsZero() && !k.now().Before(e.expires) {
		delete(k.data, key)
		return nil, db.ErrKeyNotFound
	}
	return append([]byte(nil), e.value...), nil
}

// SetWithTTL stores a value; a non-positive ttl never expires.
func (k *KV) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	e := kvEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = k.now().Add(ttl)
	}
	k.data[key] = e
	return nil
}
