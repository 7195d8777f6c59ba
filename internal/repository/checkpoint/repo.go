// Package checkpoint records committed ingestion units in a key-value store.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/personarec/internal/db"
	"github.com/kailas-cloud/personarec/internal/domain"
)

// store is the consumer interface for the KV store (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Repo marks and looks up checkpoints. A zero ttl keeps them forever.
type Repo struct {
	store store
	ttl   time.Duration
	now   func() time.Time
}

// New creates a checkpoint repository.
func New(s store, ttl time.Duration) *Repo {
	return &Repo{store: s, ttl: ttl, now: time.Now}
}

// Key builds the checkpoint key of one unit.
func Key(job, step, unit string) string {
	return fmt.Sprintf("ingest:%s:%s:%s", job, step, unit)
}

// Done reports whether the unit was committed by an earlier run.
func (r *Repo) Done(ctx context.Context, key string) (bool, error) {
	_, err := r.store.Get(ctx, domain.KeyPrefix+key)
	if errors.Is(err, db.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read checkpoint %s: %w", key, err)
	}
	return true, nil
}

// Mark records the unit as committed. The value is the commit time.
func (r *Repo) Mark(ctx context.Context, key string) error {
	ts := r.now().UTC().Format(time.RFC3339)
	if err := r.store.SetWithTTL(ctx, domain.KeyPrefix+key, []byte(ts), r.ttl); err != nil {
		return fmt.Errorf("write checkpoint %s: %w", key, err)
	}
	return nil
}
