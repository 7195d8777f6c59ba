// Package vector is the Valkey search backend of the vector index.
package vector

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/personarec/internal/db"
	"github.com/kailas-cloud/personarec/internal/domain"
	domvector "github.com/kailas-cloud/personarec/internal/domain/vector"
)

// BackendName labels this backend in metrics and logs.
const BackendName = "valkey"

const (
	vectorField = "__vector"
	vectorAlias = "vector"
)

// store is the consumer interface for the Valkey store (ISP).
type store interface {
	HReplaceMulti(ctx context.Context, items []db.HashSetItem) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Options configures the index schema.
type Options struct {
	TagFields      []string // metadata fields indexed for exact-match filters
	ReturnFields   []string // metadata fields returned with matches
	M              int
	EFConstruction int
}

// DefaultOptions index city and category and return the venue projection.
func DefaultOptions() Options {
	return Options{
		TagFields:      []string{"city", "category"},
		ReturnFields:   []string{"city", "category", "name", "url"},
		M:              16,
		EFConstruction: 200,
	}
}

// Repo stores vector records as hashes under one FT index per namespace.
type Repo struct {
	store store
	opts  Options
}

// New creates a Valkey vector backend.
func New(s store, opts Options) *Repo {
	return &Repo{store: s, opts: opts}
}

// Name returns the backend name.
func (r *Repo) Name() string { return BackendName }

// EnsureNamespace creates the namespace index when it does not exist.
func (r *Repo) EnsureNamespace(ctx context.Context, namespace string, dim int) error {
	if !db.IsValidIdentifier(namespace) {
		return fmt.Errorf("invalid namespace %q", namespace)
	}
	name := indexName(namespace)

	exists, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check index %s: %w: %w", name, domain.ErrStoreUnavailable, err)
	}
	if exists {
		return nil
	}

	b := db.NewIndex(name).Prefix(keyPrefix(namespace))
	for _, f := range r.opts.TagFields {
		b = b.Tag(f)
	}
	def, err := b.VectorHNSW(vectorField, vectorAlias, dim, db.DistanceCosine, r.opts.M, r.opts.EFConstruction).Build()
	if err != nil {
		return fmt.Errorf("build index %s: %w", name, err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	return nil
}

// Upsert overwrites every record in one pipelined round-trip and returns the count written.
func (r *Repo) Upsert(ctx context.Context, namespace string, records []domvector.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	items := make([]db.HashSetItem, len(records))
	for i, rec := range records {
		fields := make(map[string]string, len(rec.Metadata)+1)
		for k, v := range rec.Metadata {
			fields[k] = v
		}
		fields[vectorField] = db.VectorBytes(rec.Embedding)
		items[i] = db.HashSetItem{Key: recordKey(namespace, rec.ID), Fields: fields}
	}

	if err := r.store.HReplaceMulti(ctx, items); err != nil {
		return 0, fmt.Errorf("write %d records: %w", len(records), err)
	}
	return len(records), nil
}

// Query runs a filtered KNN search. Matches come back in the store's order.
func (r *Repo) Query(ctx context.Context, q domvector.Query) ([]domvector.Match, error) {
	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    indexName(q.Namespace),
		VectorField:  vectorAlias,
		Filter:       q.Filter,
		Vector:       q.Vector,
		K:            q.TopK,
		ReturnFields: r.opts.ReturnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("knn %s: %w", q.Namespace, err)
	}

	prefix := keyPrefix(q.Namespace)
	out := make([]domvector.Match, 0, len(res.Entries))
	for _, e := range res.Entries {
		id, ok := strings.CutPrefix(e.Key, prefix)
		if !ok || id == "" {
			continue
		}
		out = append(out, domvector.Match{ID: id, Score: e.Score, Metadata: e.Fields})
	}
	return out, nil
}

func keyPrefix(namespace string) string {
	return domain.KeyPrefix + "vec:" + namespace + ":"
}

func recordKey(namespace, id string) string {
	return keyPrefix(namespace) + id
}

func indexName(namespace string) string {
	return keyPrefix(namespace) + "idx"
}
