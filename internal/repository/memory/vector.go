package memory

import (
	"context"
	"fmt"
	"maps"
	"math"
	"sort"
	"sync"

	domvector "github.com/kailas-cloud/personarec/internal/domain/vector"
)

// BackendName labels the in-memory vector backend.
const BackendName = "memory"

// Vector is a brute-force cosine index.
type Vector struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]domvector.Record
}

// NewVector creates an empty index.
func NewVector() *Vector {
	return &Vector{namespaces: make(map[string]map[string]domvector.Record)}
}

// Name returns the backend name.
func (v *Vector) Name() string { return BackendName }

// EnsureNamespace creates the namespace when absent.
func (v *Vector) EnsureNamespace(_ context.Context, namespace string, _ int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.namespaces[namespace]; !ok {
		v.namespaces[namespace] = make(map[string]domvector.Record)
	}
	return nil
}

// Upsert overwrites records by id.
func (v *Vector) Upsert(_ context.Context, namespace string, records []domvector.Record) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	ns, ok := v.namespaces[namespace]
	if !ok {
		return 0, fmt.Errorf("namespace %s does not exist", namespace)
	}
	for _, r := range records {
		ns[r.ID] = domvector.Record{
			ID:        r.ID,
			Embedding: append([]float32(nil), r.Embedding...),
			Metadata:  maps.Clone(r.Metadata),
		}
	}
	return len(records), nil
}

// Len returns the number of records in the namespace.
func (v *Vector) Len(namespace string) int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.namespaces[namespace])
}

// Query scans the namespace and returns the best TopK matches that satisfy the filter.
func (v *Vector) Query(_ context.Context, q domvector.Query) ([]domvector.Match, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	ns, ok := v.namespaces[q.Namespace]
	if !ok {
		return nil, nil
	}

	out := make([]domvector.Match, 0, len(ns))
	for _, r := range ns {
		if !q.Filter.Matches(r.Metadata) {
			continue
		}
		out = append(out, domvector.Match{ID: r.ID, Score: cosine(q.Vector, r.Embedding), Metadata: maps.Clone(r.Metadata)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if q.TopK >= 0 && len(out) > q.TopK {
		out = out[:q.TopK]
	}
	return out, nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
