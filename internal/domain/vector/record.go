// Package vector holds the records and queries exchanged with the vector index.
package vector

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/personarec/internal/domain/vector/filter"
)

// DefaultNamespace partitions venue vectors from other entity types.
const DefaultNamespace = "venues"

// Record is one entry of the vector index. ID must equal the venue id.
type Record struct {
	ID        string
	Embedding []float32
	Metadata  map[string]string
}

// Validate checks a record before it is written.
func (r Record) Validate(dim int) error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("record id is required")
	}
	if len(r.Embedding) == 0 {
		return fmt.Errorf("record %s: embedding is required", r.ID)
	}
	if dim > 0 && len(r.Embedding) != dim {
		return fmt.Errorf("record %s: expected %d dimensions, got %d", r.ID, dim, len(r.Embedding))
	}
	for k := range r.Metadata {
		if strings.HasPrefix(k, "__") {
			return fmt.Errorf("record %s: metadata key %q is reserved", r.ID, k)
		}
	}
	return nil
}

// Query is a filtered ANN lookup within a namespace.
type Query struct {
	Namespace string
	Vector    []float32
	TopK      int
	Filter    filter.Expression
}

// Match is one ANN hit. Higher Score means more similar.
type Match struct {
	ID       string
	Score    float64
	Metadata map[string]string
}

// Span is the half-open range [Lo, Hi) of one batch within a record list.
type Span struct {
	Index int
	Lo    int
	Hi    int
}

// Len returns the number of records in the span.
func (s Span) Len() int { return s.Hi - s.Lo }

// Partition splits n items into consecutive batches of at most size items.
func Partition(n, size int) []Span {
	if n <= 0 || size <= 0 {
		return nil
	}
	spans := make([]Span, 0, (n+size-1)/size)
	for lo := 0; lo < n; lo += size {
		spans = append(spans, Span{Index: len(spans), Lo: lo, Hi: min(lo+size, n)})
	}
	return spans
}
