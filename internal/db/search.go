package db

import (
	"encoding/binary"
	"math"

	"github.com/kailas-cloud/personarec/internal/domain/vector/filter"
)

// ScoreField is the pseudo-field FT.SEARCH uses for KNN distance.
const ScoreField = "__vector_score"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	VectorField  string // schema alias of the vector field, "vector" if empty
	Filter       filter.Expression
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single hit. Score is cosine similarity clamped to [0,1].
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// VectorBytes encodes v as little-endian FLOAT32, the blob format of HASH vector fields.
func VectorBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
