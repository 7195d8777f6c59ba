package personarec

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// keywordEmbedder maps texts onto three axes: coffee, pizza, other.
type keywordEmbedder struct{ calls int }

func (e *keywordEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	e.calls++
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "coffee"):
		return EmbeddingResult{Embedding: []float32{1, 0.1, 0}, TotalTokens: 2}, nil
	case strings.Contains(t, "pizza"):
		return EmbeddingResult{Embedding: []float32{0.1, 1, 0}, TotalTokens: 2}, nil
	default:
		return EmbeddingResult{Embedding: []float32{0, 0, 1}, TotalTokens: 2}, nil
	}
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(_ context.Context, _ string) (EmbeddingResult, error) {
	return EmbeddingResult{}, errors.New("provider down")
}

// foodieScorer favours the culinary explorer for every venue.
type foodieScorer struct{}

func (foodieScorer) Score(_ context.Context, _ string) (map[Persona]float64, error) {
	out := make(map[Persona]float64)
	for _, p := range Personas() {
		out[p] = 0.2
	}
	out[Personas()[1]] = 0.9
	return out, nil
}

func testVenues() []Venue {
	return []Venue{
		{ID: "v-1", Name: "Bean Bar", URL: "https://ex.com/bean", City: "Austin", Category: "Cafe",
			Summary: "Single origin coffee and pastries"},
		{ID: "v-2", Name: "Slice House", URL: "https://ex.com/slice", City: "Austin", Category: "Cafe",
			Summary: "Wood fired pizza by the slice"},
		{ID: "v-3", Name: "Dallas Drip", URL: "https://ex.com/drip", City: "Dallas", Category: "Cafe",
			Summary: "Cold brew coffee"},
	}
}

func newTestClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithEmbedder(&keywordEmbedder{}),
		WithScorer(foodieScorer{}),
		WithVectorDimensions(3),
	}
	c, err := New(context.Background(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestNew_RequiresEmbedder(t *testing.T) {
	if _, err := New(context.Background()); err == nil {
		t.Fatal("expected error without embedder")
	}
}

func TestIngestAndRecommend(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	sum, err := c.Ingest(ctx, testVenues())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !sum.OK() {
		t.Fatalf("ingest not OK: %+v", sum)
	}

	recs, err := c.Recommend(ctx, RecommendRequest{Text: "coffee", City: "Austin", Category: "Cafe"})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 Austin cafes, got %+v", recs)
	}
	if recs[0].Name != "Bean Bar" || recs[0].URL != "https://ex.com/bean" {
		t.Errorf("unexpected first result: %+v", recs[0])
	}

	recs, err = c.Recommend(ctx, RecommendRequest{Text: "coffee", City: "Austin", Category: "Cafe", TopK: 1})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if len(recs) != 1 {
		t.Errorf("TopK not applied: %+v", recs)
	}
}

func TestRecommend_NoCandidates(t *testing.T) {
	c := newTestClient(t)
	recs, err := c.Recommend(context.Background(), RecommendRequest{Text: "coffee", City: "Paris", Category: "Cafe"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("expected no results, got %+v", recs)
	}
}

func TestRecommend_InvalidQuery(t *testing.T) {
	c := newTestClient(t)
	_, err := c.Recommend(context.Background(), RecommendRequest{Text: "coffee", Category: "Cafe"})
	if !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestRecommend_EmbeddingUnavailable(t *testing.T) {
	c, err := New(context.Background(), WithEmbedder(failingEmbedder{}), WithVectorDimensions(3))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	_, err = c.Recommend(context.Background(), RecommendRequest{Text: "coffee", City: "Austin", Category: "Cafe"})
	if !errors.Is(err, ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}
}

func TestVenue(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	if _, err := c.Ingest(ctx, testVenues()); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	p, err := c.Venue(ctx, "v-1")
	if err != nil {
		t.Fatalf("Venue: %v", err)
	}
	if p.Venue.Name != "Bean Bar" {
		t.Errorf("unexpected venue: %+v", p.Venue)
	}
	if len(p.Affinities) != len(Personas()) {
		t.Fatalf("expected %d affinities, got %d", len(Personas()), len(p.Affinities))
	}
	if p.Affinities[0].Persona != Personas()[1] {
		t.Errorf("strongest persona = %s, want %s", p.Affinities[0].Persona, Personas()[1])
	}

	if _, err := c.Venue(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestIngest_WithoutScorer(t *testing.T) {
	c, err := New(context.Background(), WithEmbedder(&keywordEmbedder{}), WithVectorDimensions(3))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	sum, err := c.Ingest(context.Background(), testVenues(), StepGraph)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum.OK() {
		t.Fatal("expected failed graph units without a scorer")
	}
}

func TestSeedPersonas(t *testing.T) {
	c := newTestClient(t)
	if err := c.SeedPersonas(context.Background()); err != nil {
		t.Fatalf("SeedPersonas: %v", err)
	}
	if err := c.SeedPersonas(context.Background()); err != nil {
		t.Fatalf("second SeedPersonas: %v", err)
	}
}

func TestHealthAndPing(t *testing.T) {
	c := newTestClient(t)
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	h := c.Health(context.Background())
	if !h.OK() {
		t.Errorf("expected healthy, got %+v", h)
	}
	if h.Checks["graph"] != "ok" {
		t.Errorf("graph check = %q", h.Checks["graph"])
	}
}

func TestObserver_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := newTestClient(t, WithPrometheus(reg))

	_, _ = c.Recommend(context.Background(), RecommendRequest{Text: "coffee", City: "Austin", Category: "Cafe"})
	_, _ = c.Recommend(context.Background(), RecommendRequest{Text: "coffee"})

	ops := c.obs.metrics.operations
	if got := testutil.ToFloat64(ops.WithLabelValues("recommend", "ok")); got != 1 {
		t.Errorf("ok count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(ops.WithLabelValues("recommend", "invalid")); got != 1 {
		t.Errorf("invalid count = %v, want 1", got)
	}

	// A second client on the same registry reuses the collectors.
	if _, err := New(context.Background(), WithEmbedder(&keywordEmbedder{}), WithPrometheus(reg)); err != nil {
		t.Fatalf("second client: %v", err)
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{ErrInvalidQuery, "invalid"},
		{ErrNotFound, "not_found"},
		{ErrStoreUnavailable, "unavailable"},
		{ErrEmbeddingUnavailable, "unavailable"},
		{errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		if got := outcome(tt.err); got != tt.want {
			t.Errorf("outcome(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestScorerAdapter_RejectsIncompleteScores(t *testing.T) {
	a := &scorerAdapter{inner: partialScorer{}}
	if _, err := a.Score(context.Background(), "doc"); err == nil {
		t.Fatal("expected error for missing personas")
	}
}

type partialScorer struct{}

func (partialScorer) Score(_ context.Context, _ string) (map[Persona]float64, error) {
	return map[Persona]float64{Personas()[0]: 1}, nil
}
