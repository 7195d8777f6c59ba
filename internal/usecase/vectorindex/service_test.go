package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/personarec/internal/domain"
	dombatch "github.com/kailas-cloud/personarec/internal/domain/batch"
	domvector "github.com/kailas-cloud/personarec/internal/domain/vector"
	"github.com/kailas-cloud/personarec/internal/domain/vector/filter"
	"github.com/kailas-cloud/personarec/internal/metrics"
	"github.com/kailas-cloud/personarec/internal/usecase/batch"
)

type mockBackend struct {
	mu       sync.Mutex
	failFor  map[string]error // first record id of a batch -> error
	written  map[string]domvector.Record
	matches  []domvector.Match
	queryErr error
	ensured  int
}

func newMockBackend() *mockBackend {
	return &mockBackend{failFor: map[string]error{}, written: map[string]domvector.Record{}}
}

func (m *mockBackend) Name() string { return "mock" }

func (m *mockBackend) EnsureNamespace(_ context.Context, _ string, dim int) error {
	m.ensured = dim
	return nil
}

func (m *mockBackend) Upsert(_ context.Context, _ string, records []domvector.Record) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failFor[records[0].ID]; err != nil {
		return 0, err
	}
	for _, r := range records {
		m.written[r.ID] = r
	}
	return len(records), nil
}

func (m *mockBackend) Query(_ context.Context, _ domvector.Query) ([]domvector.Match, error) {
	return m.matches, m.queryErr
}

func newService(b Backend, batchSize int) *Service {
	return New(b, batch.NewRunner(2, zap.NewNop()), batchSize, 2, zap.NewNop())
}

func records(ids ...string) []domvector.Record {
	out := make([]domvector.Record, len(ids))
	for i, id := range ids {
		out[i] = domvector.Record{ID: id, Embedding: []float32{1, 0}}
	}
	return out
}

func cityFilter(t *testing.T, city string) filter.Expression {
	t.Helper()
	c, err := filter.Eq("city", city)
	if err != nil {
		t.Fatal(err)
	}
	e, err := filter.And(c)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestUpsertBatch_PartialFailure(t *testing.T) {
	b := newMockBackend()
	boom := errors.New("quota")
	b.failFor["c"] = boom

	report := newService(b, 2).UpsertBatch(context.Background(), "venues", records("a", "b", "c", "d", "e"))

	if report.Batches() != 3 {
		t.Fatalf("expected 3 batches, got %d", report.Batches())
	}
	if report.Committed() != 3 {
		t.Errorf("expected 3 committed, got %d", report.Committed())
	}
	failures := report.Failures()
	if len(failures) != 1 || failures[0].Index() != 1 {
		t.Fatalf("expected batch 1 to fail, got %+v", failures)
	}
	var be *domain.BatchError
	if !errors.As(failures[0].Err(), &be) || !errors.Is(be, boom) || !errors.Is(be, domain.ErrVectorStoreWrite) {
		t.Errorf("unexpected failure: %v", failures[0].Err())
	}
	if _, ok := b.written["e"]; !ok {
		t.Error("batches after a failure must still run")
	}
}

func TestUpsertBatch_SplitsIntoFullAndRemainderBatches(t *testing.T) {
	ids := make([]string, 1425)
	for i := range ids {
		ids[i] = fmt.Sprintf("v-%04d", i)
	}
	b := newMockBackend()

	report := newService(b, 250).UpsertBatch(context.Background(), "venues", records(ids...))

	results := report.Results()
	if len(results) != 6 {
		t.Fatalf("expected 6 batches, got %d", len(results))
	}
	for i, r := range results {
		want := 250
		if i == 5 {
			want = 175
		}
		if r.Index() != i || r.Size() != want || r.Count() != want {
			t.Errorf("batch %d: index=%d size=%d count=%d, want size %d", i, r.Index(), r.Size(), r.Count(), want)
		}
	}
	if report.Committed() != 1425 || len(b.written) != 1425 {
		t.Errorf("expected 1425 committed, got %d (%d written)", report.Committed(), len(b.written))
	}
}

func TestUpsertBatch_Hooks(t *testing.T) {
	b := newMockBackend()
	in := []domvector.Record{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}, {ID: "e"}}
	prepErr := errors.New("embed failed")

	var (
		mu        sync.Mutex
		committed []int
	)
	report := newService(b, 2).UpsertBatch(context.Background(), "venues", in,
		WithSkip(func(_ context.Context, span domvector.Span) bool { return span.Index == 0 }),
		WithPrepare(func(_ context.Context, span domvector.Span, chunk []domvector.Record) error {
			if span.Index == 2 {
				return prepErr
			}
			for i := range chunk {
				chunk[i].Embedding = []float32{1, 0}
			}
			return nil
		}),
		WithCommitted(func(_ context.Context, span domvector.Span) {
			mu.Lock()
			defer mu.Unlock()
			committed = append(committed, span.Index)
		}),
	)

	res := report.Results()
	if res[0].Status() != dombatch.StatusSkipped || res[1].Status() != dombatch.StatusCommitted ||
		res[2].Status() != dombatch.StatusFailed {
		t.Fatalf("unexpected statuses: %+v", res)
	}
	if !errors.Is(res[2].Err(), prepErr) {
		t.Errorf("expected prepare error, got %v", res[2].Err())
	}
	if len(b.written) != 2 || b.written["c"].Embedding == nil {
		t.Errorf("expected only the prepared batch written, got %v", b.written)
	}
	if len(committed) != 1 || committed[0] != 1 {
		t.Errorf("expected commit hook for batch 1 only, got %v", committed)
	}
}

func TestUpsertBatch_DefaultSize(t *testing.T) {
	s := New(newMockBackend(), batch.NewRunner(1, zap.NewNop()), 0, 2, zap.NewNop())
	if s.BatchSize() != DefaultBatchSize {
		t.Errorf("expected %d, got %d", DefaultBatchSize, s.BatchSize())
	}
}

func TestUpsert_RejectsWrongDimension(t *testing.T) {
	b := newMockBackend()
	_, err := newService(b, 10).Upsert(context.Background(), "venues", []domvector.Record{
		{ID: "a", Embedding: []float32{1, 2, 3}},
	})
	if !errors.Is(err, domain.ErrVectorStoreWrite) {
		t.Errorf("expected ErrVectorStoreWrite, got %v", err)
	}
	if len(b.written) != 0 {
		t.Error("nothing should be written")
	}
}

func TestUpsert_RecordsMetrics(t *testing.T) {
	okBefore := testutil.ToFloat64(metrics.VectorBatchesTotal.WithLabelValues("mock", "ok"))
	if _, err := newService(newMockBackend(), 10).Upsert(context.Background(), "venues", records("a")); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(metrics.VectorBatchesTotal.WithLabelValues("mock", "ok")); got != okBefore+1 {
		t.Errorf("expected ok counter to increase, got %v", got)
	}
}

func TestQuery_SortsDropsAndTruncates(t *testing.T) {
	b := newMockBackend()
	b.matches = []domvector.Match{
		{ID: "low", Score: 0.2, Metadata: map[string]string{"city": "nyc"}},
		{ID: "wrong-city", Score: 0.99, Metadata: map[string]string{"city": "la"}},
		{ID: "high", Score: 0.9, Metadata: map[string]string{"city": "nyc"}},
		{ID: "no-meta", Score: 0.5},
	}

	got, err := newService(b, 10).Query(context.Background(), domvector.Query{
		Namespace: "venues", Vector: []float32{1, 0}, TopK: 2, Filter: cityFilter(t, "nyc"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "high" || got[1].ID != "no-meta" {
		t.Errorf("unexpected matches: %+v", got)
	}
}

func TestQuery_StoreError(t *testing.T) {
	b := newMockBackend()
	b.queryErr = errors.New("timeout")
	_, err := newService(b, 10).Query(context.Background(), domvector.Query{Namespace: "venues", TopK: 1})
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestQuery_InvalidTopK(t *testing.T) {
	_, err := newService(newMockBackend(), 10).Query(context.Background(), domvector.Query{Namespace: "venues"})
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestEnsureNamespace_PassesDimension(t *testing.T) {
	b := newMockBackend()
	if err := newService(b, 10).EnsureNamespace(context.Background(), "venues"); err != nil {
		t.Fatal(err)
	}
	if b.ensured != 2 {
		t.Errorf("expected dim 2, got %d", b.ensured)
	}
}
