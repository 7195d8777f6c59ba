package batch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/personarec/internal/domain"
	dombatch "github.com/kailas-cloud/personarec/internal/domain/batch"
	domvector "github.com/kailas-cloud/personarec/internal/domain/vector"
)

func TestRun_AggregatesAndIsolatesFailures(t *testing.T) {
	boom := errors.New("write rejected")
	spans := domvector.Partition(10, 3)

	report := NewRunner(2, zap.NewNop()).Run(context.Background(), spans, func(_ context.Context, s domvector.Span) dombatch.Result {
		if s.Index == 1 {
			return dombatch.NewFailed(s.Index, s.Len(), boom)
		}
		return dombatch.NewCommitted(s.Index, s.Len(), s.Len())
	})

	if report.Batches() != 4 || report.Attempted() != 10 {
		t.Fatalf("unexpected report shape: %d batches, %d attempted", report.Batches(), report.Attempted())
	}
	if report.Committed() != 7 {
		t.Errorf("expected 7 committed, got %d", report.Committed())
	}
	failures := report.Failures()
	if len(failures) != 1 || failures[0].Index() != 1 {
		t.Fatalf("expected batch 1 to fail, got %v", failures)
	}

	var be *domain.BatchError
	if !errors.As(failures[0].Err(), &be) || be.Index != 1 {
		t.Errorf("expected *domain.BatchError for batch 1, got %v", failures[0].Err())
	}
	if !errors.Is(failures[0].Err(), domain.ErrVectorStoreWrite) || !errors.Is(failures[0].Err(), boom) {
		t.Errorf("failure must unwrap to sentinel and cause: %v", failures[0].Err())
	}
}

func TestRun_RespectsWorkerLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	spans := domvector.Partition(20, 1)

	NewRunner(3, zap.NewNop()).Run(context.Background(), spans, func(_ context.Context, s domvector.Span) dombatch.Result {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		inFlight.Add(-1)
		return dombatch.NewCommitted(s.Index, 1, 1)
	})

	if peak.Load() > 3 {
		t.Errorf("expected at most 3 concurrent batches, got %d", peak.Load())
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	report := NewRunner(1, zap.NewNop()).Run(ctx, domvector.Partition(4, 2), func(_ context.Context, s domvector.Span) dombatch.Result {
		called = true
		return dombatch.NewCommitted(s.Index, s.Len(), s.Len())
	})

	if called {
		t.Error("no batch should start after cancellation")
	}
	if len(report.Failures()) != 2 || report.Committed() != 0 {
		t.Errorf("expected every batch to fail, got %+v", report.Results())
	}
}

func TestRun_Empty(t *testing.T) {
	report := NewRunner(0, zap.NewNop()).Run(context.Background(), nil, nil)
	if report.Batches() != 0 || !report.OK() {
		t.Errorf("expected empty ok report")
	}
}

func TestNewRunner_DefaultWorkers(t *testing.T) {
	if NewRunner(0, zap.NewNop()).Workers() != DefaultWorkers {
		t.Error("expected default worker count")
	}
}
