package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/personarec/internal/metrics"
)

func TestBreaker_TripsAfterThreshold(t *testing.T) {
	cb := NewBreaker[int](BreakerConfig{Name: "test-trip", FailureThreshold: 2, Timeout: time.Minute}, zap.NewNop())
	boom := errors.New("down")

	for i := 0; i < 2; i++ {
		if _, err := cb.Execute(func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
			t.Fatalf("call %d: expected provider error, got %v", i, err)
		}
	}

	_, err := cb.Execute(func() (int, error) { return 1, nil })
	if !IsRejected(err) {
		t.Fatalf("expected breaker rejection, got %v", err)
	}
	if cb.State() != gobreaker.StateOpen {
		t.Errorf("expected open state, got %v", cb.State())
	}
	if got := testutil.ToFloat64(metrics.BreakerState.WithLabelValues("test-trip")); got != 2 {
		t.Errorf("expected gauge 2 (open), got %v", got)
	}
}

func TestBreaker_IgnoresCancellation(t *testing.T) {
	cb := NewBreaker[int](BreakerConfig{Name: "test-cancel", FailureThreshold: 1}, zap.NewNop())

	for i := 0; i < 3; i++ {
		_, _ = cb.Execute(func() (int, error) { return 0, context.Canceled })
	}
	if cb.State() != gobreaker.StateClosed {
		t.Errorf("cancellations must not trip the breaker, state=%v", cb.State())
	}
}

func TestBreaker_DefaultThreshold(t *testing.T) {
	cb := NewBreaker[int](BreakerConfig{Name: "test-default"}, zap.NewNop())
	boom := errors.New("down")
	for i := 0; i < 4; i++ {
		_, _ = cb.Execute(func() (int, error) { return 0, boom })
	}
	if cb.State() != gobreaker.StateClosed {
		t.Fatalf("expected closed after 4 failures, got %v", cb.State())
	}
	_, _ = cb.Execute(func() (int, error) { return 0, boom })
	if cb.State() != gobreaker.StateOpen {
		t.Errorf("expected open after 5 failures, got %v", cb.State())
	}
}

func TestIsRejected(t *testing.T) {
	if IsRejected(errors.New("other")) {
		t.Error("plain error is not a rejection")
	}
	if !IsRejected(gobreaker.ErrTooManyRequests) {
		t.Error("too many requests is a rejection")
	}
}
