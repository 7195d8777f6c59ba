package inference

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kailas-cloud/personarec/internal/domain"
	"github.com/kailas-cloud/personarec/internal/domain/persona"
	"github.com/kailas-cloud/personarec/internal/resilience"
)

func allLogits(v float64) []Prediction {
	out := make([]Prediction, 0, persona.Count)
	for _, p := range persona.All() {
		out = append(out, Prediction{Label: p.String(), Score: v})
	}
	return out
}

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(Config{BaseURL: url, Timeout: time.Second}, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestScore_AppliesSigmoid(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req predictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if !req.RawScores || !req.Truncate || req.Inputs != "Name: Joe's" {
			t.Errorf("unexpected request body: %+v", req)
		}
		preds := allLogits(0)
		preds[1].Score = math.Log(3) // sigmoid = 0.75
		_ = json.NewEncoder(w).Encode(preds)
	})

	scores, err := newTestClient(t, srv.URL).Score(context.Background(), "Name: Joe's")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := scores.Get(persona.SocialButterfly); got != 0.5 {
		t.Errorf("expected 0.5 for logit 0, got %v", got)
	}
	if got := scores.Get(persona.CulinaryExplorer); math.Abs(got-0.75) > 1e-9 {
		t.Errorf("expected 0.75, got %v", got)
	}
}

func TestScore_GenericLabels(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		preds := make([]Prediction, persona.Count)
		for i := range preds {
			preds[i] = Prediction{Label: "LABEL_" + string(rune('0'+i)), Score: 10}
		}
		preds[7].Score = -10
		_ = json.NewEncoder(w).Encode(preds)
	})

	scores, err := newTestClient(t, srv.URL).Score(context.Background(), "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scores.Get(persona.EcoConsciousConsumer) > 0.01 {
		t.Errorf("LABEL_7 must map to the last persona")
	}
}

func TestScore_MissingLabel(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(allLogits(1)[:7])
	})

	_, err := newTestClient(t, srv.URL).Score(context.Background(), "x")
	if !errors.Is(err, domain.ErrClassifierUnavailable) {
		t.Fatalf("expected ErrClassifierUnavailable, got %v", err)
	}
}

func TestScore_ServerError(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	})

	_, err := newTestClient(t, srv.URL).Score(context.Background(), "x")
	if !errors.Is(err, domain.ErrClassifierUnavailable) {
		t.Fatalf("expected ErrClassifierUnavailable, got %v", err)
	}
}

func TestScore_BreakerFailsFast(t *testing.T) {
	var hits atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	cb := resilience.NewBreaker[[]Prediction](resilience.BreakerConfig{
		Name: "classifier-test", FailureThreshold: 2, Timeout: time.Minute,
	}, zap.NewNop())
	c, err := NewClient(Config{BaseURL: srv.URL}, cb, zap.NewNop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	for i := 0; i < 4; i++ {
		_, _ = c.Score(context.Background(), "x")
	}
	if hits.Load() != 2 {
		t.Errorf("expected the breaker to stop calls after 2 failures, got %d", hits.Load())
	}
}

func TestHealthCheck(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
		}
	})
	if err := newTestClient(t, srv.URL).HealthCheck(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	if _, err := NewClient(Config{}, nil, zap.NewNop()); err == nil {
		t.Fatal("expected error")
	}
}

func TestToScores_RejectsNonFinite(t *testing.T) {
	preds := allLogits(0)
	preds[0].Score = math.Inf(1)
	if _, err := toScores(preds); err == nil {
		t.Fatal("expected error for infinite logit")
	}
}
