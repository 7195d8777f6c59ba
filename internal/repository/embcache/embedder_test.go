package embcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

func TestEmbed_MissThenHit(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{0.1, 0.2, 0.3}, tokens: 10}
	ce, kv := newTestCachedEmbedder(t, inner)
	ctx := context.Background()

	first, err := ce.Embed(ctx, "cozy ramen bar")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.TotalTokens != 10 {
		t.Errorf("expected TotalTokens=10 on miss, got %d", first.TotalTokens)
	}
	if kv.sets != 1 {
		t.Fatalf("expected one cache write, got %d", kv.sets)
	}
	for _, ttl := range kv.ttls {
		if ttl != time.Hour {
			t.Errorf("expected ttl 1h, got %v", ttl)
		}
	}

	second, err := ce.Embed(ctx, "cozy ramen bar")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.embedCalls != 1 {
		t.Errorf("expected inner to be called once, got %d", inner.embedCalls)
	}
	if second.TotalTokens != 0 || len(second.Embedding) != 3 || second.Embedding[2] != 0.3 {
		t.Errorf("unexpected cached result: %+v", second)
	}
}

func TestEmbed_KeyIncludesModel(t *testing.T) {
	a := New(nil, newMemKV(), "model-a", 0, nil, zap.NewNop())
	b := New(nil, newMemKV(), "model-b", 0, nil, zap.NewNop())
	if a.cacheKey("x") == b.cacheKey("x") {
		t.Error("cache keys must differ across models")
	}
}

func TestEmbed_InnerError(t *testing.T) {
	boom := errors.New("provider down")
	ce, kv := newTestCachedEmbedder(t, &mockEmbedder{err: boom})

	_, err := ce.Embed(context.Background(), "x")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
	if kv.sets != 0 {
		t.Error("failed embeddings must not be cached")
	}
}

func TestEmbed_StoreErrorFallsThrough(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{1}}
	ce, kv := newTestCachedEmbedder(t, inner)
	kv.getErr = errors.New("connection reset")

	if _, err := ce.Embed(context.Background(), "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.embedCalls != 1 {
		t.Error("expected fallthrough to inner embedder")
	}
}

func TestEmbed_CorruptCacheEntryIsMiss(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{1}}
	ce, kv := newTestCachedEmbedder(t, inner)
	kv.data[ce.cacheKey("x")] = []byte{1, 2, 3}

	if _, err := ce.Embed(context.Background(), "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.embedCalls != 1 {
		t.Error("corrupt entry must be treated as a miss")
	}
}

func TestBatchEmbed_MixedHitsMisses(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{0.9}, tokens: 5}
	ce, kv := newTestCachedEmbedder(t, inner)
	kv.data[ce.cacheKey("b")] = vectorToCacheBytes([]float32{0.5})

	res, err := ce.BatchEmbed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.batchCalls != 1 || inner.batchSizes[0] != 2 {
		t.Fatalf("expected one batch of 2 misses, got %v", inner.batchSizes)
	}
	if res.Embeddings[0][0] != 0.9 || res.Embeddings[1][0] != 0.5 || res.Embeddings[2][0] != 0.9 {
		t.Errorf("embeddings out of order: %v", res.Embeddings)
	}
	if res.TotalTokens != 10 {
		t.Errorf("expected 10 tokens, got %d", res.TotalTokens)
	}
	if kv.sets != 2 {
		t.Errorf("expected 2 cache writes, got %d", kv.sets)
	}
}

func TestBatchEmbed_AllHits(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{0.9}}
	ce, kv := newTestCachedEmbedder(t, inner)
	kv.data[ce.cacheKey("a")] = vectorToCacheBytes([]float32{0.1})

	if _, err := ce.BatchEmbed(context.Background(), []string{"a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.batchCalls != 0 {
		t.Error("expected no provider call when every text is cached")
	}
}

func TestBatchEmbed_InnerError(t *testing.T) {
	boom := errors.New("rate limited")
	ce, _ := newTestCachedEmbedder(t, &mockEmbedder{err: boom})
	if _, err := ce.BatchEmbed(context.Background(), []string{"a"}); !errors.Is(err, boom) {
		t.Errorf("expected wrapped error, got %v", err)
	}
}

func TestBatchEmbed_Empty(t *testing.T) {
	ce, _ := newTestCachedEmbedder(t, &mockEmbedder{})
	res, err := ce.BatchEmbed(context.Background(), nil)
	if err != nil || len(res.Embeddings) != 0 {
		t.Errorf("unexpected result %+v, %v", res, err)
	}
}

func TestCacheCounter(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "t_cache_total"}, []string{"result"})
	inner := &mockEmbedder{vec: []float32{1}}
	ce := New(inner, newMemKV(), "m", 0, counter, zap.NewNop())

	_, _ = ce.Embed(context.Background(), "x")
	_, _ = ce.Embed(context.Background(), "x")

	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 1 {
		t.Errorf("expected 1 hit, got %v", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 1 {
		t.Errorf("expected 1 miss, got %v", got)
	}
}
