package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	calls []string
	err   error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.calls = append(s.calls, text)
	if s.err != nil {
		return EmbeddingResult{}, s.err
	}
	return EmbeddingResult{Embedding: []float32{float32(len(text))}, PromptTokens: 1, TotalTokens: 2}, nil
}

type stubBatchEmbedder struct {
	stubEmbedder
	batches int
}

func (s *stubBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	s.batches++
	out := BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i := range texts {
		out.Embeddings[i] = []float32{1}
	}
	return out, nil
}

func TestBatchEmbedAny_FallsBackToSequential(t *testing.T) {
	inner := &stubEmbedder{}
	res, err := BatchEmbedAny(context.Background(), inner, []string{"a", "bbb"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.calls) != 2 {
		t.Fatalf("expected 2 Embed calls, got %d", len(inner.calls))
	}
	if res.Embeddings[1][0] != 3 {
		t.Errorf("embeddings out of order: %v", res.Embeddings)
	}
	if res.PromptTokens != 2 || res.TotalTokens != 4 {
		t.Errorf("usage not aggregated: %+v", res)
	}
}

func TestBatchEmbedAny_UsesNativeBatch(t *testing.T) {
	inner := &stubBatchEmbedder{}
	if _, err := BatchEmbedAny(context.Background(), inner, []string{"a", "b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.batches != 1 || len(inner.calls) != 0 {
		t.Errorf("expected one batch call, got batches=%d embeds=%d", inner.batches, len(inner.calls))
	}
}

func TestBatchEmbedAny_PropagatesError(t *testing.T) {
	boom := errors.New("provider down")
	_, err := BatchEmbedAny(context.Background(), &stubEmbedder{err: boom}, []string{"a"})
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped provider error, got %v", err)
	}
}

func TestEmbeddingUsage_Context(t *testing.T) {
	if UsageFromContext(context.Background()) != nil {
		t.Fatal("expected nil usage on bare context")
	}
	ctx, u := NewContextWithUsage(context.Background())
	UsageFromContext(ctx).AddTokens(7)
	if u.TotalTokens != 7 || !u.Used {
		t.Errorf("unexpected usage: %+v", u)
	}
	var nilUsage *EmbeddingUsage
	nilUsage.AddTokens(3)
}
