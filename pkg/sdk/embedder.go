package personarec

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/personarec/internal/domain"
	"github.com/kailas-cloud/personarec/internal/domain/persona"
)

// Embedder converts text to vector embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts in a single API call.
// Optional: if the provided Embedder also implements BatchEmbedder,
// ingestion uses it for every vector batch.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult carries multiple embedding vectors and aggregate token usage.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

// Scorer classifies a rendered venue document into one weight in [0,1] per persona.
// Every persona returned by Personas must be present.
type Scorer interface {
	Score(ctx context.Context, document string) (map[Persona]float64, error)
}

// embedderAdapter wraps the public Embedder to satisfy domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// batchEmbedderAdapter also exposes the native batch call.
type batchEmbedderAdapter struct {
	embedderAdapter
	batch BatchEmbedder
}

func (a *batchEmbedderAdapter) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	r, err := a.batch.BatchEmbed(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   r.Embeddings,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

func adaptEmbedder(e Embedder) domain.Embedder {
	if be, ok := e.(BatchEmbedder); ok {
		return &batchEmbedderAdapter{embedderAdapter: embedderAdapter{inner: e}, batch: be}
	}
	return &embedderAdapter{inner: e}
}

// scorerAdapter validates public scores into persona.Scores.
type scorerAdapter struct {
	inner Scorer
}

func (a *scorerAdapter) Score(ctx context.Context, document string) (persona.Scores, error) {
	m, err := a.inner.Score(ctx, document)
	if err != nil {
		return persona.Scores{}, fmt.Errorf("score: %w", err)
	}
	s, err := persona.NewScores(m)
	if err != nil {
		return persona.Scores{}, fmt.Errorf("score: %w", err)
	}
	return s, nil
}

var errNoScorer = errors.New("personarec: scorer not configured (use WithScorer to ingest)")

// noopScorer fails every call; used when no scorer is configured.
type noopScorer struct{}

func (noopScorer) Score(_ context.Context, _ string) (persona.Scores, error) {
	return persona.Scores{}, errNoScorer
}
