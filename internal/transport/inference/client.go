// Package inference is the HTTP client for the persona classification server.
// The server speaks the text-embeddings-inference /predict protocol.
package inference

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/personarec/internal/domain"
	"github.com/kailas-cloud/personarec/internal/domain/persona"
	"github.com/kailas-cloud/personarec/internal/metrics"
)

const maxErrorBody = 512

// Config holds classifier server settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
	RPS     float64 // 0 disables client-side rate limiting
	Burst   int
}

// Prediction is one label of the /predict response. Score is a raw logit.
type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type predictRequest struct {
	Inputs    string `json:"inputs"`
	RawScores bool   `json:"raw_scores"`
	Truncate  bool   `json:"truncate"`
}

// Client calls the classifier server.
type Client struct {
	http    *http.Client
	baseURL string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]Prediction]
	logger  *zap.Logger
}

// NewClient creates a classifier client. breaker may be nil.
func NewClient(cfg Config, breaker *gobreaker.CircuitBreaker[[]Prediction], logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RPS > 0 {
		burst := max(cfg.Burst, 1)
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}

	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		limiter: limiter,
		breaker: breaker,
		logger:  logger,
	}, nil
}

// Score classifies a venue document into persona scores.
// Every persona label must be present in the response.
func (c *Client) Score(ctx context.Context, document string) (persona.Scores, error) {
	start := time.Now()
	preds, err := c.predict(ctx, document)
	metrics.ClassifierRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ClassifierRequestsTotal.WithLabelValues("error").Inc()
		return persona.Scores{}, fmt.Errorf("predict: %w: %w", err, domain.ErrClassifierUnavailable)
	}

	scores, err := toScores(preds)
	if err != nil {
		metrics.ClassifierRequestsTotal.WithLabelValues("invalid").Inc()
		return persona.Scores{}, fmt.Errorf("%w: %w", err, domain.ErrClassifierUnavailable)
	}
	metrics.ClassifierRequestsTotal.WithLabelValues("success").Inc()
	return scores, nil
}

// HealthCheck calls GET /health.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("health request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) predict(ctx context.Context, document string) ([]Prediction, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	if c.breaker == nil {
		return c.post(ctx, document)
	}
	return c.breaker.Execute(func() ([]Prediction, error) { //nolint:wrapcheck // wrapped by Score
		return c.post(ctx, document)
	})
}

func (c *Client) post(ctx context.Context, document string) ([]Prediction, error) {
	body, err := json.Marshal(predictRequest{Inputs: document, RawScores: true, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var preds []Prediction
	if err := json.NewDecoder(resp.Body).Decode(&preds); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return preds, nil
}

// toScores maps labels to personas and applies the sigmoid to each logit.
// Labels are persona identifiers or the generic LABEL_<n> form in persona order.
func toScores(preds []Prediction) (persona.Scores, error) {
	weights := make(map[persona.Persona]float64, persona.Count)
	for _, p := range preds {
		id, ok := labelToPersona(p.Label)
		if !ok {
			continue
		}
		if math.IsNaN(p.Score) || math.IsInf(p.Score, 0) {
			return persona.Scores{}, fmt.Errorf("label %s: non-finite score", p.Label)
		}
		weights[id] = persona.Sigmoid(p.Score)
	}
	scores, err := persona.NewScores(weights)
	if err != nil {
		return persona.Scores{}, fmt.Errorf("incomplete prediction: %w", err)
	}
	return scores, nil
}

func labelToPersona(label string) (persona.Persona, bool) {
	if p, err := persona.Parse(label); err == nil {
		return p, true
	}
	if n, ok := strings.CutPrefix(label, "LABEL_"); ok {
		i, err := strconv.Atoi(n)
		all := persona.All()
		if err == nil && i >= 0 && i < len(all) {
			return all[i], true
		}
	}
	return "", false
}
