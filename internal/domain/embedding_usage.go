package domain

import "context"

type embeddingUsageKey struct{}

// EmbeddingUsage accumulates the tokens spent embedding query text for one request.
// The HTTP handler installs it, the embedding decorator fills it, and the handler
// reports it in a response header.
type EmbeddingUsage struct {
	TotalTokens int
	Used        bool // set even on cache hits that cost 0 tokens
}

// NewContextWithUsage returns a context carrying a fresh usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := &EmbeddingUsage{}
	return context.WithValue(ctx, embeddingUsageKey{}, u), u
}

// UsageFromContext returns the collector or nil.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(embeddingUsageKey{}).(*EmbeddingUsage)
	return u
}

// AddTokens records consumed tokens. Safe on a nil receiver.
func (u *EmbeddingUsage) AddTokens(n int) {
	if u == nil {
		return
	}
	u.TotalTokens += n
	u.Used = true
}
