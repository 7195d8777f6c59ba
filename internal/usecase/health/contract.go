package health

import "context"

// Pinger checks a store connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker checks an upstream provider.
type Checker interface {
	HealthCheck(ctx context.Context) error
}
