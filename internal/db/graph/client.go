// Package graph is the Neo4j client: one driver per process, one session per unit of work.
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/config"
	"go.uber.org/zap"

	"github.com/kailas-cloud/personarec/internal/db"
	"github.com/kailas-cloud/personarec/internal/db/cypher"
)

// Config holds Neo4j connection parameters.
type Config struct {
	URI            string
	Username       string
	Password       string
	Database       string
	MaxPoolSize    int
	AcquireTimeout time.Duration
}

// Client owns the Neo4j driver. Construct once at startup, Close at shutdown.
type Client struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *zap.Logger
}

// NewClient creates the driver. No connection is made until first use or Ping.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("uri is required")
	}

	driver, err := neo4j.NewDriverWithContext(
		cfg.URI,
		neo4j.BasicAuth(cfg.Username, cfg.Password, ""),
		func(c *config.Config) {
			if cfg.MaxPoolSize > 0 {
				c.MaxConnectionPoolSize = cfg.MaxPoolSize
			}
			if cfg.AcquireTimeout > 0 {
				c.ConnectionAcquisitionTimeout = cfg.AcquireTimeout
			}
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create driver: %w", err)
	}

	return &Client{driver: driver, database: cfg.Database, logger: logger}, nil
}

// Ping verifies that the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("verify connectivity: %w", err)
	}
	return nil
}

// WaitForReady polls Ping until the server responds or timeout expires.
func (c *Client) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for graph database: %w", ctx.Err())
		case <-ticker.C:
			if err := c.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// Close releases the driver and its connection pool.
func (c *Client) Close(ctx context.Context) error {
	if err := c.driver.Close(ctx); err != nil {
		return fmt.Errorf("close driver: %w", err)
	}
	return nil
}

// WriteGroups applies each statement group in its own write transaction, all on one session.
// The session is released on every return path. The result has one entry per group;
// nil means the group committed.
func (c *Client) WriteGroups(ctx context.Context, groups [][]cypher.Statement) []error {
	errs := make([]error, len(groups))
	if len(groups) == 0 {
		return errs
	}

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.database,
	})
	defer c.closeSession(ctx, session)

	for i, group := range groups {
		if err := ctx.Err(); err != nil {
			errs[i] = &db.Error{Op: db.OpGraphWrite, Err: err}
			continue
		}
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			for _, st := range group {
				res, err := tx.Run(ctx, st.Text, st.Params)
				if err != nil {
					return nil, err //nolint:wrapcheck // wrapped below with the op name
				}
				if _, err := res.Consume(ctx); err != nil {
					return nil, err //nolint:wrapcheck // wrapped below with the op name
				}
			}
			return nil, nil
		})
		if err != nil {
			errs[i] = &db.Error{Op: db.OpGraphWrite, Err: err}
		}
	}
	return errs
}

// Query runs a read statement on its own session and returns one row per record.
// Node values are flattened to their property maps.
func (c *Client) Query(ctx context.Context, st cypher.Statement) ([]map[string]any, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: c.database,
	})
	defer c.closeSession(ctx, session)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, st.Text, st.Params)
		if err != nil {
			return nil, err //nolint:wrapcheck // wrapped below with the op name
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err //nolint:wrapcheck // wrapped below with the op name
		}
		rows := make([]map[string]any, 0, len(records))
		for _, rec := range records {
			rows = append(rows, toRow(rec))
		}
		return rows, nil
	})
	if err != nil {
		return nil, &db.Error{Op: db.OpGraphRead, Err: err}
	}

	rows, _ := out.([]map[string]any)
	return rows, nil
}

func (c *Client) closeSession(ctx context.Context, s neo4j.SessionWithContext) {
	if err := s.Close(context.WithoutCancel(ctx)); err != nil {
		c.logger.Warn("Failed to close graph session", zap.Error(err))
	}
}

func toRow(rec *neo4j.Record) map[string]any {
	row := make(map[string]any, len(rec.Keys))
	for i, k := range rec.Keys {
		if i >= len(rec.Values) {
			break
		}
		v := rec.Values[i]
		if n, ok := v.(neo4j.Node); ok {
			v = n.Props
		}
		row[k] = v
	}
	return row
}
