package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"caregate/internal/platform/config"
)

// Client wraps a pgx connection pool with health checking capabilities.
// Connection retry for transient failures is handled by pgxpool itself;
// callers do not implement their own connection-level retries.
type Client struct {
	Pool *pgxpool.Pool
}

// New creates a pooled Postgres client from the provided configuration.
// Returns nil if the URL is empty (in-memory stores are used instead).
func New(ctx context.Context, cfg config.PostgresConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	pool, err := pgxpool.New(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return &Client{Pool: pool}, nil
}

// Health checks if the database connection is healthy.
func (c *Client) Health(ctx context.Context) error {
	return c.Pool.Ping(ctx)
}

// Close releases the connection pool.
func (c *Client) Close() {
	c.Pool.Close()
}
