// Package postgres opens the connection pool behind the durable
// resolved-URL store.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/grantscope/orgsite/pkg/config"
	_ "github.com/lib/pq"
)

// Client wraps the pool. The store layer issues its statements directly
// against DB; every write there is a single upsert or delete, so no
// transaction helper is needed.
type Client struct {
	DB *sql.DB
}

// New opens the pool and verifies connectivity before returning, so a bad
// DSN fails at startup rather than on the first lookup.
func New(cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres pool: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Client{DB: db}, nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}
