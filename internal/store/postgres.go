package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	pkgpostgres "github.com/grantscope/orgsite/pkg/postgres"
)

// PostgresStore keeps resolved URLs in a single table with per-key upserts.
//
// Schema:
//
//	CREATE TABLE IF NOT EXISTS resolved_urls (
//	    name_key   TEXT PRIMARY KEY,
//	    url        TEXT NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type PostgresStore struct {
	client *pkgpostgres.Client
}

// NewPostgresStore wraps an existing PostgreSQL client and ensures the
// table exists.
func NewPostgresStore(ctx context.Context, client *pkgpostgres.Client) (*PostgresStore, error) {
	const ddl = `CREATE TABLE IF NOT EXISTS resolved_urls (
		name_key   TEXT PRIMARY KEY,
		url        TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	if _, err := client.DB.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("creating resolved_urls table: %w", err)
	}
	return &PostgresStore{client: client}, nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	var url string
	err := s.client.DB.QueryRowContext(ctx,
		`SELECT url FROM resolved_urls WHERE name_key = $1`, key).Scan(&url)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("selecting resolved url for %s: %w", key, err)
	}
	return url, true, nil
}

func (s *PostgresStore) Put(ctx context.Context, key, url string) error {
	_, err := s.client.DB.ExecContext(ctx,
		`INSERT INTO resolved_urls (name_key, url) VALUES ($1, $2)
		 ON CONFLICT (name_key) DO UPDATE SET url = EXCLUDED.url, updated_at = now()`,
		key, url)
	if err != nil {
		return fmt.Errorf("upserting resolved url for %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.client.DB.ExecContext(ctx,
		`DELETE FROM resolved_urls WHERE name_key = $1`, key); err != nil {
		return fmt.Errorf("deleting resolved url for %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) ReadAll(ctx context.Context) (map[string]string, error) {
	rows, err := s.client.DB.QueryContext(ctx, `SELECT name_key, url FROM resolved_urls`)
	if err != nil {
		return nil, fmt.Errorf("listing resolved urls: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key, url string
		if err := rows.Scan(&key, &url); err != nil {
			return nil, fmt.Errorf("scanning resolved url row: %w", err)
		}
		out[key] = url
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error { return s.client.Close() }
