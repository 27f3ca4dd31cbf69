package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"deal_underwriting/pkg/core/deal"
)

const resultsSchema = `
CREATE TABLE IF NOT EXISTS deal_results (
	fingerprint TEXT PRIMARY KEY,
	id          UUID NOT NULL,
	mode        TEXT NOT NULL,
	results     JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
)`

// PostgresCache stores entries in the deal_results table.
type PostgresCache struct {
	pool *pgxpool.Pool
}

func NewPostgresCache(pool *pgxpool.Pool) *PostgresCache {
	return &PostgresCache{pool: pool}
}

// EnsureSchema creates the results table if it is missing.
func (c *PostgresCache) EnsureSchema(ctx context.Context) error {
	if _, err := c.pool.Exec(ctx, resultsSchema); err != nil {
		return fmt.Errorf("create deal_results: %w", err)
	}
	return nil
}

func (c *PostgresCache) Get(ctx context.Context, key string) (*Entry, error) {
	query := `SELECT id::text, mode, results, created_at FROM deal_results WHERE fingerprint = $1`

	var (
		e       = Entry{Key: key}
		mode    string
		results []byte
	)
	err := c.pool.QueryRow(ctx, query, key).Scan(&e.ID, &mode, &results, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("load cached results: %w", err)
	}
	e.Mode = deal.Mode(mode)
	e.Results = results
	return &e, nil
}

func (c *PostgresCache) Set(ctx context.Context, e *Entry) error {
	query := `
		INSERT INTO deal_results (fingerprint, id, mode, results, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (fingerprint)
		DO UPDATE SET
			id = EXCLUDED.id,
			mode = EXCLUDED.mode,
			results = EXCLUDED.results,
			created_at = EXCLUDED.created_at`

	_, err := c.pool.Exec(ctx, query, e.Key, e.ID, string(e.Mode), []byte(e.Results), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("save cached results: %w", err)
	}
	return nil
}
