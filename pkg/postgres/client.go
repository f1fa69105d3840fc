// Package postgres wraps database/sql with the lib/pq driver and provides the
// recipe schema plus a transaction helper.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/config"
	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS ingest_batches (
	batch_id        UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	idempotency_key TEXT UNIQUE,
	doc_count       INTEGER NOT NULL,
	status          TEXT NOT NULL DEFAULT 'QUEUED',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
ALTER TABLE ingest_batches ADD COLUMN IF NOT EXISTS status TEXT NOT NULL DEFAULT 'QUEUED';
CREATE TABLE IF NOT EXISTS recipes (
	id       SERIAL PRIMARY KEY,
	name     TEXT NOT NULL,
	batch_id UUID REFERENCES ingest_batches (batch_id)
);`

type Client struct {
	DB  *sql.DB
	cfg config.PostgresConfig
}

func New(ctx context.Context, cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Client{DB: db, cfg: cfg}, nil
}

// Migrate creates the recipe tables if they do not exist.
func (c *Client) Migrate(ctx context.Context) error {
	if _, err := c.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *Client) Close() error {
	return c.DB.Close()
}

func (c *Client) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back transaction after error %v: %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
