package publisher

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/ingestion"
	apperrors "github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/postgres"
)

// PostgresStore writes batches to the ingest_batches and recipes tables.
type PostgresStore struct {
	db *postgres.Client
}

func NewPostgresStore(db *postgres.Client) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindBatch(ctx context.Context, idempotencyKey string) (*ingestion.IngestResponse, error) {
	var resp ingestion.IngestResponse
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT batch_id::text, doc_count, status FROM ingest_batches WHERE idempotency_key = $1`,
		idempotencyKey,
	).Scan(&resp.BatchID, &resp.Count, &resp.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying by idempotency key: %w", err)
	}
	return &resp, nil
}

// InsertBatch records the batch and its recipes in one transaction. A key
// claimed concurrently by another request yields ErrIdempotencyConflict.
func (s *PostgresStore) InsertBatch(ctx context.Context, idempotencyKey string, documents []string) (string, error) {
	var batchID string
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO ingest_batches (idempotency_key, doc_count)
			VALUES ($1, $2)
			ON CONFLICT (idempotency_key) DO NOTHING
			RETURNING batch_id::text`,
			nullableString(idempotencyKey), len(documents),
		).Scan(&batchID)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.New(apperrors.ErrIdempotencyConflict, http.StatusConflict, "idempotency key already in use")
		}
		if err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO recipes (name, batch_id) VALUES ($1, $2)`)
		if err != nil {
			return fmt.Errorf("preparing recipe insert: %w", err)
		}
		defer stmt.Close()
		for i, doc := range documents {
			if _, err := stmt.ExecContext(ctx, doc, batchID); err != nil {
				return fmt.Errorf("inserting recipe %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return batchID, nil
}

func (s *PostgresStore) SetStatus(ctx context.Context, batchID, status string) error {
	res, err := s.db.DB.ExecContext(ctx,
		`UPDATE ingest_batches SET status = $1 WHERE batch_id = $2::uuid`,
		status, batchID,
	)
	if err != nil {
		return fmt.Errorf("updating batch status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("batch %s not found", batchID)
	}
	return nil
}

// nullableString treats the empty string as NULL so unkeyed batches never
// collide on the unique index.
func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
