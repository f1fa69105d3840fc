package source

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresLoader reads recipes in insertion order.
type PostgresLoader struct {
	db *sql.DB
}

func NewPostgresLoader(db *sql.DB) *PostgresLoader {
	return &PostgresLoader{db: db}
}

func (l *PostgresLoader) Load(ctx context.Context) (*Corpus, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT name, COALESCE(batch_id::text, '') FROM recipes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying recipes: %w", err)
	}
	defer rows.Close()

	corpus := &Corpus{Documents: []string{}}
	seen := make(map[string]struct{})
	for rows.Next() {
		var name, batchID string
		if err := rows.Scan(&name, &batchID); err != nil {
			return nil, fmt.Errorf("scanning recipe: %w", err)
		}
		corpus.Documents = append(corpus.Documents, name)
		if batchID == "" {
			continue
		}
		if _, ok := seen[batchID]; !ok {
			seen[batchID] = struct{}{}
			corpus.Batches = append(corpus.Batches, batchID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recipes: %w", err)
	}
	return corpus, nil
}
