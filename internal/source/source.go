// Package source loads the initial recipe corpus the searcher indexes at
// startup, from PostgreSQL or a CSV export.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/resilience"
)

const (
	KindPostgres = "postgres"
	KindCSV      = "csv"
	KindNone     = "none"
)

// Corpus is a loaded document list in ID order. Batches names the ingestion
// batches already contained in Documents.
type Corpus struct {
	Documents []string
	Batches   []string
}

// Loader produces the corpus in a stable order.
type Loader interface {
	Load(ctx context.Context) (*Corpus, error)
}

// New builds the Loader selected by cfg.Kind. db is required for postgres.
func New(cfg config.SourceConfig, db *postgres.Client) (Loader, error) {
	switch cfg.Kind {
	case KindPostgres:
		if db == nil {
			return nil, apperrors.New(apperrors.ErrInvalidInput, 400, "postgres source requires postgres to be enabled")
		}
		return NewPostgresLoader(db.DB), nil
	case KindCSV:
		return NewCSVLoader(cfg.CSVPath, cfg.CSVColumn), nil
	case KindNone, "":
		return emptyLoader{}, nil
	default:
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, 400, "unknown source kind %q", cfg.Kind)
	}
}

// Load runs loader with retries, bounded by timeout when positive.
func Load(ctx context.Context, loader Loader, timeout time.Duration) (*Corpus, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	var corpus *Corpus
	err := resilience.Retry(ctx, "source-load", resilience.RetryConfig{MaxAttempts: 5, InitialDelay: 500 * time.Millisecond}, func() error {
		var err error
		corpus, err = loader.Load(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrSourceUnavailable, err)
	}
	slog.Default().Info("corpus loaded",
		"component", "source",
		"documents", len(corpus.Documents),
		"batches", len(corpus.Batches),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return corpus, nil
}

type emptyLoader struct{}

func (emptyLoader) Load(context.Context) (*Corpus, error) {
	return &Corpus{}, nil
}
