// Package indexer owns the recipe corpus and keeps the inverted index in
// step with it.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/metrics"
)

// RebuildHook runs after a new snapshot is published.
type RebuildHook func(ctx context.Context, snap *index.Snapshot)

type Engine struct {
	memIndex *index.MemoryIndex
	metrics  *metrics.Metrics
	logger   *slog.Logger
	hooksMu  sync.RWMutex
	hooks    []RebuildHook
}

// NewEngine creates an empty engine. m may be nil.
func NewEngine(m *metrics.Metrics) *Engine {
	return &Engine{
		memIndex: index.NewMemoryIndex(),
		metrics:  m,
		logger:   logger.WithComponent("indexer"),
	}
}

// OnRebuild registers a hook invoked after every rebuild.
func (e *Engine) OnRebuild(hook RebuildHook) {
	e.hooksMu.Lock()
	defer e.hooksMu.Unlock()
	e.hooks = append(e.hooks, hook)
}

// IndexDocuments appends texts to the corpus and rebuilds the index. Empty
// strings are accepted and contribute no terms.
func (e *Engine) IndexDocuments(ctx context.Context, texts []string) (index.IngestResult, error) {
	if texts == nil {
		return index.IngestResult{}, fmt.Errorf("indexing batch: %w", apperrors.ErrInvalidInput)
	}
	start := time.Now()
	result := e.memIndex.Ingest(texts)
	elapsed := time.Since(start)

	e.record(result.Snapshot, elapsed)
	if e.metrics != nil {
		e.metrics.DocsIndexedTotal.Add(float64(result.Count))
	}
	e.logger.Info("documents indexed",
		"first_id", result.FirstID,
		"count", result.Count,
		"total_docs", result.Snapshot.NumDocs(),
		"terms", result.Snapshot.NumTerms(),
		"generation", result.Snapshot.Generation(),
		"rebuild_ms", elapsed.Milliseconds(),
	)
	e.runHooks(ctx, result.Snapshot)
	return result, nil
}

// Rebuild recomputes the index over the unchanged corpus.
func (e *Engine) Rebuild(ctx context.Context) *index.Snapshot {
	start := time.Now()
	snap := e.memIndex.Rebuild()
	e.record(snap, time.Since(start))
	e.logger.Debug("index rebuilt", "generation", snap.Generation())
	e.runHooks(ctx, snap)
	return snap
}

// Snapshot returns the currently published index.
func (e *Engine) Snapshot() *index.Snapshot {
	return e.memIndex.Snapshot()
}

func (e *Engine) record(snap *index.Snapshot, elapsed time.Duration) {
	if e.metrics == nil {
		return
	}
	e.metrics.IndexRebuildsTotal.Inc()
	e.metrics.IndexRebuildDuration.Observe(elapsed.Seconds())
	e.metrics.IndexDocuments.Set(float64(snap.NumDocs()))
	e.metrics.IndexTerms.Set(float64(snap.NumTerms()))
}

func (e *Engine) runHooks(ctx context.Context, snap *index.Snapshot) {
	e.hooksMu.RLock()
	hooks := make([]RebuildHook, len(e.hooks))
	copy(hooks, e.hooks)
	e.hooksMu.RUnlock()

	for _, hook := range hooks {
		hook(ctx, snap)
	}
}
