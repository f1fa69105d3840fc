// Package publisher persists recipe batches to PostgreSQL and publishes
// ingest events to Kafka for the searcher to index.
package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/metrics"
)

// StatusPersisted means the batch is stored but the event was not published;
// the searcher picks it up on its next full load.
const StatusPersisted = "PERSISTED"

// Store persists batches.
type Store interface {
	// FindBatch returns the batch recorded under key, or nil.
	FindBatch(ctx context.Context, idempotencyKey string) (*ingestion.IngestResponse, error)
	// InsertBatch stores documents in order and returns the new batch ID.
	InsertBatch(ctx context.Context, idempotencyKey string, documents []string) (string, error)
	// SetStatus records the delivery status of a stored batch so replays
	// report it. New batches start as ingestion.StatusQueued.
	SetStatus(ctx context.Context, batchID, status string) error
}

// EventPublisher delivers ingest events.
type EventPublisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Publisher coordinates batch persistence and Kafka event production.
type Publisher struct {
	store    Store
	producer EventPublisher
	metrics  *metrics.Metrics
	now      func() time.Time
	logger   *slog.Logger
}

// New creates a Publisher. m may be nil.
func New(store Store, producer EventPublisher, m *metrics.Metrics) *Publisher {
	return &Publisher{
		store:    store,
		producer: producer,
		metrics:  m,
		now:      time.Now,
		logger:   logger.WithComponent("publisher"),
	}
}

// Ingest persists the batch and publishes one IngestEvent. A repeated
// idempotency key returns the original batch without re-inserting.
func (p *Publisher) Ingest(ctx context.Context, req *ingestion.IngestRequest) (*ingestion.IngestResponse, error) {
	if req.IdempotencyKey != "" {
		existing, err := p.store.FindBatch(ctx, req.IdempotencyKey)
		if err != nil {
			p.count("error", 0)
			return nil, fmt.Errorf("checking idempotency key: %w", err)
		}
		if existing != nil {
			p.logger.Info("duplicate ingestion detected",
				"idempotency_key", req.IdempotencyKey,
				"batch_id", existing.BatchID,
			)
			p.count("duplicate", existing.Count)
			return existing, nil
		}
	}

	batchID, err := p.store.InsertBatch(ctx, req.IdempotencyKey, req.Documents)
	if err != nil {
		p.count("error", len(req.Documents))
		return nil, fmt.Errorf("inserting batch: %w", err)
	}

	resp := &ingestion.IngestResponse{
		BatchID: batchID,
		Count:   len(req.Documents),
		Status:  ingestion.StatusQueued,
	}
	event := kafka.Event{
		Key: batchID,
		Value: ingestion.IngestEvent{
			BatchID:    batchID,
			Documents:  req.Documents,
			IngestedAt: p.now().UTC(),
		},
	}
	if requestID := logger.RequestID(ctx); requestID != "" {
		event.Headers = map[string]string{"request_id": requestID}
	}
	if err := p.producer.Publish(ctx, event); err != nil {
		p.logger.Error("failed to publish to kafka, batch awaits next full load",
			"batch_id", batchID,
			"error", err,
		)
		resp.Status = StatusPersisted
		if err := p.store.SetStatus(ctx, batchID, StatusPersisted); err != nil {
			p.logger.Warn("failed to record batch status",
				"batch_id", batchID,
				"status", StatusPersisted,
				"error", err,
			)
		}
	}
	p.count(strings.ToLower(resp.Status), resp.Count)
	return resp, nil
}

func (p *Publisher) count(status string, docs int) {
	if p.metrics == nil {
		return
	}
	p.metrics.DocsIngestedTotal.WithLabelValues(status).Add(float64(docs))
}
