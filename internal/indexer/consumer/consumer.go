// Package consumer reads ingestion events from Kafka and appends their
// documents to the indexer engine.
package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/logger"
)

// Indexer is the engine surface the consumer appends to.
type Indexer interface {
	IndexDocuments(ctx context.Context, texts []string) (index.IngestResult, error)
}

// Starter runs a consume loop until ctx is cancelled.
type Starter interface {
	Start(ctx context.Context) error
}

// IndexConsumer wraps a Kafka consumer to drive the indexing pipeline.
type IndexConsumer struct {
	consumer Starter
	logger   *slog.Logger
}

func New(kafkaConsumer Starter) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   logger.WithComponent("index-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.consumer.Start(ctx)
}

// BatchTracker remembers which ingestion batches are already in the index.
type BatchTracker struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewBatchTracker seeds the tracker with batches loaded at startup.
func NewBatchTracker(loaded []string) *BatchTracker {
	t := &BatchTracker{seen: make(map[string]struct{}, len(loaded))}
	for _, id := range loaded {
		t.seen[id] = struct{}{}
	}
	return t
}

func (t *BatchTracker) Seen(batchID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.seen[batchID]
	return ok
}

func (t *BatchTracker) Mark(batchID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen[batchID] = struct{}{}
}

// HandleMessage returns a Kafka MessageHandler that appends each event's
// documents to idx. Undecodable payloads are logged and acknowledged;
// redelivered batches are skipped. tracker may be nil.
func HandleMessage(idx Indexer, tracker *BatchTracker) kafka.MessageHandler {
	log := logger.WithComponent("index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ingestion.IngestEvent](value)
		if err != nil {
			log.Error("failed to decode ingest event",
				"error", err,
				"key", string(key),
			)
			return nil
		}
		if event.Documents == nil {
			log.Warn("ingest event without documents", "batch_id", event.BatchID)
			return nil
		}
		if tracker != nil && event.BatchID != "" && tracker.Seen(event.BatchID) {
			log.Debug("batch already indexed", "batch_id", event.BatchID)
			return nil
		}

		res, err := idx.IndexDocuments(ctx, event.Documents)
		if err != nil {
			return fmt.Errorf("indexing batch %s: %w", event.BatchID, err)
		}
		if tracker != nil && event.BatchID != "" {
			tracker.Mark(event.BatchID)
		}
		log.Info("batch indexed",
			"batch_id", event.BatchID,
			"first_doc_id", res.FirstID,
			"count", res.Count,
			"generation", res.Snapshot.Generation(),
		)
		return nil
	}
}
