// Package ingestion defines the request/response types and Kafka event schema
// of the recipe ingestion pipeline.
package ingestion

import "time"

// IngestRequest is the JSON body accepted by the ingestion HTTP endpoint.
// Each document is the plain text of one recipe (name or ingredient list).
type IngestRequest struct {
	Documents      []string `json:"documents"`
	IdempotencyKey string   `json:"idempotency_key"`
}

// IngestResponse is returned once a batch is persisted and queued.
type IngestResponse struct {
	BatchID string `json:"batch_id"`
	Count   int    `json:"count"`
	Status  string `json:"status"`
}

// IngestEvent is the Kafka payload consumed by the searcher. Documents keep
// the order in which they were submitted; the searcher assigns IDs in that
// order.
type IngestEvent struct {
	BatchID    string    `json:"batch_id"`
	Documents  []string  `json:"documents"`
	IngestedAt time.Time `json:"ingested_at"`
}

const (
	StatusQueued = "QUEUED"
)
