package publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	batches   map[string]*ingestion.IngestResponse
	keys      map[string]string
	docs      []string
	next      int
	err       error
	statusErr error
}

func newMemStore() *memStore {
	return &memStore{
		batches: make(map[string]*ingestion.IngestResponse),
		keys:    make(map[string]string),
	}
}

func (s *memStore) FindBatch(_ context.Context, key string) (*ingestion.IngestResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	id, ok := s.keys[key]
	if !ok {
		return nil, nil
	}
	resp := *s.batches[id]
	return &resp, nil
}

func (s *memStore) InsertBatch(_ context.Context, key string, documents []string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.next++
	id := "batch-" + string(rune('0'+s.next))
	s.docs = append(s.docs, documents...)
	s.batches[id] = &ingestion.IngestResponse{BatchID: id, Count: len(documents), Status: ingestion.StatusQueued}
	if key != "" {
		s.keys[key] = id
	}
	return id, nil
}

func (s *memStore) SetStatus(_ context.Context, batchID, status string) error {
	if s.statusErr != nil {
		return s.statusErr
	}
	b, ok := s.batches[batchID]
	if !ok {
		return errors.New("batch " + batchID + " not found")
	}
	b.Status = status
	return nil
}

type recordingProducer struct {
	events []kafka.Event
	err    error
}

func (p *recordingProducer) Publish(_ context.Context, event kafka.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func TestIngestPersistsAndPublishes(t *testing.T) {
	store, producer := newMemStore(), &recordingProducer{}
	p := New(store, producer, metrics.NewUnregistered())
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	ctx := logger.WithRequestID(context.Background(), "req-1")
	resp, err := p.Ingest(ctx, &ingestion.IngestRequest{Documents: []string{"Chicken Curry", "Egg Curry"}})
	require.NoError(t, err)
	assert.Equal(t, "batch-1", resp.BatchID)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, ingestion.StatusQueued, resp.Status)

	require.Len(t, producer.events, 1)
	event := producer.events[0]
	assert.Equal(t, "batch-1", event.Key)
	assert.Equal(t, "req-1", event.Headers["request_id"])
	assert.Equal(t, ingestion.IngestEvent{
		BatchID:    "batch-1",
		Documents:  []string{"Chicken Curry", "Egg Curry"},
		IngestedAt: fixed,
	}, event.Value)
}

func TestIngestIdempotent(t *testing.T) {
	store, producer := newMemStore(), &recordingProducer{}
	p := New(store, producer, nil)

	req := &ingestion.IngestRequest{Documents: []string{"Dal Fry"}, IdempotencyKey: "k1"}
	first, err := p.Ingest(context.Background(), req)
	require.NoError(t, err)
	second, err := p.Ingest(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.BatchID, second.BatchID)
	assert.Len(t, store.docs, 1)
	assert.Len(t, producer.events, 1)
}

func TestIngestPublishFailureKeepsBatch(t *testing.T) {
	store := newMemStore()
	p := New(store, &recordingProducer{err: errors.New("broker down")}, nil)

	resp, err := p.Ingest(context.Background(), &ingestion.IngestRequest{Documents: []string{"Dal Fry"}})
	require.NoError(t, err)
	assert.Equal(t, StatusPersisted, resp.Status)
	assert.Len(t, store.docs, 1)
	assert.Equal(t, StatusPersisted, store.batches[resp.BatchID].Status)
}

func TestIngestReplayReportsStoredStatus(t *testing.T) {
	store := newMemStore()
	producer := &recordingProducer{err: errors.New("broker down")}
	p := New(store, producer, nil)
	req := &ingestion.IngestRequest{Documents: []string{"Dal Fry"}, IdempotencyKey: "k1"}

	first, err := p.Ingest(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, StatusPersisted, first.Status)

	producer.err = nil
	replay, err := p.Ingest(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.BatchID, replay.BatchID)
	assert.Equal(t, StatusPersisted, replay.Status)
	assert.Empty(t, producer.events)

	queued, err := p.Ingest(context.Background(), &ingestion.IngestRequest{Documents: []string{"Rice"}, IdempotencyKey: "k2"})
	require.NoError(t, err)
	replay, err = p.Ingest(context.Background(), &ingestion.IngestRequest{Documents: []string{"Rice"}, IdempotencyKey: "k2"})
	require.NoError(t, err)
	assert.Equal(t, queued.BatchID, replay.BatchID)
	assert.Equal(t, ingestion.StatusQueued, replay.Status)
}

func TestIngestStatusUpdateFailureStillReportsPersisted(t *testing.T) {
	store := newMemStore()
	store.statusErr = errors.New("connection reset")
	p := New(store, &recordingProducer{err: errors.New("broker down")}, nil)

	resp, err := p.Ingest(context.Background(), &ingestion.IngestRequest{Documents: []string{"Dal Fry"}})
	require.NoError(t, err)
	assert.Equal(t, StatusPersisted, resp.Status)
}

func TestIngestStoreFailure(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("connection reset")
	producer := &recordingProducer{}
	p := New(store, producer, nil)

	_, err := p.Ingest(context.Background(), &ingestion.IngestRequest{Documents: []string{"Dal"}, IdempotencyKey: "k"})
	assert.ErrorContains(t, err, "connection reset")
	_, err = p.Ingest(context.Background(), &ingestion.IngestRequest{Documents: []string{"Dal"}})
	assert.ErrorContains(t, err, "inserting batch")
	assert.Empty(t, producer.events)
}

func TestNullableString(t *testing.T) {
	assert.False(t, nullableString("").Valid)
	assert.Equal(t, "k", nullableString("k").String)
}
