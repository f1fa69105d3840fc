// Package validator enforces batch and document size limits on ingestion
// requests and returns per-field error details.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/ingestion"
)

const (
	maxIdempotencyKeyLength = 255
	defaultMaxBody          = 8 << 20
)

// Limits bounds a single ingestion batch.
type Limits struct {
	MaxBatchSize    int
	MaxDocumentSize int
}

// MaxBody bounds a request body to what a maximal valid batch could occupy,
// allowing for JSON quoting and separators.
func (l Limits) MaxBody() int64 {
	if l.MaxBatchSize <= 0 || l.MaxDocumentSize <= 0 {
		return defaultMaxBody
	}
	return int64(l.MaxBatchSize+1) * int64(l.MaxDocumentSize+16)
}

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, field := range keys {
		parts = append(parts, fmt.Sprintf("%s:%s", field, e.Fields[field]))
	}
	return strings.Join(parts, "; ")
}

// ValidateIngestRequest checks the batch against limits. Empty document
// strings are allowed; they simply contribute no terms.
func ValidateIngestRequest(req *ingestion.IngestRequest, limits Limits) error {
	errs := make(map[string]string)

	switch {
	case len(req.Documents) == 0:
		errs["documents"] = "at least one document is required"
	case limits.MaxBatchSize > 0 && len(req.Documents) > limits.MaxBatchSize:
		errs["documents"] = fmt.Sprintf("batch must contain at most %d documents", limits.MaxBatchSize)
	}
	if limits.MaxDocumentSize > 0 {
		for i, doc := range req.Documents {
			if len(doc) > limits.MaxDocumentSize {
				errs[fmt.Sprintf("documents[%d]", i)] = fmt.Sprintf("document must be at most %d bytes", limits.MaxDocumentSize)
			}
		}
	}
	if len(req.IdempotencyKey) > maxIdempotencyKeyLength {
		errs["idempotency_key"] = fmt.Sprintf("idempotency key must be at most %d characters", maxIdempotencyKeyLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
