package validator

import (
	"errors"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/ingestion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var limits = Limits{MaxBatchSize: 3, MaxDocumentSize: 16}

func TestValidateIngestRequest(t *testing.T) {
	tests := []struct {
		name       string
		req        ingestion.IngestRequest
		wantFields []string
	}{
		{"ok", ingestion.IngestRequest{Documents: []string{"Dal Fry", ""}}, nil},
		{"empty batch", ingestion.IngestRequest{}, []string{"documents"}},
		{"too many", ingestion.IngestRequest{Documents: []string{"a", "b", "c", "d"}}, []string{"documents"}},
		{"too large", ingestion.IngestRequest{Documents: []string{"ok", strings.Repeat("x", 17)}}, []string{"documents[1]"}},
		{
			"long key",
			ingestion.IngestRequest{Documents: []string{"Dal"}, IdempotencyKey: strings.Repeat("k", 256)},
			[]string{"idempotency_key"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIngestRequest(&tt.req, limits)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			for _, f := range tt.wantFields {
				assert.Contains(t, vErr.Fields, f)
			}
		})
	}
}

func TestValidationErrorMessageIsStable(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"b": "two", "a": "one"}}
	assert.Equal(t, "a:one; b:two", err.Error())
}

func TestLimitsMaxBody(t *testing.T) {
	assert.Equal(t, int64(4*32), limits.MaxBody())
	assert.Equal(t, int64(8<<20), Limits{}.MaxBody())
}
