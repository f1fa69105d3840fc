package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/metrics"
)

type SearchExecutor interface {
	Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*executor.SearchResult, error)
}

// Index is the engine surface the handler reads from and appends to.
type Index interface {
	Snapshot() *index.Snapshot
	IndexDocuments(ctx context.Context, texts []string) (index.IngestResult, error)
}

// Recorder receives one event per completed search.
type Recorder interface {
	Record(event analytics.SearchEvent)
}

type Handler struct {
	executor     SearchExecutor
	index        Index
	cache        *cache.QueryCache
	recorder     Recorder
	limits       validator.Limits
	metrics      *metrics.Metrics
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

// New wires a handler. queryCache and m may be nil.
func New(exec SearchExecutor, idx Index, queryCache *cache.QueryCache, m *metrics.Metrics, defaultLimit, maxResults int) *Handler {
	return &Handler{
		executor:     exec,
		index:        idx,
		cache:        queryCache,
		metrics:      m,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       logger.WithComponent("search-handler"),
	}
}

// SetRecorder enables search analytics.
func (h *Handler) SetRecorder(r Recorder) {
	h.recorder = r
}

// SetLimits bounds batches accepted by POST /api/v1/documents.
func (h *Handler) SetLimits(limits validator.Limits) {
	h.limits = limits
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/score", h.Score)
	mux.HandleFunc("GET /api/v1/scores", h.Scores)
	mux.HandleFunc("GET /api/v1/index", h.Index)
	mux.HandleFunc("GET /api/v1/documents/{id}", h.Document)
	mux.HandleFunc("POST /api/v1/documents", h.AddDocuments)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	limit := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > h.maxResults {
			parsed = h.maxResults
		}
		limit = parsed
	}

	plan := parser.Parse(query, r.URL.Query().Get("exclude"))
	if plan.Empty() {
		h.writeJSON(w, http.StatusOK, &executor.SearchResult{
			Query:     query,
			Results:   []executor.Hit{},
			TermStats: map[string]int{},
		})
		return
	}

	var result *executor.SearchResult
	var err error
	cacheHit := false
	if h.cache != nil {
		generation := h.index.Snapshot().Generation()
		result, cacheHit, err = h.cache.GetOrCompute(ctx, generation, plan, limit, func() (*executor.SearchResult, error) {
			return h.executor.Execute(ctx, plan, limit)
		})
	} else {
		result, err = h.executor.Execute(ctx, plan, limit)
	}

	if err != nil {
		log.Error("search execution failed", "query", query, "error", err)
		h.observeSearch("error", cacheHit, start, 0)
		h.writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	resultType := "hit"
	if result.TotalHits == 0 {
		resultType = "zero_result"
	}
	h.observeSearch(resultType, cacheHit, start, result.TotalHits)
	if h.recorder != nil {
		h.recorder.Record(analytics.SearchEvent{
			Query:     query,
			Terms:     plan.Terms,
			Exclude:   plan.Exclude,
			TotalHits: result.TotalHits,
			Returned:  len(result.Results),
			LatencyMs: time.Since(start).Milliseconds(),
			CacheHit:  cacheHit,
			Timestamp: start.UTC(),
			RequestID: logger.RequestID(ctx),
		})
	}
	log.Info("search completed",
		"query", query,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", cacheHit,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	h.writeJSON(w, http.StatusOK, result)
}

type scoreResponse struct {
	Term  string  `json:"term"`
	DocID int     `json:"doc_id"`
	Score float64 `json:"score"`
}

// Score returns the TF-IDF of one term in one document. Unindexed terms are
// reported as 404 rather than a zero score.
func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("term")
	if term == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'term' is required")
		return
	}
	docID, err := strconv.Atoi(r.URL.Query().Get("doc"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "query parameter 'doc' must be an integer")
		return
	}

	score, err := ranker.Score(h.index.Snapshot(), term, docID)
	if err != nil {
		h.countScore(err)
		h.writeAppError(w, err)
		return
	}
	h.countScore(nil)
	h.writeJSON(w, http.StatusOK, scoreResponse{Term: term, DocID: docID, Score: score})
}

// Scores lists the TF-IDF of a term against every document.
func (h *Handler) Scores(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("term")
	if term == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'term' is required")
		return
	}
	scores, err := ranker.ScoreAll(h.index.Snapshot(), term)
	if err != nil {
		h.countScore(err)
		h.writeAppError(w, err)
		return
	}
	h.countScore(nil)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"term":   term,
		"scores": scores,
	})
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	snap := h.index.Snapshot()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"generation": snap.Generation(),
		"documents":  snap.NumDocs(),
		"stop_words": tokenizer.StopWords(),
		"terms":      snap.Entries(),
	})
}

func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	docID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "document id must be an integer")
		return
	}
	snap := h.index.Snapshot()
	text, err := snap.Document(docID)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	length, _ := snap.DocLength(docID)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"doc_id": docID,
		"text":   text,
		"length": length,
	})
}

// AddDocuments appends a batch directly, bypassing the ingestion pipeline.
func (h *Handler) AddDocuments(w http.ResponseWriter, r *http.Request) {
	var req ingestion.IngestRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.limits.MaxBody())).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validator.ValidateIngestRequest(&req, h.limits); err != nil {
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.index.IndexDocuments(r.Context(), req.Documents)
	if err != nil {
		h.writeAppError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]any{
		"doc_ids":    res.IDs(),
		"generation": res.Snapshot.Generation(),
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) observeSearch(resultType string, cacheHit bool, start time.Time, totalHits int) {
	if h.metrics == nil {
		return
	}
	cacheStatus := "miss"
	if cacheHit {
		cacheStatus = "hit"
		h.metrics.CacheHitsTotal.Inc()
	} else if h.cache != nil {
		h.metrics.CacheMissesTotal.Inc()
	} else {
		cacheStatus = "disabled"
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())
	h.metrics.SearchResultsCount.Observe(float64(totalHits))
}

func (h *Handler) countScore(err error) {
	if h.metrics == nil {
		return
	}
	outcome := "ok"
	switch {
	case errors.Is(err, apperrors.ErrTermNotIndexed):
		outcome = "term_not_indexed"
	case errors.Is(err, apperrors.ErrDocumentNotFound):
		outcome = "document_not_found"
	case err != nil:
		outcome = "error"
	}
	h.metrics.ScoreRequestsTotal.WithLabelValues(outcome).Inc()
}

func (h *Handler) writeAppError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
		h.writeError(w, status, "internal error")
		return
	}
	h.writeError(w, status, err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
