// Package analytics aggregates search activity in memory: query popularity,
// zero-result queries, cache effectiveness and latency percentiles.
package analytics

import "time"

// SearchEvent describes one completed search request.
type SearchEvent struct {
	Query     string    `json:"query"`
	Terms     []string  `json:"terms"`
	Exclude   []string  `json:"exclude,omitempty"`
	TotalHits int       `json:"total_hits"`
	Returned  int       `json:"returned"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}
