// Package cache stores search results in Redis keyed by index generation, so
// a rebuilt index never serves results computed from an older corpus.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/logger"
	pkgredis "github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "search:"

// Store is the subset of the Redis client the cache uses.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

type QueryCache struct {
	store  Store
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

func New(store Store, ttl time.Duration) *QueryCache {
	return &QueryCache{
		store:  store,
		ttl:    ttl,
		logger: logger.WithComponent("query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, generation uint64, plan *parser.QueryPlan, limit int) (*executor.SearchResult, bool) {
	key := BuildKey(generation, plan, limit)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "query", plan.RawQuery, "key", key)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, generation uint64, plan *parser.QueryPlan, limit int, result *executor.SearchResult) {
	key := BuildKey(generation, plan, limit)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns a cached result or runs computeFn once per key across
// concurrent callers. The bool reports a cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	generation uint64,
	plan *parser.QueryPlan,
	limit int,
	computeFn func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, generation, plan, limit); ok {
		return result, true, nil
	}
	key := BuildKey(generation, plan, limit)
	val, err, _ := c.group.Do(key, func() (any, error) {
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		// Results computed against a newer snapshot are stored under their own
		// generation, never under the one the caller asked for.
		c.Set(ctx, result.Generation, plan, limit, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.SearchResult), false, nil
}

// Invalidate deletes every cached search result.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BuildKey hashes the generation, the query terms (case preserved) and the
// exclusion list (case-folded and sorted, as the filter ignores case and
// order).
func BuildKey(generation uint64, plan *parser.QueryPlan, limit int) string {
	excludes := make([]string, 0, len(plan.Exclude))
	for _, e := range plan.Exclude {
		excludes = append(excludes, strings.ToLower(e))
	}
	sort.Strings(excludes)
	raw := fmt.Sprintf("gen=%d|q=%s|x=%s|limit=%d",
		generation,
		strings.Join(plan.Terms, "\x1f"),
		strings.Join(excludes, "\x1f"),
		limit,
	)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
