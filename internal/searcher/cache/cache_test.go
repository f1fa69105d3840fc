package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/config"
	pkgredis "github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/redis"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestCache(t *testing.T) (*QueryCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := pkgredis.NewClient(context.Background(), config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return New(client, time.Minute), mr
}

func sampleResult(generation uint64) *executor.SearchResult {
	return &executor.SearchResult{
		Query:      "Chicken Curry",
		TotalHits:  1,
		Results:    []executor.Hit{{DocID: 1, Text: "Chicken Curry", Score: 0.81}},
		TermStats:  map[string]int{"Chicken": 2, "Curry": 2},
		Generation: generation,
	}
}

func TestSetGet(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()
	plan := parser.Parse("Chicken Curry", "")

	_, ok := c.Get(ctx, 1, plan, 10)
	assert.False(t, ok)

	c.Set(ctx, 1, plan, 10, sampleResult(1))
	got, ok := c.Get(ctx, 1, plan, 10)
	require.True(t, ok)
	assert.Equal(t, sampleResult(1), got)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestGenerationChangesKey(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()
	plan := parser.Parse("Chicken Curry", "")

	c.Set(ctx, 1, plan, 10, sampleResult(1))
	_, ok := c.Get(ctx, 2, plan, 10)
	assert.False(t, ok)
}

func TestBuildKey(t *testing.T) {
	base := BuildKey(1, parser.Parse("Chicken Curry", "peanut,cashew"), 10)

	assert.Equal(t, base, BuildKey(1, parser.Parse("Chicken  Curry", "Cashew, PEANUT"), 10))
	assert.NotEqual(t, base, BuildKey(1, parser.Parse("chicken Curry", "peanut,cashew"), 10))
	assert.NotEqual(t, base, BuildKey(1, parser.Parse("Curry Chicken", "peanut,cashew"), 10))
	assert.NotEqual(t, base, BuildKey(1, parser.Parse("Chicken Curry", "peanut"), 10))
	assert.NotEqual(t, base, BuildKey(1, parser.Parse("Chicken Curry", "peanut,cashew"), 5))
	assert.NotEqual(t, base, BuildKey(2, parser.Parse("Chicken Curry", "peanut,cashew"), 10))
	assert.Contains(t, base, keyPrefix)
}

func TestGetOrComputeSingleFlight(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()
	plan := parser.Parse("Chicken Curry", "")

	var calls atomic.Int32
	release := make(chan struct{})
	compute := func() (*executor.SearchResult, error) {
		calls.Add(1)
		<-release
		return sampleResult(1), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, _, err := c.GetOrCompute(ctx, 1, plan, 10, compute)
			assert.NoError(t, err)
			assert.Equal(t, 1, res.TotalHits)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(5))
	res, hit, err := c.GetOrCompute(ctx, 1, plan, 10, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, sampleResult(1), res)
}

func TestGetOrComputeStoresUnderResultGeneration(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()
	plan := parser.Parse("Dal", "")

	_, hit, err := c.GetOrCompute(ctx, 1, plan, 10, func() (*executor.SearchResult, error) {
		return sampleResult(2), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)

	_, ok := c.Get(ctx, 1, plan, 10)
	assert.False(t, ok)
	_, ok = c.Get(ctx, 2, plan, 10)
	assert.True(t, ok)
}

func TestInvalidate(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()

	c.Set(ctx, 1, parser.Parse("Dal", ""), 10, sampleResult(1))
	c.Set(ctx, 1, parser.Parse("Curry", ""), 10, sampleResult(1))
	require.NoError(t, mr.Set("unrelated", "keep"))

	require.NoError(t, c.Invalidate(ctx))
	assert.Len(t, mr.Keys(), 1)
	assert.True(t, mr.Exists("unrelated"))
}

func TestGetSurvivesRedisOutage(t *testing.T) {
	c, mr := setupTestCache(t)
	mr.Close()

	_, ok := c.Get(context.Background(), 1, parser.Parse("Dal", ""), 10)
	assert.False(t, ok)
}
