package executor

import (
	"context"
	"math"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/searcher/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var recipes = []string{"Chilli Chicken", "Chicken Curry", "Vegetable Curry"}

func TestEvaluate(t *testing.T) {
	snap := index.Build(recipes, 1)

	tests := []struct {
		name  string
		query string
		want  []int
	}{
		{"single term", "Chicken", []int{0, 1}},
		{"conjunction", "Chicken Curry", []int{1}},
		{"order irrelevant", "Curry Chicken", []int{1}},
		{"unindexed single", "Paneer", []int{}},
		{"unindexed first", "Paneer Curry", []int{}},
		{"unindexed later", "Curry Paneer", []int{}},
		{"case sensitive", "chicken", []int{}},
		{"stop word never indexed", "Chicken the", []int{}},
		{"disjoint", "Chilli Vegetable", []int{}},
		{"empty", "", []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(snap, parser.Parse(tt.query, "").Terms)
			assert.Equal(t, tt.want, got.Sorted())
		})
	}
}

func TestEvaluateIsConjunctive(t *testing.T) {
	snap := index.Build([]string{
		"Paneer Butter Masala",
		"Butter Chicken",
		"Paneer Tikka",
		"Masala Dosa",
		"Butter Naan",
	}, 1)
	terms := append(snap.Terms(), "Missing", "butter")

	for _, a := range terms {
		for _, b := range terms {
			pair := Evaluate(snap, []string{a, b})
			want := Evaluate(snap, []string{a}).Intersect(Evaluate(snap, []string{b}))
			assert.True(t, want.Equal(pair), "%s %s", a, b)
			for id := range pair {
				assert.Less(t, id, snap.NumDocs())
			}
		}
	}
}

type staticSource struct {
	snap *index.Snapshot
}

func (s staticSource) Snapshot() *index.Snapshot { return s.snap }

func TestExecuteRanksHits(t *testing.T) {
	snap := index.Build([]string{
		"Chicken Curry",
		"Chicken Chicken Curry",
		"Vegetable Curry",
		"Chicken Biryani",
	}, 3)
	exec := New(staticSource{snap})

	res, err := exec.Execute(context.Background(), parser.Parse("Chicken Curry", ""), 0)
	require.NoError(t, err)

	assert.Equal(t, 2, res.TotalHits)
	require.Len(t, res.Results, 2)
	assert.Equal(t, 1, res.Results[0].DocID)
	assert.Equal(t, "Chicken Chicken Curry", res.Results[0].Text)
	assert.Equal(t, 0, res.Results[1].DocID)

	chickenIDF := math.Log(4.0 / 3.0)
	curryIDF := math.Log(4.0 / 3.0)
	assert.InDelta(t, 2*chickenIDF+curryIDF, res.Results[0].Score, 1e-12)
	assert.InDelta(t, chickenIDF+curryIDF, res.Results[1].Score, 1e-12)
	assert.Equal(t, map[string]int{"Chicken": 3, "Curry": 3}, res.TermStats)
	assert.Equal(t, uint64(3), res.Generation)
}

func TestExecuteLimitAndTies(t *testing.T) {
	snap := index.Build([]string{"Dal Fry", "Dal Tadka", "Dal Makhani", "Rice"}, 1)
	exec := New(staticSource{snap})

	res, err := exec.Execute(context.Background(), parser.Parse("Dal", ""), 2)
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalHits)
	require.Len(t, res.Results, 2)
	assert.Equal(t, 0, res.Results[0].DocID)
	assert.Equal(t, 1, res.Results[1].DocID)
}

func TestExecuteExcludesAllergens(t *testing.T) {
	snap := index.Build([]string{
		"Peanut Chikki Jaggery",
		"Coconut Chikki Jaggery",
		"Cashew Chikki Jaggery",
	}, 1)
	exec := New(staticSource{snap})

	res, err := exec.Execute(context.Background(), parser.Parse("Chikki", "peanut, CASHEW"), 0)
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, 1, res.Results[0].DocID)
	assert.Equal(t, 1, res.TotalHits)
	assert.Equal(t, []string{"peanut", "CASHEW"}, res.Exclude)
}

func TestExecuteNoMatches(t *testing.T) {
	exec := New(staticSource{index.Build(recipes, 1)})

	res, err := exec.Execute(context.Background(), parser.Parse("Paneer", ""), 10)
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalHits)
	assert.NotNil(t, res.Results)
	assert.Empty(t, res.Results)

	res, err = exec.Execute(context.Background(), parser.Parse("  ", ""), 10)
	require.NoError(t, err)
	assert.Empty(t, res.Results)
}

func TestExecuteHonoursCancellation(t *testing.T) {
	exec := New(staticSource{index.Build(recipes, 1)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := exec.Execute(ctx, parser.Parse("Curry", ""), 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func BenchmarkExecute(b *testing.B) {
	docs := make([]string, 0, 5000)
	for i := 0; i < 5000; i++ {
		switch i % 3 {
		case 0:
			docs = append(docs, "Chicken Curry with Rice")
		case 1:
			docs = append(docs, "Vegetable Curry")
		default:
			docs = append(docs, "Masala Dosa")
		}
	}
	exec := New(staticSource{snap: index.Build(docs, 1)})
	plan := parser.Parse("Chicken Curry", "")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := exec.Execute(context.Background(), plan, 10); err != nil {
			b.Fatal(err)
		}
	}
}
