package index

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var recipes = []string{"Chilli Chicken", "Chicken Curry", "Vegetable Curry"}

func TestBuildRecipeCorpus(t *testing.T) {
	snap := Build(recipes, 1)

	want := map[string]DocSet{
		"Chilli":    NewDocSet(0),
		"Chicken":   NewDocSet(0, 1),
		"Curry":     NewDocSet(1, 2),
		"Vegetable": NewDocSet(2),
	}
	require.Equal(t, len(want), snap.NumTerms())
	for term, docs := range want {
		got, ok := snap.Lookup(term)
		require.True(t, ok, term)
		assert.True(t, docs.Equal(got), "term %s: got %v", term, got.Sorted())
	}
	assert.Equal(t, 3, snap.NumDocs())
	assert.Equal(t, uint64(1), snap.Generation())
}

func TestBuildSkipsStopWordsCaseInsensitively(t *testing.T) {
	snap := Build([]string{"Bread And Butter", "The Rice or a Dal", "an"}, 1)

	for _, term := range snap.Terms() {
		assert.False(t, tokenizer.IsStopWord(term), term)
	}
	assert.False(t, snap.Contains("And"))
	assert.False(t, snap.Contains("The"))
	assert.True(t, snap.Contains("Bread"))
	assert.True(t, snap.Contains("Dal"))
}

func TestBuildIsCaseSensitive(t *testing.T) {
	snap := Build([]string{"Dal Fry", "dal makhani"}, 1)

	dal, ok := snap.Lookup("Dal")
	require.True(t, ok)
	assert.Equal(t, []int{0}, dal.Sorted())

	lower, ok := snap.Lookup("dal")
	require.True(t, ok)
	assert.Equal(t, []int{1}, lower.Sorted())
}

func TestDocLengthCountsDistinctIndexedTerms(t *testing.T) {
	snap := Build([]string{
		"Curry Curry Curry",
		"Egg and Egg Bhurji",
		"",
		"the and",
	}, 1)

	n, ok := snap.DocLength(0)
	assert.True(t, ok)
	assert.Equal(t, 1, n)

	n, ok = snap.DocLength(1)
	assert.True(t, ok)
	assert.Equal(t, 2, n)

	n, ok = snap.DocLength(2)
	assert.True(t, ok)
	assert.Equal(t, 0, n)

	n, ok = snap.DocLength(3)
	assert.True(t, ok)
	assert.Equal(t, 0, n)

	_, ok = snap.DocLength(4)
	assert.False(t, ok)

	assert.Equal(t, map[int]int{0: 1, 1: 2}, snap.Lengths())
}

func TestDocumentLookup(t *testing.T) {
	snap := Build(recipes, 1)

	text, err := snap.Document(1)
	require.NoError(t, err)
	assert.Equal(t, "Chicken Curry", text)

	_, err = snap.Document(3)
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
	_, err = snap.Document(-1)
	assert.ErrorIs(t, err, apperrors.ErrDocumentNotFound)
}

func TestBuildCopiesInput(t *testing.T) {
	docs := []string{"Aloo Gobi"}
	snap := Build(docs, 1)
	docs[0] = "Changed"

	text, err := snap.Document(0)
	require.NoError(t, err)
	assert.Equal(t, "Aloo Gobi", text)
}

func TestEntriesSortedAndDetached(t *testing.T) {
	snap := Build(recipes, 1)
	entries := snap.Entries()

	terms := make([]string, 0, len(entries))
	for _, e := range entries {
		terms = append(terms, e.Term)
	}
	assert.Equal(t, []string{"Chicken", "Chilli", "Curry", "Vegetable"}, terms)

	entries[0].Docs.Add(99)
	docs, _ := snap.Lookup("Chicken")
	assert.False(t, docs.Contains(99))
}

func TestMemoryIndexIngestAssignsSequentialIDs(t *testing.T) {
	m := NewMemoryIndex()
	assert.Equal(t, 0, m.Snapshot().NumDocs())

	first := m.Ingest([]string{"Chilli Chicken", "Chicken Curry"})
	assert.Equal(t, []int{0, 1}, first.IDs())

	second := m.Ingest([]string{"Vegetable Curry"})
	assert.Equal(t, []int{2}, second.IDs())

	snap := m.Snapshot()
	assert.Same(t, second.Snapshot, snap)
	assert.Equal(t, 3, snap.NumDocs())

	// IDs stay stable across ingestions.
	text, err := snap.Document(0)
	require.NoError(t, err)
	assert.Equal(t, "Chilli Chicken", text)

	// The rebuild covers the whole corpus, not only the new batch.
	curry, _ := snap.Lookup("Curry")
	assert.Equal(t, []int{1, 2}, curry.Sorted())

	// The earlier snapshot is untouched.
	assert.Equal(t, 2, first.Snapshot.NumDocs())
	assert.False(t, first.Snapshot.Contains("Vegetable"))
}

func TestMemoryIndexIngestEmptyBatch(t *testing.T) {
	m := NewMemoryIndex()
	res := m.Ingest(nil)
	assert.Empty(t, res.IDs())
	assert.Equal(t, uint64(1), res.Snapshot.Generation())
}

func TestRebuildIsIdempotent(t *testing.T) {
	m := NewMemoryIndex()
	m.Ingest(recipes)
	a := m.Rebuild()
	b := m.Rebuild()

	assert.Equal(t, a.Entries(), b.Entries())
	assert.Equal(t, a.Lengths(), b.Lengths())
	assert.Greater(t, b.Generation(), a.Generation())
}

func TestConcurrentReadsDuringIngest(t *testing.T) {
	m := NewMemoryIndex()
	m.Ingest(recipes)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				m.Ingest([]string{fmt.Sprintf("Batch%d Item%d Curry", w, i)})
			}
		}(w)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				snap := m.Snapshot()
				docs, ok := snap.Lookup("Curry")
				if !ok {
					continue
				}
				for id := range docs {
					_, err := snap.Document(id)
					assert.NoError(t, err)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3+4*50, m.Snapshot().NumDocs())
}

func TestDocSetOperations(t *testing.T) {
	a := NewDocSet(1, 2, 3)
	b := NewDocSet(2, 3, 4)
	assert.Equal(t, []int{2, 3}, a.Intersect(b).Sorted())
	assert.Equal(t, 0, a.Intersect(DocSet{}).Len())
	assert.Equal(t, []int{1, 2, 3}, a.Sorted())

	data, err := json.Marshal(NewDocSet(5, 1, 3))
	require.NoError(t, err)
	assert.JSONEq(t, `[1,3,5]`, string(data))

	var decoded DocSet
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.Equal(NewDocSet(1, 3, 5)))
}

func BenchmarkBuild(b *testing.B) {
	docs := make([]string, 5000)
	for i := range docs {
		docs[i] = fmt.Sprintf("Recipe%d Paneer Butter Masala and %s", i, strings.Repeat("Spice ", i%5))
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Build(docs, uint64(i))
	}
}

func BenchmarkSnapshotLookupParallel(b *testing.B) {
	m := NewMemoryIndex()
	docs := make([]string, 10000)
	for i := range docs {
		docs[i] = "Dal Tadka with Jeera Rice"
	}
	m.Ingest(docs)

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = m.Snapshot().Lookup("Dal")
		}
	})
}
