package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/logger"
)

type Hit struct {
	DocID int     `json:"doc_id"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

type SearchResult struct {
	Query      string         `json:"query"`
	Exclude    []string       `json:"exclude,omitempty"`
	TotalHits  int            `json:"total_hits"`
	Results    []Hit          `json:"results"`
	TermStats  map[string]int `json:"term_stats"`
	Generation uint64         `json:"generation"`
}

// SnapshotSource supplies the index snapshot a query runs against.
type SnapshotSource interface {
	Snapshot() *index.Snapshot
}

type Executor struct {
	source SnapshotSource
	logger *slog.Logger
}

func New(source SnapshotSource) *Executor {
	return &Executor{
		source: source,
		logger: logger.WithComponent("query-executor"),
	}
}

// Evaluate answers a conjunctive query. A single term returns its posting set
// as stored; several terms intersect left to right starting from the first
// term's set, and any unindexed term collapses the result to empty.
func Evaluate(snap *index.Snapshot, terms []string) index.DocSet {
	if len(terms) == 0 {
		return index.DocSet{}
	}
	result, ok := snap.Lookup(terms[0])
	if !ok {
		return index.DocSet{}
	}
	if len(terms) == 1 {
		return result
	}
	for _, term := range terms[1:] {
		docs, ok := snap.Lookup(term)
		if !ok {
			return index.DocSet{}
		}
		result = result.Intersect(docs)
		if result.Len() == 0 {
			return result
		}
	}
	return result
}

// Execute runs plan against the current snapshot. Hits are scored by summed
// TF-IDF of the distinct query terms and returned best first; limit <= 0
// returns every hit.
func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*SearchResult, error) {
	snap := e.source.Snapshot()
	if plan.Empty() {
		return &SearchResult{
			Query:      plan.RawQuery,
			Results:    []Hit{},
			TermStats:  map[string]int{},
			Generation: snap.Generation(),
		}, nil
	}

	terms := plan.DistinctTerms()
	termStats := make(map[string]int, len(terms))
	for _, term := range terms {
		termStats[term] = snap.DocFreq(term)
	}

	candidates := Evaluate(snap, plan.Terms)
	scored := make([]ranker.ScoredDoc, 0, candidates.Len())
	texts := make(map[int]string, candidates.Len())
	for _, docID := range candidates.Sorted() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := snap.Document(docID)
		if err != nil {
			return nil, fmt.Errorf("resolving hit: %w", err)
		}
		if containsAny(text, plan.Exclude) {
			continue
		}
		score, err := ranker.ScoreQuery(snap, terms, docID)
		if err != nil {
			return nil, fmt.Errorf("scoring document %d: %w", docID, err)
		}
		texts[docID] = text
		scored = append(scored, ranker.ScoredDoc{DocID: docID, Score: score})
	}
	ranker.Sort(scored)

	total := len(scored)
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	hits := make([]Hit, 0, len(scored))
	for _, s := range scored {
		hits = append(hits, Hit{DocID: s.DocID, Text: texts[s.DocID], Score: s.Score})
	}

	e.logger.Debug("query executed",
		"query", plan.RawQuery,
		"terms", plan.Terms,
		"exclude", plan.Exclude,
		"candidates", candidates.Len(),
		"results", len(hits),
		"generation", snap.Generation(),
	)
	return &SearchResult{
		Query:      plan.RawQuery,
		Exclude:    plan.Exclude,
		TotalHits:  total,
		Results:    hits,
		TermStats:  termStats,
		Generation: snap.Generation(),
	}, nil
}

// containsAny reports whether text mentions any of the excluded ingredients,
// ignoring case.
func containsAny(text string, exclude []string) bool {
	if len(exclude) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, item := range exclude {
		if strings.Contains(lower, strings.ToLower(item)) {
			return true
		}
	}
	return false
}
