// Package ranker computes TF-IDF relevance scores against an index snapshot.
package ranker

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/errors"
)

type ScoredDoc struct {
	DocID int     `json:"doc_id"`
	Score float64 `json:"score"`
}

// Score returns tf * idf for term in the document docID.
//
// tf is the number of non-overlapping occurrences of term as a substring of
// the raw document text, so "Dal" also counts inside "Dalia". idf is
// ln(N / df). A term present in every document scores 0.
//
// Scoring a term that is not in the index fails with ErrTermNotIndexed
// rather than returning 0; callers check membership first when they want a
// soft miss.
func Score(snap *index.Snapshot, term string, docID int) (float64, error) {
	idf, err := IDF(snap, term)
	if err != nil {
		return 0, err
	}
	text, err := snap.Document(docID)
	if err != nil {
		return 0, fmt.Errorf("scoring %q: %w", term, err)
	}
	return float64(TermFrequency(text, term)) * idf, nil
}

// IDF returns ln(N / df) for an indexed term.
func IDF(snap *index.Snapshot, term string) (float64, error) {
	docFreq := snap.DocFreq(term)
	if docFreq == 0 {
		return 0, fmt.Errorf("scoring %q: %w", term, apperrors.ErrTermNotIndexed)
	}
	return math.Log(float64(snap.NumDocs()) / float64(docFreq)), nil
}

// TermFrequency counts literal occurrences of term in text.
func TermFrequency(text, term string) int {
	if term == "" {
		return 0
	}
	return strings.Count(text, term)
}

// ScoreAll scores term against every document in ID order.
func ScoreAll(snap *index.Snapshot, term string) ([]ScoredDoc, error) {
	idf, err := IDF(snap, term)
	if err != nil {
		return nil, err
	}
	result := make([]ScoredDoc, 0, snap.NumDocs())
	for docID := 0; docID < snap.NumDocs(); docID++ {
		text, err := snap.Document(docID)
		if err != nil {
			return nil, err
		}
		result = append(result, ScoredDoc{
			DocID: docID,
			Score: float64(TermFrequency(text, term)) * idf,
		})
	}
	return result, nil
}

// ScoreQuery sums the TF-IDF of each term for docID. Every term must be
// indexed.
func ScoreQuery(snap *index.Snapshot, terms []string, docID int) (float64, error) {
	var total float64
	for _, term := range terms {
		s, err := Score(snap, term, docID)
		if err != nil {
			return 0, err
		}
		total += s
	}
	return total, nil
}

// Sort orders docs by score descending, then by document ID.
func Sort(docs []ScoredDoc) {
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Score != docs[j].Score {
			return docs[i].Score > docs[j].Score
		}
		return docs[i].DocID < docs[j].DocID
	})
}
