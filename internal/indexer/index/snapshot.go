package index

import (
	"fmt"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/recipe-retrieval/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/recipe-retrieval/pkg/errors"
)

// Snapshot is an immutable inverted index over a fixed corpus. It is safe
// for concurrent readers; nothing mutates it after Build returns.
type Snapshot struct {
	documents  []string
	postings   map[string]DocSet
	lengths    map[int]int
	generation uint64
}

// Build indexes documents, assigning each its position as document ID.
// The slice is copied.
func Build(documents []string, generation uint64) *Snapshot {
	docs := make([]string, len(documents))
	copy(docs, documents)

	postings := make(map[string]DocSet)
	for docID, text := range docs {
		for _, term := range tokenizer.Terms(text) {
			set, ok := postings[term]
			if !ok {
				set = make(DocSet)
				postings[term] = set
			}
			set.Add(docID)
		}
	}

	// Length is the number of distinct indexed terms per document, not the
	// token count.
	lengths := make(map[int]int)
	for _, set := range postings {
		for docID := range set {
			lengths[docID]++
		}
	}

	return &Snapshot{
		documents:  docs,
		postings:   postings,
		lengths:    lengths,
		generation: generation,
	}
}

// Lookup returns the documents containing term. The returned set must not be
// modified.
func (s *Snapshot) Lookup(term string) (DocSet, bool) {
	set, ok := s.postings[term]
	return set, ok
}

func (s *Snapshot) Contains(term string) bool {
	_, ok := s.postings[term]
	return ok
}

// DocFreq is the number of documents containing term, 0 when unindexed.
func (s *Snapshot) DocFreq(term string) int {
	return len(s.postings[term])
}

// DocLength returns the number of distinct indexed terms in the document.
// Documents with no indexed terms report (0, true); unknown IDs (0, false).
func (s *Snapshot) DocLength(docID int) (int, bool) {
	if docID < 0 || docID >= len(s.documents) {
		return 0, false
	}
	return s.lengths[docID], true
}

// Lengths returns a copy of the length table. Documents without indexed
// terms are absent, as they never appear in a posting set.
func (s *Snapshot) Lengths() map[int]int {
	out := make(map[int]int, len(s.lengths))
	for id, n := range s.lengths {
		out[id] = n
	}
	return out
}

func (s *Snapshot) Document(docID int) (string, error) {
	if docID < 0 || docID >= len(s.documents) {
		return "", fmt.Errorf("document %d of %d: %w", docID, len(s.documents), apperrors.ErrDocumentNotFound)
	}
	return s.documents[docID], nil
}

func (s *Snapshot) NumDocs() int {
	return len(s.documents)
}

func (s *Snapshot) NumTerms() int {
	return len(s.postings)
}

func (s *Snapshot) Generation() uint64 {
	return s.generation
}

// Terms returns all index keys in sorted order.
func (s *Snapshot) Terms() []string {
	terms := make([]string, 0, len(s.postings))
	for term := range s.postings {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

// Entries returns a copy of the whole index sorted by term.
func (s *Snapshot) Entries() []TermEntry {
	entries := make([]TermEntry, 0, len(s.postings))
	for term, set := range s.postings {
		entries = append(entries, TermEntry{
			Term: term,
			Docs: set.Clone(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}
