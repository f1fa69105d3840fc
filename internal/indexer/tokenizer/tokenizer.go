// Package tokenizer splits recipe text into index terms. Terms keep their
// original case; only the stop-word check is case-insensitive, so "Dal" and
// "dal" index as distinct terms.
package tokenizer

import (
	"sort"
	"strings"
)

var stopWords = map[string]struct{}{
	"and": {}, "or": {}, "to": {}, "the": {}, "a": {}, "an": {},
}

// IsStopWord reports whether the lower-cased term is a stop word.
func IsStopWord(term string) bool {
	_, ok := stopWords[strings.ToLower(term)]
	return ok
}

// StopWords returns the stop-word list in sorted order.
func StopWords() []string {
	words := make([]string, 0, len(stopWords))
	for w := range stopWords {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// Split breaks text on Unicode whitespace. Stop words are kept.
func Split(text string) []string {
	return strings.Fields(text)
}

// Terms returns the indexable terms of text in order of appearance,
// duplicates included.
func Terms(text string) []string {
	words := Split(text)
	terms := make([]string, 0, len(words))
	for _, word := range words {
		if IsStopWord(word) {
			continue
		}
		terms = append(terms, word)
	}
	return terms
}
