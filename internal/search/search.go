// Package search keeps only the messages lexically relevant to a query.
//
// Messages and queries are split into terms the way bm25md indexes markdown:
// every parsed field is lowercased and split on non-alphanumerics, and terms
// shorter than three characters are dropped. A message is relevant when it
// contains at least one query term. Relevance does not depend on how common a
// term is across a document, so a term found in every message keeps them all.
package search

import (
	"iter"
	"log/slog"
	"strings"

	"github.com/chriscorrea/bm25md"
	"github.com/chriscorrea/tally/internal/tokenize"
)

// Terms returns the set of index terms of text across its markdown fields.
func Terms(text string) map[string]struct{} {
	var tokenizer bm25md.DefaultTokenizer
	terms := make(map[string]struct{})
	for _, field := range bm25md.NewMarkdownFieldParser().ParseDocument(text) {
		for _, term := range tokenizer.Tokenize(field) {
			terms[term] = struct{}{}
		}
	}
	return terms
}

// Relevant reports which texts contain a query term. An empty query matches
// everything; a query without index terms (only very short words) matches
// nothing.
func Relevant(texts []string, query string) []bool {
	matches := make([]bool, len(texts))
	if strings.TrimSpace(query) == "" {
		for i := range matches {
			matches[i] = true
		}
		return matches
	}

	queryTerms := bm25md.DefaultTokenizer{}.Tokenize(query)
	hits := 0
	for i, text := range texts {
		if containsAny(text, queryTerms) {
			matches[i] = true
			hits++
		}
	}

	slog.Debug("Matched messages against query", "query", query, "terms", len(queryTerms), "messages", len(texts), "matches", hits)
	return matches
}

// Filter drops the attributions whose text is not relevant to query. It stays
// lazy: each attribution is checked as it arrives.
func Filter(units iter.Seq[tokenize.Attribution], query string) iter.Seq[tokenize.Attribution] {
	if strings.TrimSpace(query) == "" {
		return units
	}
	queryTerms := bm25md.DefaultTokenizer{}.Tokenize(query)

	return func(yield func(tokenize.Attribution) bool) {
		for u := range units {
			if !containsAny(u.Text, queryTerms) {
				continue
			}
			if !yield(u) {
				return
			}
		}
	}
}

func containsAny(text string, queryTerms []string) bool {
	if len(queryTerms) == 0 {
		return false
	}
	terms := Terms(text)
	for _, term := range queryTerms {
		if _, ok := terms[term]; ok {
			return true
		}
	}
	return false
}
