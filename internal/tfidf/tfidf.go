// Package tfidf finds the signature terms of each user.
//
// Every user in a scope contributes one document: the concatenation of everything
// they wrote. A term scores high for a user when the user says it often and few
// other users say it at all.
//
// Usage Example:
//
//	corpus := tfidf.NewCorpus([]string{aliceText, bobText})
//	terms := corpus.TopTerms(0, 3)
//	// the three terms most specific to Alice
//
// IDF is smoothed as log(1 + N/df) so a scope with a single user still ranks by
// plain term frequency.
package tfidf

import (
	"log/slog"
	"math"
	"regexp"
	"slices"
	"strings"
)

// tokenRegex is compiled once at package initialization for efficient tokenization
var tokenRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// minTermLength drops very short words, a cheap stand-in for a stopword list
const minTermLength = 3

// Corpus holds pre-calculated term statistics for a set of documents.
type Corpus struct {
	TermFrequencies []map[string]float64 // TF for each document
	DocFrequencies  map[string]int       // Document frequency for each term
	TotalDocuments  int                  // Total number of documents
}

// NewCorpus creates a new TF-IDF corpus from a collection of documents.
func NewCorpus(documents []string) *Corpus {
	corpus := &Corpus{
		TermFrequencies: make([]map[string]float64, len(documents)),
		DocFrequencies:  make(map[string]int),
		TotalDocuments:  len(documents),
	}

	for docIdx, doc := range documents {
		tokens := tokenize(doc)
		tf := calculateTermFrequency(tokens)
		corpus.TermFrequencies[docIdx] = tf

		for term := range tf {
			corpus.DocFrequencies[term]++
		}
	}

	slog.Debug("Created TF-IDF corpus", "documents", corpus.TotalDocuments, "terms", len(corpus.DocFrequencies))
	return corpus
}

// TermScore pairs a term with its TF-IDF weight in one document.
type TermScore struct {
	Term  string
	Score float64
}

// Scores returns every term of a document with its TF-IDF weight, highest first;
// equal weights sort alphabetically so results are reproducible.
func (c *Corpus) Scores(docIndex int) []TermScore {
	if docIndex < 0 || docIndex >= len(c.TermFrequencies) {
		slog.Debug("Invalid document index", "docIndex", docIndex, "totalDocs", c.TotalDocuments)
		return nil
	}

	scores := make([]TermScore, 0, len(c.TermFrequencies[docIndex]))
	for term, tf := range c.TermFrequencies[docIndex] {
		idf := math.Log(1 + float64(c.TotalDocuments)/float64(c.DocFrequencies[term]))
		scores = append(scores, TermScore{Term: term, Score: tf * idf})
	}

	slices.SortFunc(scores, func(a, b TermScore) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return strings.Compare(a.Term, b.Term)
		}
	})
	return scores
}

// TopTerms returns up to n of the highest weighted terms of a document.
func (c *Corpus) TopTerms(docIndex, n int) []string {
	if n <= 0 {
		return nil
	}

	scores := c.Scores(docIndex)
	if len(scores) > n {
		scores = scores[:n]
	}

	terms := make([]string, len(scores))
	for i, s := range scores {
		terms[i] = s.Term
	}
	return terms
}

// tokenize lowercases text, splits on non-alphanumeric characters (keeping
// underscores and dashes) and drops words shorter than minTermLength.
func tokenize(text string) []string {
	var filtered []string
	for _, token := range tokenRegex.Split(strings.ToLower(text), -1) {
		if len(token) >= minTermLength {
			filtered = append(filtered, token)
		}
	}
	return filtered
}

// calculateTermFrequency computes (count of term) / (total terms) for tokens.
func calculateTermFrequency(tokens []string) map[string]float64 {
	termCounts := make(map[string]int)
	for _, token := range tokens {
		termCounts[token]++
	}

	termFreqs := make(map[string]float64, len(termCounts))
	for term, count := range termCounts {
		termFreqs[term] = float64(count) / float64(len(tokens))
	}
	return termFreqs
}
