// Package engine counts and ranks per-user units across a batch of documents.
//
// Run drives tokenize → tally.Aggregate → tally.Rank. In ALL scope all documents
// feed a single aggregation; in PER scope each document is aggregated and ranked on
// its own and results keep upload order. The engine is pure: no I/O, no shared
// state, safe to call concurrently.
package engine

import (
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/chriscorrea/tally/internal/classify"
	"github.com/chriscorrea/tally/internal/counter"
	"github.com/chriscorrea/tally/internal/search"
	"github.com/chriscorrea/tally/internal/tally"
	"github.com/chriscorrea/tally/internal/tfidf"
	"github.com/chriscorrea/tally/internal/tokenize"
)

// Document is one uploaded file. Valid is computed by the caller from the
// name's extension and the size ceiling; the engine does not re-check it.
type Document struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Valid   bool   `json:"-"`
}

// Output is either one ranked list (ALL) or one ranked list per document (PER).
type Output struct {
	Scope Scope
	Lists [][]tally.UserTally
}

// Flat returns the single list of an ALL-scope output, or nil for PER.
func (o Output) Flat() []tally.UserTally {
	if o.Scope != All || len(o.Lists) == 0 {
		return nil
	}
	return o.Lists[0]
}

// MarshalJSON renders ALL scope as a flat array and PER scope as an array of
// arrays.
func (o Output) MarshalJSON() ([]byte, error) {
	if o.Scope == All {
		flat := o.Flat()
		if flat == nil {
			flat = []tally.UserTally{}
		}
		return json.Marshal(flat)
	}
	lists := o.Lists
	if lists == nil {
		lists = [][]tally.UserTally{}
	}
	return json.Marshal(lists)
}

// Run computes the ranked tallies for documents under cfg.
func Run(documents []Document, cfg Config) (Output, error) {
	if len(documents) == 0 {
		return Output{}, fmt.Errorf("%w: no documents provided", ErrInvalidInput)
	}
	if err := cfg.Validate(); err != nil {
		return Output{}, err
	}

	textCounter, err := counter.NewCounter(cfg.Unit)
	if err != nil {
		return Output{}, fmt.Errorf("failed to create counter: %w", err)
	}

	var opts tokenize.Options
	if cfg.SkipNotices {
		opts.Skip = classify.NewClassifier().IsNotice
	}

	slog.Debug("Running engine", "documents", len(documents), "scope", cfg.Scope, "order", cfg.Order,
		"unit", cfg.Unit, "limit", cfg.Limit, "match", cfg.Match, "keywords", cfg.Keywords)

	sequences := make([]iter.Seq[tokenize.Attribution], len(documents))
	for i, doc := range documents {
		sequences[i] = search.Filter(tokenize.Tokenize(doc.Content, textCounter, opts), cfg.Match)
	}

	out := Output{Scope: cfg.Scope}
	switch cfg.Scope {
	case All:
		out.Lists = [][]tally.UserTally{rankScope(concat(sequences), cfg)}
	case Per:
		out.Lists = make([][]tally.UserTally, len(sequences))
		for i, seq := range sequences {
			out.Lists[i] = rankScope(seq, cfg)
		}
	}
	return out, nil
}

// rankScope aggregates one scope, attaches keywords when asked, and ranks it.
func rankScope(units iter.Seq[tokenize.Attribution], cfg Config) []tally.UserTally {
	var texts map[string]*strings.Builder
	if cfg.Keywords > 0 {
		texts = make(map[string]*strings.Builder)
		units = recordTexts(units, texts)
	}

	set := tally.Aggregate(units)
	if cfg.Keywords > 0 {
		attachKeywords(set, texts, cfg.Keywords)
	}
	return tally.Rank(set, cfg.Order, cfg.Limit)
}

// attachKeywords treats each user's collected text as one TF-IDF document.
func attachKeywords(set *tally.Set, texts map[string]*strings.Builder, n int) {
	users := set.Tallies()
	docs := make([]string, len(users))
	for i, u := range users {
		if b, ok := texts[u.Name]; ok {
			docs[i] = b.String()
		}
	}

	corpus := tfidf.NewCorpus(docs)
	for i, u := range users {
		set.SetKeywords(u.Name, corpus.TopTerms(i, n))
	}
}

// recordTexts passes units through while appending each text to its user.
func recordTexts(units iter.Seq[tokenize.Attribution], texts map[string]*strings.Builder) iter.Seq[tokenize.Attribution] {
	return func(yield func(tokenize.Attribution) bool) {
		for u := range units {
			b, ok := texts[u.User]
			if !ok {
				b = &strings.Builder{}
				texts[u.User] = b
			}
			b.WriteString(u.Text)
			b.WriteByte('\n')
			if !yield(u) {
				return
			}
		}
	}
}

// concat chains sequences in order.
func concat(seqs []iter.Seq[tokenize.Attribution]) iter.Seq[tokenize.Attribution] {
	return func(yield func(tokenize.Attribution) bool) {
		for _, seq := range seqs {
			for u := range seq {
				if !yield(u) {
					return
				}
			}
		}
	}
}
