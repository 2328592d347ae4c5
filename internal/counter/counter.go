// Package counter provides the unit counting rules used to attribute text to users.
//
// A Counter turns one message body into a number of units. The supported units are
// words (whitespace splitting), sentences (a fixed punctuation rule), tokens (OpenAI's
// tiktoken with the cl100k_base encoding) and characters (Unicode runes).
//
// Usage Example:
//
//	c, err := counter.NewCounter(counter.Sentences)
//	n := c.Count("hello world. Bye now.")
//	// n == 2
//
// Counters are stateless apart from the token encoding, so one instance can be shared
// between goroutines.
package counter

import (
	"fmt"
	"strings"
)

// Counter defines the interface for the different unit counting strategies.
type Counter interface {
	// Count returns the number of units (words, sentences, tokens or characters) in given text.
	Count(text string) int

	// Name returns a human-readable name for this counting method (for logging)
	Name() string
}

// Unit represents the countable token type selected by configuration.
type Unit int

const (
	// Words counts whitespace separated tokens (default)
	Words Unit = iota
	// Sentences counts segments ended by '.', '!' or '?'
	Sentences
	// Tokens uses tiktoken with cl100k_base encoding
	Tokens
	// Characters counts Unicode runes
	Characters
)

// String returns the canonical configuration spelling of the unit.
func (u Unit) String() string {
	switch u {
	case Words:
		return "WORD"
	case Sentences:
		return "SENTENCE"
	case Tokens:
		return "TOKEN"
	case Characters:
		return "CHAR"
	default:
		return "UNKNOWN"
	}
}

// Plural returns the lowercase plural label used when rendering counts.
func (u Unit) Plural() string {
	switch u {
	case Words:
		return "words"
	case Sentences:
		return "sentences"
	case Tokens:
		return "tokens"
	case Characters:
		return "characters"
	default:
		return "units"
	}
}

// ParseUnit maps a configuration value to a Unit. Matching is case-insensitive and
// accepts the "SENT" spelling sent by the upload UI. An empty value means Words.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "WORD", "WORDS":
		return Words, nil
	case "SENT", "SENTENCE", "SENTENCES":
		return Sentences, nil
	case "TOKEN", "TOKENS":
		return Tokens, nil
	case "CHAR", "CHARS", "CHARACTER", "CHARACTERS":
		return Characters, nil
	default:
		return 0, fmt.Errorf("unrecognized unit %q", s)
	}
}

// NewCounter creates a new Counter instance for the specified unit.
// Returns an error for an unknown unit or when the tiktoken encoding cannot be loaded.
func NewCounter(unit Unit) (Counter, error) {
	switch unit {
	case Words:
		return NewWordCounter(), nil
	case Sentences:
		return NewSentenceCounter(), nil
	case Tokens:
		return NewTokenCounter()
	case Characters:
		return NewCharCounter(), nil
	default:
		return nil, fmt.Errorf("no counter for unit %d", int(unit))
	}
}
