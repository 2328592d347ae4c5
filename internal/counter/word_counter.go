package counter

import (
	"strings"
	"unicode/utf8"
)

// WordCounter counts whitespace separated tokens.
type WordCounter struct{}

// NewWordCounter creates a new WordCounter instance.
func NewWordCounter() Counter {
	return &WordCounter{}
}

// Count returns len(strings.Fields(text)); runs of any Unicode whitespace
// collapse, so leading or trailing spaces never produce empty words.
func (wc *WordCounter) Count(text string) int {
	return len(strings.Fields(text))
}

// Name returns the name of this counting method for logging and debugging.
func (wc *WordCounter) Name() string {
	return "words"
}

// CharCounter counts Unicode runes of the trimmed text.
type CharCounter struct{}

// NewCharCounter creates a new CharCounter instance.
func NewCharCounter() Counter {
	return &CharCounter{}
}

// Count returns the number of runes once surrounding whitespace is removed.
// Interior whitespace is counted.
func (cc *CharCounter) Count(text string) int {
	return utf8.RuneCountInString(strings.TrimSpace(text))
}

// Name returns the name of this counting method for logging and debugging.
func (cc *CharCounter) Name() string {
	return "characters"
}
