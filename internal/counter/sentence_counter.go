package counter

import (
	"regexp"
	"strings"
)

// sentenceTerminator matches a run of terminal punctuation followed by whitespace or
// the end of the text. "e.g" and "3.14" do not split because no whitespace follows.
var sentenceTerminator = regexp.MustCompile(`[.!?]+(?:\s+|$)`)

// SentenceCounter implements sentence counting with a fixed punctuation rule.
type SentenceCounter struct{}

// NewSentenceCounter creates a new SentenceCounter instance.
func NewSentenceCounter() Counter {
	return &SentenceCounter{}
}

// Count returns the number of non-empty segments left after splitting on
// sentence-terminal punctuation. Text without any terminator is one sentence.
func (sc *SentenceCounter) Count(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}

	sentenceCount := 0
	for _, segment := range sentenceTerminator.Split(text, -1) {
		if strings.TrimSpace(segment) != "" {
			sentenceCount++
		}
	}

	return sentenceCount
}

// Name returns the name of this counting method for logging and debugging.
func (sc *SentenceCounter) Name() string {
	return "sentences"
}
