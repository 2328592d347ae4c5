// Package classify identifies system notices in chat logs.
//
// Logs exported from chat and IRC clients interleave real messages with notices
// such as "Alice: has joined the channel" or "Bob: changed the topic to release".
// The classifier stems the words of a message with the snowball English stemmer
// and flags short messages dominated by notice vocabulary.
package classify

import (
	"regexp"
	"strings"

	"github.com/kljensen/snowball"
)

// noticeStems contains stemmed words that dominate join/part/topic notices.
var noticeStems = map[string]struct{}{
	// --- membership ---
	"join":       {},
	"left":       {},
	"leav":       {},
	"quit":       {},
	"exit":       {},
	"enter":      {},
	"connect":    {},
	"disconnect": {},
	"kick":       {},
	"ban":        {},
	"invit":      {},
	"remov":      {},
	"ad":         {}, // from "added"

	// --- places ---
	"channel": {},
	"room":    {},
	"group":   {},
	"chat":    {},

	// --- metadata changes ---
	"topic": {},
	"chang": {},
	"renam": {},
	"nick":  {},
	"known": {}, // from "is now known as"
	"mode":  {},
	"away":  {},
}

// fillerWords are ignored when measuring notice density.
var fillerWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "to": {}, "has": {}, "have": {}, "had": {},
	"is": {}, "was": {}, "now": {}, "as": {}, "of": {}, "in": {}, "on": {},
	"from": {}, "by": {}, "into": {}, "this": {}, "their": {}, "his": {}, "her": {},
}

const (
	// maxNoticeWords bounds the length of a message that can still be a notice
	maxNoticeWords = 8
	// noticeRatio is the share of notice stems among non-filler words
	noticeRatio = 0.5
)

// Classifier flags system notices using stem analysis.
type Classifier struct {
	// tokenRegex extracts word tokens from text
	tokenRegex *regexp.Regexp
}

// NewClassifier creates and initializes a new Classifier instance
func NewClassifier() *Classifier {
	return &Classifier{
		tokenRegex: regexp.MustCompile(`[a-zA-Z]+`),
	}
}

// IsNotice reports whether content reads like a system notice rather than a
// message a user typed. Content without words is never a notice.
func (c *Classifier) IsNotice(content string) bool {
	tokens := c.tokenRegex.FindAllString(strings.ToLower(content), -1)

	words := 0
	hits := 0
	for _, token := range tokens {
		if _, filler := fillerWords[token]; filler {
			continue
		}
		words++

		stemmed, err := snowball.Stem(token, "english", true)
		if err != nil {
			stemmed = token
		}
		if _, ok := noticeStems[stemmed]; ok {
			hits++
		}
	}

	if words == 0 || words > maxNoticeWords {
		return false
	}
	return float64(hits)/float64(words) >= noticeRatio
}
