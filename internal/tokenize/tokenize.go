// Package tokenize parses raw log text into per-user attributions.
//
// Line convention (the log format contract):
//
//	[optional prefix] <user>: <content>
//
// Each line is trimmed. A leading "[...]" block (a timestamp or channel tag) and the
// whitespace after it are discarded. The user is the text before the first colon,
// trimmed, non-empty and at most MaxNameLength runes. Everything after that colon is
// the content. Lines that do not follow the convention are skipped, never reported.
package tokenize

import (
	"iter"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/chriscorrea/tally/internal/counter"
)

// MaxNameLength bounds the rune length of a user name; longer prefixes are
// treated as prose that happens to contain a colon.
const MaxNameLength = 64

// Attribution is the units one line contributes to one user.
type Attribution struct {
	User  string // case-sensitive user name
	Count int    // units in Text, always >= 1
	Text  string // the attributed content, used by enrichment stages
}

// Options tunes tokenization beyond the unit counter.
type Options struct {
	// Skip reports whether an attributable line's content should be ignored,
	// e.g. a system notice. Nil keeps every line.
	Skip func(content string) bool
}

// Line is one attributable line of a document.
type Line struct {
	User    string
	Content string
}

// ParseLine applies the line convention to a single line. ok is false when the
// line is not attributable.
func ParseLine(raw string) (line Line, ok bool) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "[") {
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return Line{}, false
		}
		s = strings.TrimLeft(s[end+1:], " \t")
	}

	name, content, found := strings.Cut(s, ":")
	if !found {
		return Line{}, false
	}

	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return Line{}, false
	}

	return Line{User: name, Content: content}, true
}

// Lines yields the attributable lines of text in document order.
func Lines(text string) iter.Seq[Line] {
	return func(yield func(Line) bool) {
		for raw := range strings.Lines(text) {
			line, ok := ParseLine(raw)
			if !ok {
				continue
			}
			if !yield(line) {
				return
			}
		}
	}
}

// Tokenize returns a single-pass sequence of attributions for text, counting each
// line's content with c. Lines whose content holds zero units yield nothing.
func Tokenize(text string, c counter.Counter, opts Options) iter.Seq[Attribution] {
	return func(yield func(Attribution) bool) {
		skipped := 0
		for line := range Lines(text) {
			if opts.Skip != nil && opts.Skip(line.Content) {
				skipped++
				continue
			}

			n := c.Count(line.Content)
			if n <= 0 {
				continue
			}

			if !yield(Attribution{User: line.User, Count: n, Text: line.Content}) {
				return
			}
		}
		if skipped > 0 {
			slog.Debug("Skipped lines during tokenization", "skipped", skipped, "counter", c.Name())
		}
	}
}
