package fetch

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/chriscorrea/tally/internal/engine"
	"github.com/chriscorrea/tally/internal/extract"
)

// Defaults mirror the upload UI: plain-text logs below one million bytes.
const (
	DefaultMaxBytes    = 1000000
	DefaultConcurrency = 4
)

// DefaultExtensions are the display-name suffixes accepted out of the box.
var DefaultExtensions = []string{".txt", ".log", ".html", ".htm"}

// ErrInvalidDocument marks a document that failed the caller-side checks.
var ErrInvalidDocument = errors.New("invalid document")

// Options configures loading and validation.
type Options struct {
	MaxBytes    int64    // documents must be strictly smaller than this
	Extensions  []string // allowed name suffixes, case-insensitive
	Concurrency int      // parallel loads in LoadAll
	HTML        extract.Options

	// Progress, when set, is called by LoadAll after each source finishes.
	Progress func()
}

// DefaultOptions returns the stock loading options.
func DefaultOptions() Options {
	return Options{
		MaxBytes:    DefaultMaxBytes,
		Extensions:  slices.Clone(DefaultExtensions),
		Concurrency: DefaultConcurrency,
	}
}

// Validate checks a display name and size against the options. Errors wrap
// ErrInvalidDocument.
func (o Options) Validate(name string, size int64) error {
	ext := strings.ToLower(filepath.Ext(name))
	allowed := slices.ContainsFunc(o.extensions(), func(e string) bool {
		return strings.ToLower(e) == ext
	})
	if ext == "" || !allowed {
		return fmt.Errorf("%w: %q must end in one of %s", ErrInvalidDocument, name, strings.Join(o.extensions(), ", "))
	}
	if size >= o.maxBytes() {
		return fmt.Errorf("%w: %q is %d bytes, limit is below %d", ErrInvalidDocument, name, size, o.maxBytes())
	}
	return nil
}

// CheckAll returns an error naming every invalid document, or nil.
func CheckAll(docs []engine.Document) error {
	var invalid []string
	for _, doc := range docs {
		if !doc.Valid {
			invalid = append(invalid, doc.Name)
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(invalid, ", "))
	}
	return nil
}

// ValidOnly returns the valid documents and the names of the dropped ones.
func ValidOnly(docs []engine.Document) (valid []engine.Document, dropped []string) {
	for _, doc := range docs {
		if doc.Valid {
			valid = append(valid, doc)
		} else {
			dropped = append(dropped, doc.Name)
		}
	}
	return valid, dropped
}

func (o Options) maxBytes() int64 {
	if o.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return o.MaxBytes
}

func (o Options) extensions() []string {
	if len(o.Extensions) == 0 {
		return DefaultExtensions
	}
	return o.Extensions
}

func (o Options) concurrency() int {
	if o.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return o.Concurrency
}
