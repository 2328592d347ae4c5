package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chriscorrea/tally/internal/counter"
	"github.com/chriscorrea/tally/internal/tally"
)

// ErrInvalidInput marks requests the engine refuses before computing anything:
// an empty batch or a configuration value outside its enumeration.
var ErrInvalidInput = errors.New("invalid input")

// Scope selects whether documents are counted together or separately.
type Scope int

const (
	// All merges every document into one tally (default)
	All Scope = iota
	// Per keeps one tally per document
	Per
)

// String returns the configuration spelling of the scope.
func (s Scope) String() string {
	switch s {
	case All:
		return "ALL"
	case Per:
		return "PER"
	default:
		return "UNKNOWN"
	}
}

// ParseScope maps a configuration value to a Scope; empty means All.
func ParseScope(s string) (Scope, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "ALL":
		return All, nil
	case "PER":
		return Per, nil
	default:
		return 0, fmt.Errorf("unrecognized scope %q", s)
	}
}

// Config is the explicit per-call configuration of the engine.
type Config struct {
	Scope Scope
	Order tally.Order
	Unit  counter.Unit
	Limit int // 0 means no truncation

	Match       string // count only messages relevant to this query
	Keywords    int    // signature terms attached to each tally
	SkipNotices bool   // drop join/part/topic notices
}

// Options is the wire form of Config as received from callers.
type Options struct {
	Scope       string `json:"scope"`
	Order       string `json:"order"`
	Unit        string `json:"unit"`
	Limit       int    `json:"limit"`
	Match       string `json:"match,omitempty"`
	Keywords    int    `json:"keywords,omitempty"`
	SkipNotices bool   `json:"skipNotices,omitempty"`
}

// ParseConfig converts caller options into a Config. Every failure wraps
// ErrInvalidInput.
func ParseConfig(o Options) (Config, error) {
	scope, err := ParseScope(o.Scope)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	order, err := tally.ParseOrder(o.Order)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	unit, err := counter.ParseUnit(o.Unit)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	cfg := Config{
		Scope:       scope,
		Order:       order,
		Unit:        unit,
		Limit:       o.Limit,
		Match:       strings.TrimSpace(o.Match),
		Keywords:    o.Keywords,
		SkipNotices: o.SkipNotices,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects out-of-range values with ErrInvalidInput.
func (c Config) Validate() error {
	switch {
	case c.Scope != All && c.Scope != Per:
		return fmt.Errorf("%w: unknown scope %d", ErrInvalidInput, int(c.Scope))
	case c.Order != tally.Desc && c.Order != tally.Asc:
		return fmt.Errorf("%w: unknown order %d", ErrInvalidInput, int(c.Order))
	case c.Unit < counter.Words || c.Unit > counter.Characters:
		return fmt.Errorf("%w: unknown unit %d", ErrInvalidInput, int(c.Unit))
	case c.Limit < 0:
		return fmt.Errorf("%w: limit must be non-negative, got %d", ErrInvalidInput, c.Limit)
	case c.Keywords < 0:
		return fmt.Errorf("%w: keywords must be non-negative, got %d", ErrInvalidInput, c.Keywords)
	}
	return nil
}

// Options returns the wire form of c.
func (c Config) Options() Options {
	return Options{
		Scope:       c.Scope.String(),
		Order:       c.Order.String(),
		Unit:        c.Unit.String(),
		Limit:       c.Limit,
		Match:       c.Match,
		Keywords:    c.Keywords,
		SkipNotices: c.SkipNotices,
	}
}
