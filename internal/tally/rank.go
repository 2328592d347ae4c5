package tally

import (
	"fmt"
	"slices"
	"strings"
)

// Order is the ranking direction.
type Order int

const (
	// Desc puts the highest count first (default)
	Desc Order = iota
	// Asc puts the lowest count first
	Asc
)

// String returns the configuration spelling of the order.
func (o Order) String() string {
	switch o {
	case Desc:
		return "DESC"
	case Asc:
		return "ASC"
	default:
		return "UNKNOWN"
	}
}

// ParseOrder maps a configuration value to an Order; empty means Desc.
func ParseOrder(s string) (Order, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "DESC":
		return Desc, nil
	case "ASC":
		return Asc, nil
	default:
		return 0, fmt.Errorf("unrecognized order %q", s)
	}
}

// Rank orders the set by count in the given direction and keeps at most limit
// entries; limit 0 keeps everything. Users with equal counts stay in
// first-appearance order for both directions. An empty set ranks to an empty,
// non-nil list.
func Rank(s *Set, order Order, limit int) []UserTally {
	ranked := s.Tallies()

	slices.SortStableFunc(ranked, func(a, b UserTally) int {
		if order == Asc {
			return a.Count - b.Count
		}
		return b.Count - a.Count
	})

	if limit > 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}
	return ranked
}
