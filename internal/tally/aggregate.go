// Package tally accumulates attributions into per-user totals and ranks them.
package tally

import (
	"iter"

	"github.com/chriscorrea/tally/internal/tokenize"
)

// UserTally is one user's accumulated count within a scope.
type UserTally struct {
	Name     string   `json:"name"`
	Count    int      `json:"count"`
	Keywords []string `json:"keywords,omitempty"`
}

// Set holds one tally per distinct user observed in a scope. Entries keep the
// order in which users first appeared; Rank uses that order to break ties.
type Set struct {
	entries []UserTally
	index   map[string]int
}

// NewSet creates an empty tally set.
func NewSet() *Set {
	return &Set{index: make(map[string]int)}
}

// Add credits contribution units to name, creating the entry on first sight.
// Non-positive contributions are ignored so the set never holds zero-count users.
func (s *Set) Add(name string, contribution int) {
	if contribution <= 0 {
		return
	}
	i, ok := s.index[name]
	if !ok {
		i = len(s.entries)
		s.index[name] = i
		s.entries = append(s.entries, UserTally{Name: name})
	}
	s.entries[i].Count += contribution
}

// Len returns the number of distinct users.
func (s *Set) Len() int {
	return len(s.entries)
}

// Count returns the total for name, or 0 when the user was never seen.
func (s *Set) Count(name string) int {
	if i, ok := s.index[name]; ok {
		return s.entries[i].Count
	}
	return 0
}

// Total returns the sum of all counts in the set.
func (s *Set) Total() int {
	total := 0
	for _, e := range s.entries {
		total += e.Count
	}
	return total
}

// SetKeywords attaches signature terms to an existing user's entry.
func (s *Set) SetKeywords(name string, keywords []string) {
	if i, ok := s.index[name]; ok {
		s.entries[i].Keywords = keywords
	}
}

// Tallies returns a copy of the entries in first-appearance order.
func (s *Set) Tallies() []UserTally {
	out := make([]UserTally, len(s.entries))
	copy(out, s.entries)
	return out
}

// Aggregate walks units once and sums contributions per user.
func Aggregate(units iter.Seq[tokenize.Attribution]) *Set {
	s := NewSet()
	for u := range units {
		s.Add(u.User, u.Count)
	}
	return s
}
