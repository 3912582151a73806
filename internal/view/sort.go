package view

import (
	"sort"

	"github.com/newthinker/breakwatch/internal/core"
)

// Directive is the active sort of one bucket.
type Directive struct {
	Key   core.SortKey   `json:"key"`
	Order core.SortOrder `json:"order"`
}

// SortState tracks the sort directive of a single bucket. The zero value
// has no directive and leaves rows in input order.
type SortState struct {
	directive *Directive
}

// Toggle advances the directive for a header click on key. Clicking the
// active key while descending switches to ascending; every other click
// sorts key descending.
func (s *SortState) Toggle(key core.SortKey) Directive {
	order := core.SortDesc
	if s.directive != nil && s.directive.Key == key && s.directive.Order == core.SortDesc {
		order = core.SortAsc
	}
	s.directive = &Directive{Key: key, Order: order}
	return *s.directive
}

// Directive returns the active directive, if any.
func (s *SortState) Directive() (Directive, bool) {
	if s.directive == nil {
		return Directive{}, false
	}
	return *s.directive, true
}

// Clear drops the directive.
func (s *SortState) Clear() {
	s.directive = nil
}

// Apply returns a sorted copy of rows. Ties keep their input order.
func (s *SortState) Apply(rows []core.Breakout) []core.Breakout {
	out := make([]core.Breakout, len(rows))
	copy(out, rows)
	if s.directive == nil {
		return out
	}

	key, asc := s.directive.Key, s.directive.Order == core.SortAsc
	sort.SliceStable(out, func(i, j int) bool {
		if asc {
			return key.Value(out[i]) < key.Value(out[j])
		}
		return key.Value(out[i]) > key.Value(out[j])
	})
	return out
}
