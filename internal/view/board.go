package view

import (
	"fmt"

	"github.com/newthinker/breakwatch/internal/core"
)

// Bucket is one displayed horizon group.
type Bucket struct {
	ID      string          `json:"id"`
	Title   string          `json:"title"`
	Horizon core.Horizon    `json:"horizon"`
	Sort    *Directive      `json:"sort,omitempty"`
	Rows    []core.Breakout `json:"rows"`
}

// Board is the derived dashboard for one exchange. Total counts every entry
// of the snapshot, D50 included; Shown counts the rows left in the buckets
// after filtering.
type Board struct {
	Exchange string   `json:"exchange"`
	Filter   Filter   `json:"filter"`
	Buckets  []Bucket `json:"buckets"`
	Total    int      `json:"total"`
	Shown    int      `json:"shown"`
}

// Sorts holds one SortState per bucket.
type Sorts struct {
	states map[string]*SortState
}

// NewSorts creates a fresh set of sort states with no directives.
func NewSorts() *Sorts {
	s := &Sorts{states: make(map[string]*SortState)}
	for _, g := range core.Groups() {
		s.states[g.ID] = &SortState{}
	}
	return s
}

// Toggle advances the sort of the bucket named by group (id or horizon tag).
func (s *Sorts) Toggle(group string, key core.SortKey) (Directive, error) {
	g, ok := core.GroupByID(group)
	if !ok {
		return Directive{}, core.WrapError(core.ErrUnknownGroup, fmt.Errorf("%q", group))
	}
	return s.states[g.ID].Toggle(key), nil
}

// State returns the sort state of a bucket, nil for an unknown id.
func (s *Sorts) State(id string) *SortState {
	return s.states[id]
}

// Build derives the seven buckets from breakouts: each bucket is
// filtered with f and then sorted by its own state.
func Build(exchange string, breakouts []core.Breakout, f Filter, sorts *Sorts) Board {
	if sorts == nil {
		sorts = NewSorts()
	}

	board := Board{
		Exchange: exchange,
		Filter:   f,
		Buckets:  make([]Bucket, 0, len(core.Groups())),
		Total:    len(breakouts),
	}
	for _, g := range core.Groups() {
		state := sorts.State(g.ID)
		bucket := Bucket{
			ID:      g.ID,
			Title:   g.Title,
			Horizon: g.Horizon,
			Rows:    state.Apply(ForGroup(breakouts, g.Horizon, f)),
		}
		if d, ok := state.Directive(); ok {
			bucket.Sort = &d
		}
		board.Shown += len(bucket.Rows)
		board.Buckets = append(board.Buckets, bucket)
	}
	return board
}

// Bucket returns the bucket with the given id.
func (b Board) Bucket(id string) (Bucket, bool) {
	for _, bucket := range b.Buckets {
		if bucket.ID == id {
			return bucket, true
		}
	}
	return Bucket{}, false
}
