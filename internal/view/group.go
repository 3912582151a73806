// Package view derives the dashboard board from a snapshot: one bucket per
// display horizon, filtered by symbol search and direction, then sorted.
package view

import (
	"strings"

	"github.com/newthinker/breakwatch/internal/core"
)

// Filter narrows every bucket the same way.
type Filter struct {
	Search    string         `json:"search"`
	Direction core.Direction `json:"direction"`
}

// Matches reports whether b passes the search and direction filters.
func (f Filter) Matches(b core.Breakout) bool {
	if term := strings.ToUpper(strings.TrimSpace(f.Search)); term != "" {
		if !strings.Contains(strings.ToUpper(b.Symbol), term) {
			return false
		}
	}
	return f.Direction.Matches(b.BreakoutPct)
}

// ForGroup returns the breakouts tagged with horizon that pass f, in input order.
func ForGroup(breakouts []core.Breakout, horizon core.Horizon, f Filter) []core.Breakout {
	out := []core.Breakout{}
	for _, b := range breakouts {
		if b.Horizon != horizon {
			continue
		}
		if f.Matches(b) {
			out = append(out, b)
		}
	}
	return out
}

// Partition splits breakouts by horizon tag without filtering. Every known
// tag is present in the result, D50 included.
func Partition(breakouts []core.Breakout) map[core.Horizon][]core.Breakout {
	parts := make(map[core.Horizon][]core.Breakout, len(core.Horizons()))
	for _, h := range core.Horizons() {
		parts[h] = []core.Breakout{}
	}
	for _, b := range breakouts {
		parts[b.Horizon] = append(parts[b.Horizon], b)
	}
	return parts
}

// Search applies only the symbol search part of a filter.
func Search(breakouts []core.Breakout, term string) []core.Breakout {
	f := Filter{Search: term}
	out := []core.Breakout{}
	for _, b := range breakouts {
		if f.Matches(b) {
			out = append(out, b)
		}
	}
	return out
}
