// internal/storage/snapshot/interface.go
package snapshot

import (
	"github.com/newthinker/breakwatch/internal/core"
)

// Store holds the most recently accepted board snapshot.
type Store interface {
	// Begin reserves a sequence number for a refetch about to start.
	Begin() uint64

	// Apply installs the result of refetch seq unless a newer one was
	// already applied. It reports whether the result was accepted.
	Apply(seq uint64, breakouts []core.Breakout, status *core.SystemStatus) bool

	// Breakouts returns a copy of the current breakout set.
	Breakouts() []core.Breakout

	// Status returns the current system status, nil before the first apply.
	Status() *core.SystemStatus

	// Loading reports whether the initial load is still outstanding.
	Loading() bool

	// MarkLoaded clears the loading flag without installing data, unless
	// seq is already stale. It reports whether the flag was cleared.
	MarkLoaded(seq uint64) bool

	// Remove drops every entry for symbol on exchange and returns how many went.
	Remove(symbol, exchange string) int

	// Reset clears all state. Sequence numbers keep increasing.
	Reset()

	// Summary returns counts and status for reporting.
	Summary() Summary
}

// Summary is a point-in-time view of the store for status reporting.
type Summary struct {
	Loading   bool               `json:"loading"`
	Count     int                `json:"count"`
	Sequence  uint64             `json:"sequence"`
	Status    *core.SystemStatus `json:"status,omitempty"`
	UpdatedAt core.Timestamp     `json:"updated_at"`
}
