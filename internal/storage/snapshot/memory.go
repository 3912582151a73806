// internal/storage/snapshot/memory.go
package snapshot

import (
	"sync"
	"time"

	"github.com/newthinker/breakwatch/internal/core"
	"github.com/newthinker/breakwatch/internal/metrics"
)

// MemoryStore is an in-memory snapshot store guarded by request sequence.
type MemoryStore struct {
	breakouts []core.Breakout
	status    *core.SystemStatus
	loading   bool
	next      uint64
	applied   uint64
	updatedAt time.Time
	metrics   *metrics.Registry
	mu        sync.RWMutex
}

// NewMemoryStore creates an empty store in the loading state.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		breakouts: []core.Breakout{},
		loading:   true,
	}
}

// WithMetrics records applied and discarded snapshots in reg.
func (m *MemoryStore) WithMetrics(reg *metrics.Registry) *MemoryStore {
	m.metrics = reg
	return m
}

// Begin reserves the next sequence number.
func (m *MemoryStore) Begin() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.next++
	return m.next
}

// Apply installs the snapshot when seq is newer than the last applied one.
func (m *MemoryStore) Apply(seq uint64, breakouts []core.Breakout, status *core.SystemStatus) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if seq <= m.applied {
		if m.metrics != nil {
			m.metrics.RecordSnapshot(false)
		}
		return false
	}

	m.applied = seq
	m.breakouts = append(make([]core.Breakout, 0, len(breakouts)), breakouts...)
	if status != nil {
		s := *status
		m.status = &s
	}
	m.loading = false
	m.updatedAt = time.Now()

	if m.metrics != nil {
		m.metrics.RecordSnapshot(true)
		m.metrics.SetActiveBreakouts(m.countByHorizon())
	}
	return true
}

// Breakouts returns a copy of the current set.
func (m *MemoryStore) Breakouts() []core.Breakout {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]core.Breakout, len(m.breakouts))
	copy(out, m.breakouts)
	return out
}

// Status returns a copy of the current status.
func (m *MemoryStore) Status() *core.SystemStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.status == nil {
		return nil
	}
	s := *m.status
	return &s
}

// Loading reports whether nothing has been applied yet.
func (m *MemoryStore) Loading() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading
}

// MarkLoaded clears the loading flag after failed refetch seq. A stale seq,
// such as one begun before a Reset, leaves the flag alone.
func (m *MemoryStore) MarkLoaded(seq uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if seq <= m.applied {
		return false
	}
	m.loading = false
	return true
}

// Remove drops every horizon entry for the given identity.
func (m *MemoryStore) Remove(symbol, exchange string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.breakouts[:0]
	removed := 0
	for _, b := range m.breakouts {
		if b.Is(symbol, exchange) {
			removed++
			continue
		}
		kept = append(kept, b)
	}
	m.breakouts = kept

	if removed > 0 && m.metrics != nil {
		m.metrics.SetActiveBreakouts(m.countByHorizon())
	}
	return removed
}

// Reset clears the snapshot and marks every outstanding sequence stale.
func (m *MemoryStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.breakouts = []core.Breakout{}
	m.status = nil
	m.loading = true
	m.applied = m.next
	m.updatedAt = time.Time{}

	if m.metrics != nil {
		m.metrics.SetActiveBreakouts(nil)
	}
}

// Summary reports the store's current shape.
func (m *MemoryStore) Summary() Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Summary{
		Loading:   m.loading,
		Count:     len(m.breakouts),
		Sequence:  m.applied,
		UpdatedAt: core.Timestamp{Time: m.updatedAt},
	}
	if m.status != nil {
		st := *m.status
		s.Status = &st
	}
	return s
}

func (m *MemoryStore) countByHorizon() map[string]int {
	counts := make(map[string]int)
	for _, b := range m.breakouts {
		counts[string(b.Horizon)]++
	}
	return counts
}
