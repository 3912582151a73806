// Package hidden manages the dismissed-breakouts list and restoring entries from it.
package hidden

import (
	"context"
	"sync"

	"github.com/newthinker/breakwatch/internal/core"
	"go.uber.org/zap"
)

// Backend is the subset of the data access client the list needs.
type Backend interface {
	Dismissed(ctx context.Context) ([]string, error)
	Restore(ctx context.Context, symbol, exchange string) error
}

// List is a cached view of the dismissed identifiers.
type List struct {
	backend Backend
	logger  *zap.Logger

	mu    sync.RWMutex
	items []string
	open  bool
}

// New creates a closed list bound to backend.
func New(backend Backend, logger *zap.Logger) *List {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &List{backend: backend, logger: logger}
}

// Open loads the dismissed identifiers. A failed read yields an empty list.
func (l *List) Open(ctx context.Context) ([]string, error) {
	ids, err := l.backend.Dismissed(ctx)
	if err != nil {
		l.logger.Warn("loading dismissed list", zap.Error(err))
		ids = nil
	}
	if ids == nil {
		ids = []string{}
	}

	l.mu.Lock()
	l.items = ids
	l.open = true
	l.mu.Unlock()

	return l.Items(), nil
}

// Restore un-dismisses key on the backend and drops it from the list.
// On failure the list is left untouched.
func (l *List) Restore(ctx context.Context, key string) error {
	k, err := core.ParseDismissKey(key)
	if err != nil {
		return err
	}

	if err := l.backend.Restore(ctx, k.Symbol, k.Exchange); err != nil {
		l.logger.Error("restore failed", zap.String("key", key), zap.Error(err))
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	kept := make([]string, 0, len(l.items))
	for _, item := range l.items {
		if item != key {
			kept = append(kept, item)
		}
	}
	l.items = kept
	l.logger.Info("breakout restored", zap.String("symbol", k.Symbol), zap.String("exchange", k.Exchange))
	return nil
}

// Items returns a copy of the cached identifiers.
func (l *List) Items() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]string, len(l.items))
	copy(out, l.items)
	return out
}

// IsOpen reports whether the list is loaded.
func (l *List) IsOpen() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.open
}

// Close drops the cache.
func (l *List) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = nil
	l.open = false
}
