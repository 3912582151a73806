// Package router turns accepted board snapshots into new-breakout alerts.
package router

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/newthinker/breakwatch/internal/core"
	"github.com/newthinker/breakwatch/internal/metrics"
	"github.com/newthinker/breakwatch/internal/notifier"
	"go.uber.org/zap"
)

// Config holds router configuration
type Config struct {
	MinPct           float64        `mapstructure:"min_pct"`
	ConfirmedOnly    bool           `mapstructure:"confirmed_only"`
	Horizons         []core.Horizon `mapstructure:"horizons"`
	CooldownDuration time.Duration  `mapstructure:"cooldown"`
}

// DefaultConfig returns default router configuration
func DefaultConfig() Config {
	return Config{
		CooldownDuration: 1 * time.Hour,
	}
}

// Router detects breakouts that are new since the previous accepted
// snapshot of the same exchange and routes them to notifiers.
type Router struct {
	cfg       Config
	registry  *notifier.Registry
	logger    *zap.Logger
	metrics   *metrics.Registry
	now       func() time.Time
	previous  map[string]map[string]struct{} // exchange -> breakout keys
	cooldowns map[string]time.Time           // breakout key -> last alert time
	mu        sync.RWMutex
}

// New creates a new breakout router
func New(cfg Config, registry *notifier.Registry, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		cfg:       cfg,
		registry:  registry,
		logger:    logger,
		now:       time.Now,
		previous:  make(map[string]map[string]struct{}),
		cooldowns: make(map[string]time.Time),
	}
}

// SetMetrics records alert deliveries in reg.
func (r *Router) SetMetrics(reg *metrics.Registry) {
	r.metrics = reg
}

func alertKey(b core.Breakout) string {
	return b.Exchange + ":" + b.Symbol + ":" + string(b.Horizon)
}

// Observe records an accepted snapshot for exchange and routes the
// breakouts absent from the previous one. The first snapshot seen for an
// exchange only primes the baseline. It returns the breakouts routed.
func (r *Router) Observe(ctx context.Context, exchange string, breakouts []core.Breakout) []core.Breakout {
	keys := make(map[string]struct{}, len(breakouts))
	for _, b := range breakouts {
		keys[alertKey(b)] = struct{}{}
	}

	r.mu.Lock()
	prev, primed := r.previous[exchange]
	r.previous[exchange] = keys
	r.mu.Unlock()

	if !primed {
		r.logger.Debug("alert baseline primed",
			zap.String("exchange", exchange),
			zap.Int("breakouts", len(breakouts)),
		)
		return nil
	}

	var fresh []core.Breakout
	for _, b := range breakouts {
		if _, seen := prev[alertKey(b)]; !seen {
			fresh = append(fresh, b)
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	routed, err := r.RouteBatch(ctx, fresh)
	if err != nil {
		r.logger.Error("routing new breakouts", zap.Error(err))
	}
	return routed
}

// Forget drops the baseline for exchange so its next snapshot primes again.
func (r *Router) Forget(exchange string) {
	r.mu.Lock()
	delete(r.previous, exchange)
	r.mu.Unlock()
}

// Route processes a breakout through filters and sends to notifiers
func (r *Router) Route(ctx context.Context, breakout core.Breakout) error {
	_, err := r.RouteBatch(ctx, []core.Breakout{breakout})
	return err
}

// RouteBatch filters breakouts and sends the survivors as one batch.
// Notifier failures are logged, never returned.
func (r *Router) RouteBatch(ctx context.Context, breakouts []core.Breakout) ([]core.Breakout, error) {
	var filtered []core.Breakout

	for _, b := range breakouts {
		if !r.passesFilters(b) {
			r.logger.Debug("breakout filtered out",
				zap.String("symbol", b.Symbol),
				zap.String("horizon", string(b.Horizon)),
				zap.Float64("pct", b.BreakoutPct),
			)
			continue
		}
		filtered = append(filtered, b)

		r.mu.Lock()
		r.cooldowns[alertKey(b)] = r.now()
		r.mu.Unlock()
	}

	if len(filtered) == 0 {
		return nil, nil
	}

	// nil registry is allowed
	if r.registry == nil {
		return filtered, nil
	}

	errors := r.registry.NotifyAllBatch(ctx, filtered)
	for _, n := range r.registry.GetAll() {
		status := "ok"
		if err, failed := errors[n.Name()]; failed {
			status = "error"
			r.logger.Error("notifier failed on batch",
				zap.String("notifier", n.Name()),
				zap.Error(err),
			)
		}
		if r.metrics != nil {
			r.metrics.RecordAlertRouted(n.Name(), status)
		}
	}

	r.logger.Info("batch routed",
		zap.Int("total", len(breakouts)),
		zap.Int("filtered", len(filtered)),
		zap.Int("notifiers", r.registry.Len()),
		zap.Int("errors", len(errors)),
	)

	return filtered, nil
}

// passesFilters checks if a breakout passes all configured filters
func (r *Router) passesFilters(b core.Breakout) bool {
	if math.Abs(b.BreakoutPct) < r.cfg.MinPct {
		return false
	}

	if r.cfg.ConfirmedOnly && !b.VolumeConfirmation {
		return false
	}

	if len(r.cfg.Horizons) > 0 {
		allowed := false
		for _, h := range r.cfg.Horizons {
			if b.Horizon == h {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}

	r.mu.RLock()
	last, exists := r.cooldowns[alertKey(b)]
	r.mu.RUnlock()

	if exists && r.now().Sub(last) < r.cfg.CooldownDuration {
		return false
	}

	return true
}

// ClearCooldown removes the cooldown for one breakout
func (r *Router) ClearCooldown(b core.Breakout) {
	r.mu.Lock()
	delete(r.cooldowns, alertKey(b))
	r.mu.Unlock()
}

// ClearAllCooldowns removes all cooldowns
func (r *Router) ClearAllCooldowns() {
	r.mu.Lock()
	r.cooldowns = make(map[string]time.Time)
	r.mu.Unlock()
}

// CleanupExpiredCooldowns removes cooldown entries older than 2x the cooldown duration.
func (r *Router) CleanupExpiredCooldowns() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	expiry := r.cfg.CooldownDuration * 2
	removed := 0

	for key, lastTime := range r.cooldowns {
		if now.Sub(lastTime) > expiry {
			delete(r.cooldowns, key)
			removed++
		}
	}

	return removed
}

// StartCleanupRoutine starts a background goroutine that periodically cleans up expired cooldowns.
func (r *Router) StartCleanupRoutine(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed := r.CleanupExpiredCooldowns()
				if removed > 0 {
					r.logger.Debug("cleaned up expired cooldowns", zap.Int("removed", removed))
				}
			}
		}
	}()
}

// GetStats returns router statistics
func (r *Router) GetStats() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return map[string]any{
		"cooldowns_active":  len(r.cooldowns),
		"exchanges_tracked": len(r.previous),
		"min_pct":           r.cfg.MinPct,
		"confirmed_only":    r.cfg.ConfirmedOnly,
		"cooldown_seconds":  r.cfg.CooldownDuration.Seconds(),
		"horizons":          r.cfg.Horizons,
	}
}
