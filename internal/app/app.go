package app

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/newthinker/breakwatch/internal/config"
	"github.com/newthinker/breakwatch/internal/core"
	"github.com/newthinker/breakwatch/internal/feed"
	"github.com/newthinker/breakwatch/internal/hidden"
	"github.com/newthinker/breakwatch/internal/metrics"
	"github.com/newthinker/breakwatch/internal/notifier"
	"github.com/newthinker/breakwatch/internal/router"
	"github.com/newthinker/breakwatch/internal/storage/snapshot"
	"github.com/newthinker/breakwatch/internal/view"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultExchange is selected when configuration names none.
const DefaultExchange = string(core.ExchangeNSE)

// Backend is the data access surface the dashboard needs.
type Backend interface {
	Breakouts(ctx context.Context, exchange string) ([]core.Breakout, error)
	Status(ctx context.Context) (*core.SystemStatus, error)
	Dismiss(ctx context.Context, symbol, exchange string) error
	hidden.Backend
}

// Synchronizer keeps one exchange's snapshot fresh.
type Synchronizer interface {
	Start(ctx context.Context) error
	Stop()
	State() feed.State
}

// SyncFactory builds the synchronizer for an exchange.
type SyncFactory func(exchange string, refetch feed.RefetchFunc) Synchronizer

// Option configures an App.
type Option func(*App)

// WithMetrics records application metrics in reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(a *App) { a.metrics = reg }
}

// WithSyncFactory replaces the push channel synchronizer.
func WithSyncFactory(f SyncFactory) Option {
	return func(a *App) { a.newSync = f }
}

// Report is the dashboard status shown next to the board.
type Report struct {
	Exchange  string             `json:"exchange"`
	Loading   bool               `json:"loading"`
	FeedState feed.State         `json:"feed_state"`
	Status    *core.SystemStatus `json:"status,omitempty"`
	Count     int                `json:"count"`
	UpdatedAt core.Timestamp     `json:"updated_at"`
}

// App is the dashboard orchestrator: it owns the snapshot store, the
// synchronizer for the selected exchange and the per-bucket sort states.
type App struct {
	cfg       *config.Config
	backend   Backend
	logger    *zap.Logger
	metrics   *metrics.Registry
	notifiers *notifier.Registry
	router    *router.Router
	store     snapshot.Store
	newSync   SyncFactory
	updates   chan struct{}

	switchMu sync.Mutex

	mu       sync.RWMutex
	exchange string
	sync     Synchronizer
	sorts    *view.Sorts
	running  bool
	runCtx   context.Context
}

// New creates a new App instance
func New(cfg *config.Config, backend Backend, logger *zap.Logger, opts ...Option) *App {
	if cfg == nil {
		cfg = config.Defaults()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{
		cfg:       cfg,
		backend:   backend,
		logger:    logger,
		notifiers: notifier.NewRegistry(),
		updates:   make(chan struct{}, 1),
		sorts:     view.NewSorts(),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.store = snapshot.NewMemoryStore().WithMetrics(a.metrics)
	if a.newSync == nil {
		a.newSync = a.feedSync
	}
	if cfg.Router.Enabled {
		a.router = router.New(routerConfig(cfg.Router), a.notifiers, logger.Named("router"))
		a.router.SetMetrics(a.metrics)
	}

	return a
}

func routerConfig(rc config.RouterConfig) router.Config {
	out := router.DefaultConfig()
	out.MinPct = rc.MinPct
	out.ConfirmedOnly = rc.ConfirmedOnly
	if rc.Cooldown > 0 {
		out.CooldownDuration = rc.Cooldown
	}
	for _, h := range rc.Horizons {
		out.Horizons = append(out.Horizons, core.Horizon(strings.ToUpper(h)))
	}
	return out
}

func (a *App) feedSync(exchange string, refetch feed.RefetchFunc) Synchronizer {
	cfg := feed.Config{
		URL:              a.cfg.Backend.FeedURL,
		ReconnectDelay:   a.cfg.Feed.ReconnectDelay,
		FailsafeInterval: a.cfg.Feed.FailsafeInterval,
		HandshakeTimeout: a.cfg.Feed.HandshakeTimeout,
	}
	return feed.New(cfg, refetch,
		feed.WithLogger(a.logger.Named("feed").With(zap.String("exchange", exchange))),
		feed.WithMetrics(a.metrics),
	)
}

// RegisterNotifier adds a notifier to the app
func (a *App) RegisterNotifier(n notifier.Notifier) error {
	return a.notifiers.Register(n)
}

// Run selects the configured exchange and keeps it synchronized until ctx is done.
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app already running")
	}
	a.running = true
	a.runCtx = ctx
	a.mu.Unlock()

	exchange := a.defaultExchange()

	a.logger.Info("breakwatch starting",
		zap.String("exchange", exchange),
		zap.String("backend", a.cfg.Backend.BaseURL),
		zap.Int("notifiers", a.notifiers.Len()),
	)

	if err := a.SelectExchange(ctx, exchange); err != nil {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
		return err
	}
	if a.router != nil {
		a.router.StartCleanupRoutine(ctx, routerConfig(a.cfg.Router).CooldownDuration)
	}

	<-ctx.Done()
	a.logger.Info("breakwatch shutting down")

	a.switchMu.Lock()
	a.stopSync()
	a.mu.Lock()
	a.running = false
	a.mu.Unlock()
	a.switchMu.Unlock()

	return ctx.Err()
}

func (a *App) defaultExchange() string {
	if ex := strings.ToUpper(strings.TrimSpace(a.cfg.Backend.DefaultExchange)); ex != "" {
		return ex
	}
	return DefaultExchange
}

// SelectExchange tears down the current synchronizer and snapshot and
// rebuilds both for exchange. Sort states start over.
func (a *App) SelectExchange(ctx context.Context, exchange string) error {
	exchange = strings.ToUpper(strings.TrimSpace(exchange))
	if exchange == "" {
		return core.WrapError(core.ErrInvalidRequest, fmt.Errorf("exchange is required"))
	}

	a.switchMu.Lock()
	defer a.switchMu.Unlock()

	a.mu.RLock()
	runCtx := a.runCtx
	a.mu.RUnlock()
	if runCtx != nil && runCtx.Err() != nil {
		return core.WrapError(core.ErrFeedStopped, fmt.Errorf("dashboard is shut down"))
	}

	a.stopSync()

	a.store.Reset()
	if a.router != nil {
		a.router.Forget(exchange)
	}

	s := a.newSync(exchange, func(ctx context.Context, trigger feed.Trigger) {
		if err := a.refetch(ctx, exchange, trigger); err != nil {
			a.logger.Warn("refetch failed",
				zap.String("exchange", exchange),
				zap.String("trigger", string(trigger)),
				zap.Error(err),
			)
		}
	})

	a.mu.Lock()
	a.exchange = exchange
	a.sorts = view.NewSorts()
	a.sync = s
	a.mu.Unlock()

	if runCtx == nil {
		runCtx = ctx
	}
	a.notify()
	a.logger.Info("exchange selected", zap.String("exchange", exchange))
	return s.Start(runCtx)
}

func (a *App) stopSync() {
	a.mu.Lock()
	s := a.sync
	a.sync = nil
	a.mu.Unlock()

	if s != nil {
		s.Stop()
	}
}

// Exchange returns the selected exchange.
func (a *App) Exchange() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.exchange
}

// Refetch performs a full refetch for the selected exchange. The exchange
// and the sequence are taken together so a concurrent switch cannot pair the
// old exchange with a sequence newer than its Reset.
func (a *App) Refetch(ctx context.Context) error {
	a.switchMu.Lock()
	exchange := a.Exchange()
	if exchange == "" {
		exchange = a.defaultExchange()
	}
	seq := a.store.Begin()
	a.switchMu.Unlock()

	if a.metrics != nil {
		a.metrics.RecordRefetch(string(feed.TriggerManual))
	}
	return a.fetch(ctx, exchange, seq, feed.TriggerManual)
}

// refetch serves synchronizer triggers. The synchronizer for exchange is
// stopped, and its in-flight callbacks drained, before the store is Reset.
func (a *App) refetch(ctx context.Context, exchange string, trigger feed.Trigger) error {
	return a.fetch(ctx, exchange, a.store.Begin(), trigger)
}

// fetch loads breakouts and status concurrently and applies them unless
// a newer refetch has already been applied.
func (a *App) fetch(ctx context.Context, exchange string, seq uint64, trigger feed.Trigger) error {
	var (
		breakouts []core.Breakout
		status    *core.SystemStatus
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		breakouts, err = a.backend.Breakouts(gctx, exchange)
		return err
	})
	g.Go(func() error {
		var err error
		status, err = a.backend.Status(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		if a.store.MarkLoaded(seq) {
			a.notify()
		}
		return err
	}

	if !a.store.Apply(seq, breakouts, status) {
		a.logger.Debug("stale snapshot discarded",
			zap.String("exchange", exchange),
			zap.Uint64("seq", seq),
		)
		return nil
	}

	a.logger.Debug("snapshot applied",
		zap.String("exchange", exchange),
		zap.String("trigger", string(trigger)),
		zap.Uint64("seq", seq),
		zap.Int("breakouts", len(breakouts)),
	)
	if a.router != nil {
		a.router.Observe(ctx, exchange, breakouts)
	}
	a.notify()
	return nil
}

// Dismiss hides a breakout on the backend, then drops it locally. symbol and
// exchange are sent exactly as the backend reported them, since they form its
// dismissal key. Local state is untouched when the backend call fails.
func (a *App) Dismiss(ctx context.Context, symbol, exchange string) error {
	if strings.TrimSpace(symbol) == "" || strings.TrimSpace(exchange) == "" {
		return core.WrapError(core.ErrInvalidRequest, fmt.Errorf("symbol and exchange are required"))
	}

	if err := a.backend.Dismiss(ctx, symbol, exchange); err != nil {
		a.logger.Error("dismiss failed",
			zap.String("symbol", symbol),
			zap.String("exchange", exchange),
			zap.Error(err),
		)
		return err
	}

	removed := a.store.Remove(symbol, exchange)
	a.logger.Info("breakout dismissed",
		zap.String("symbol", symbol),
		zap.String("exchange", exchange),
		zap.Int("removed", removed),
	)
	a.notify()
	return nil
}

// Board derives the seven buckets for the current snapshot.
func (a *App) Board(f view.Filter) view.Board {
	breakouts := a.store.Breakouts()

	a.mu.RLock()
	defer a.mu.RUnlock()
	return view.Build(a.exchange, breakouts, f, a.sorts)
}

// ToggleSort advances the sort of one bucket.
func (a *App) ToggleSort(bucket string, key core.SortKey) (view.Directive, error) {
	a.mu.Lock()
	d, err := a.sorts.Toggle(bucket, key)
	a.mu.Unlock()

	if err == nil {
		a.notify()
	}
	return d, err
}

// Hidden returns a dismissed-list view bound to the backend.
func (a *App) Hidden() *hidden.List {
	return hidden.New(a.backend, a.logger.Named("hidden"))
}

// Updates delivers a signal whenever the board may have changed.
func (a *App) Updates() <-chan struct{} {
	return a.updates
}

func (a *App) notify() {
	select {
	case a.updates <- struct{}{}:
	default:
	}
}

// Report returns the current loading, feed and market status.
func (a *App) Report() Report {
	summary := a.store.Summary()

	a.mu.RLock()
	defer a.mu.RUnlock()

	state := feed.StateDisconnected
	if a.sync != nil {
		state = a.sync.State()
	}
	return Report{
		Exchange:  a.exchange,
		Loading:   summary.Loading,
		FeedState: state,
		Status:    summary.Status,
		Count:     summary.Count,
		UpdatedAt: summary.UpdatedAt,
	}
}

// GetStats returns application statistics
func (a *App) GetStats() map[string]any {
	report := a.Report()

	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := map[string]any{
		"running":    a.running,
		"exchange":   report.Exchange,
		"feed_state": report.FeedState,
		"breakouts":  report.Count,
		"loading":    report.Loading,
		"notifiers":  a.notifiers.Len(),
	}
	if a.router != nil {
		stats["router"] = a.router.GetStats()
	}
	return stats
}
