// Package feed keeps the board in step with the backend: it listens on the
// push channel for update notifications, reconnects after a fixed delay, and
// runs a fail-safe poll that is independent of channel health.
package feed

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/newthinker/breakwatch/internal/core"
	"github.com/newthinker/breakwatch/internal/metrics"
	"go.uber.org/zap"
)

// State is the lifecycle state of the push channel.
type State string

const (
	StateDisconnected  State = "DISCONNECTED"
	StateConnecting    State = "CONNECTING"
	StateConnected     State = "CONNECTED"
	StateAwaitingRetry State = "AWAITING_RETRY"
	StateStopped       State = "STOPPED"
)

// Trigger names the cause of a refetch.
type Trigger string

const (
	TriggerInitial  Trigger = "initial"
	TriggerUpdate   Trigger = "update"
	TriggerFailsafe Trigger = "failsafe"
	TriggerManual   Trigger = "manual"
)

// UpdateMessage is the only push message type acted upon.
const UpdateMessage = "update"

// RefetchFunc performs one full refetch of breakouts and status.
type RefetchFunc func(ctx context.Context, trigger Trigger)

// Config configures a Synchronizer.
type Config struct {
	URL              string
	ReconnectDelay   time.Duration
	FailsafeInterval time.Duration
	HandshakeTimeout time.Duration
}

// DefaultConfig returns the stock push address and timings.
func DefaultConfig() Config {
	return Config{
		URL:              "ws://localhost:8000/ws",
		ReconnectDelay:   3 * time.Second,
		FailsafeInterval: 60 * time.Second,
		HandshakeTimeout: 10 * time.Second,
	}
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Synchronizer) { s.logger = logger }
}

// WithMetrics records feed activity in reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(s *Synchronizer) { s.metrics = reg }
}

type message struct {
	Type string `json:"type"`
}

// Synchronizer owns one push channel connection, at most one pending
// reconnect timer, and the fail-safe ticker.
type Synchronizer struct {
	cfg     Config
	refetch RefetchFunc
	dialer  *websocket.Dialer
	logger  *zap.Logger
	metrics *metrics.Registry

	mu      sync.Mutex
	state   State
	conn    *websocket.Conn
	timer   *time.Timer
	started bool
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a synchronizer that calls refetch on every trigger.
func New(cfg Config, refetch RefetchFunc, opts ...Option) *Synchronizer {
	def := DefaultConfig()
	if cfg.URL == "" {
		cfg.URL = def.URL
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = def.ReconnectDelay
	}
	if cfg.FailsafeInterval <= 0 {
		cfg.FailsafeInterval = def.FailsafeInterval
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}

	s := &Synchronizer{
		cfg:     cfg,
		refetch: refetch,
		dialer:  &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		logger:  zap.NewNop(),
		state:   StateDisconnected,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current channel state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start issues the initial refetch, opens the push channel and starts the
// fail-safe ticker. It returns immediately.
func (s *Synchronizer) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return core.ErrFeedStopped
	}
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.logger.Info("feed starting",
		zap.String("url", s.cfg.URL),
		zap.Duration("reconnect_delay", s.cfg.ReconnectDelay),
		zap.Duration("failsafe_interval", s.cfg.FailsafeInterval),
	)

	s.spawnRefetch(TriggerInitial)
	s.spawn(s.failsafeLoop)
	s.connect()
	return nil
}

// Stop cancels the fail-safe ticker and any pending reconnect, then closes
// the channel and waits for the goroutines it owns. Safe to call repeatedly.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.state = StateStopped
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	conn := s.conn
	s.conn = nil
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}

	s.wg.Wait()
	if s.metrics != nil {
		s.metrics.SetFeedConnected(false)
	}
	s.logger.Info("feed stopped")
}

// spawn runs fn on a goroutine owned by the synchronizer. Nothing is
// started once Stop has begun.
func (s *Synchronizer) spawn(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
	return true
}

func (s *Synchronizer) spawnRefetch(trigger Trigger) {
	if s.spawn(func() { s.refetch(s.ctx, trigger) }) && s.metrics != nil {
		s.metrics.RecordRefetch(string(trigger))
	}
}

func (s *Synchronizer) connect() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.state = StateConnecting
	s.mu.Unlock()

	s.spawn(func() {
		conn, _, err := s.dialer.DialContext(s.ctx, s.cfg.URL, nil)
		if err != nil {
			s.logger.Warn("feed dial failed", zap.String("url", s.cfg.URL), zap.Error(err))
			s.onDisconnect(nil, err)
			return
		}

		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			_ = conn.Close()
			return
		}
		s.conn = conn
		s.state = StateConnected
		s.mu.Unlock()

		if s.metrics != nil {
			s.metrics.SetFeedConnected(true)
		}
		s.logger.Info("feed connected", zap.String("url", s.cfg.URL))
		s.readLoop(conn)
	})
}

func (s *Synchronizer) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.onDisconnect(conn, err)
			return
		}

		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warn("malformed feed message", zap.Int("bytes", len(data)), zap.Error(err))
			if s.metrics != nil {
				s.metrics.RecordMalformed()
			}
			continue
		}
		if s.metrics != nil {
			s.metrics.RecordFeedMessage(msg.Type)
		}
		if msg.Type == UpdateMessage {
			s.spawnRefetch(TriggerUpdate)
		}
	}
}

// onDisconnect closes conn if it is still the live connection and
// schedules a reconnect unless one is already pending.
func (s *Synchronizer) onDisconnect(conn *websocket.Conn, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conn != nil && s.conn == conn {
		s.conn = nil
		_ = conn.Close()
		if s.metrics != nil {
			s.metrics.SetFeedConnected(false)
		}
	}
	if s.stopped || s.ctx.Err() != nil {
		return
	}
	if s.timer != nil {
		return
	}

	s.state = StateAwaitingRetry
	s.timer = time.AfterFunc(s.cfg.ReconnectDelay, s.reconnect)
	if s.metrics != nil {
		s.metrics.RecordReconnect()
	}
	s.logger.Info("feed disconnected, reconnect scheduled",
		zap.Duration("delay", s.cfg.ReconnectDelay),
		zap.Error(err),
	)
}

func (s *Synchronizer) reconnect() {
	s.mu.Lock()
	s.timer = nil
	stopped := s.stopped
	s.mu.Unlock()

	if !stopped {
		s.connect()
	}
}

func (s *Synchronizer) failsafeLoop() {
	ticker := time.NewTicker(s.cfg.FailsafeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.spawnRefetch(TriggerFailsafe)
		}
	}
}
