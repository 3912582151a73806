// internal/api/server.go
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	apihandler "github.com/newthinker/breakwatch/internal/api/handler/api"
	"github.com/newthinker/breakwatch/internal/api/middleware"
	"github.com/newthinker/breakwatch/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the local HTTP API for breakwatch
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	MetricsPath string
}

// Dependencies holds the components the handlers are bound to.
type Dependencies struct {
	App     apihandler.Dashboard
	Metrics *metrics.Registry
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.App == nil {
		return nil, errors.New("dashboard is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	s := &Server{logger: logger, mux: mux}
	s.setupRoutes(cfg, deps)

	mws := []func(http.Handler) http.Handler{
		middleware.Recover(logger),
		metrics.LoggingMiddleware(logger),
	}
	if deps.Metrics != nil {
		mws = append(mws, metrics.HTTPMiddleware(deps.Metrics))
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      middleware.Chain(mux, mws...),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) {
	board := apihandler.NewBoardHandler(deps.App)
	status := apihandler.NewStatusHandler(deps.App)
	dismiss := apihandler.NewDismissHandler(deps.App)

	s.mux.HandleFunc("GET /api/board", board.Get)
	s.mux.HandleFunc("POST /api/board/sort", board.Sort)
	s.mux.HandleFunc("GET /api/status", status.Get)
	s.mux.HandleFunc("POST /api/refresh", status.Refresh)
	s.mux.HandleFunc("POST /api/dismiss", dismiss.Dismiss)
	s.mux.HandleFunc("POST /api/restore", dismiss.Restore)
	s.mux.HandleFunc("GET /api/dismissed", dismiss.List)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	if deps.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.mux.Handle("GET "+path, promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{}))
	}
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
