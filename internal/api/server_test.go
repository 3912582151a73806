// internal/api/server_test.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/newthinker/breakwatch/internal/api/response"
	"github.com/newthinker/breakwatch/internal/app"
	"github.com/newthinker/breakwatch/internal/client"
	"github.com/newthinker/breakwatch/internal/config"
	"github.com/newthinker/breakwatch/internal/feed"
	"github.com/newthinker/breakwatch/internal/metrics"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// manualSync refetches once on Start and never connects.
type manualSync struct {
	refetch feed.RefetchFunc
}

func (m *manualSync) Start(ctx context.Context) error {
	m.refetch(ctx, feed.TriggerInitial)
	return nil
}
func (m *manualSync) Stop()             {}
func (m *manualSync) State() feed.State { return feed.StateConnected }

// engine is a tiny stand-in for the breakout backend. Dismissals are keyed
// on the identifiers exactly as they were served.
type engine struct {
	mu        sync.Mutex
	symbols   []string
	dismissed map[string]bool
}

func newEngine(symbols ...string) *engine {
	if len(symbols) == 0 {
		symbols = []string{"AAA", "BBB"}
	}
	return &engine{symbols: symbols, dismissed: map[string]bool{}}
}

func (e *engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch r.URL.Path {
	case "/breakouts":
		rows := []map[string]any{}
		for _, sym := range e.symbols {
			if e.dismissed["NSE:"+sym] {
				continue
			}
			rows = append(rows, map[string]any{
				"symbol": sym, "exchange": "NSE", "breakout_type": "TODAY",
				"close_price": 10, "breakout_level": 9, "breakout_pct": 1.1,
				"volume": 1000, "volume_confirmation": true, "detected_at": "",
			})
		}
		json.NewEncoder(w).Encode(rows)
	case "/system/status":
		w.Write([]byte(`{"system_time":"2026-03-02T10:00:00","market_state":"OPEN","trade_date":"2026-03-02","is_market_open":true}`))
	case "/dismiss":
		var body struct{ Symbol, Exchange string }
		json.NewDecoder(r.Body).Decode(&body)
		e.dismissed[body.Exchange+":"+body.Symbol] = true
		w.Write([]byte(`{"status":"ok"}`))
	case "/dismissed":
		ids := []string{}
		for k := range e.dismissed {
			ids = append(ids, k)
		}
		json.NewEncoder(w).Encode(ids)
	default:
		http.NotFound(w, r)
	}
}

func newTestServer(t *testing.T) (*Server, *metrics.Registry) {
	t.Helper()
	return newTestServerWith(t, newEngine(), zap.NewNop())
}

func newTestServerWith(t *testing.T, eng *engine, logger *zap.Logger) (*Server, *metrics.Registry) {
	t.Helper()

	backend := httptest.NewServer(eng)
	t.Cleanup(backend.Close)

	reg := metrics.NewRegistry()
	c := client.New(backend.URL, time.Second, client.WithMetrics(reg))
	a := app.New(config.Defaults(), c, zap.NewNop(),
		app.WithMetrics(reg),
		app.WithSyncFactory(func(_ string, refetch feed.RefetchFunc) app.Synchronizer {
			return &manualSync{refetch: refetch}
		}),
	)
	if err := a.SelectExchange(context.Background(), "NSE"); err != nil {
		t.Fatalf("selecting exchange: %v", err)
	}

	srv, err := NewServer(Config{Host: "localhost", Port: 0}, Dependencies{App: a, Metrics: reg}, logger)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return srv, reg
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/health", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if w.Header().Get(metrics.RequestIDHeader) == "" {
		t.Error("expected a request id header")
	}
}

func TestServer_RequestIDAndForwardedClient(t *testing.T) {
	obs, logs := observer.New(zap.InfoLevel)
	srv, _ := newTestServerWith(t, newEngine(), zap.New(obs))

	req := httptest.NewRequest("GET", "/api/status", nil)
	req.Header.Set(metrics.RequestIDHeader, "cli-42")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.2")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get(metrics.RequestIDHeader); got != "cli-42" {
		t.Errorf("expected caller request id echoed, got %q", got)
	}

	entries := logs.FilterMessage("http request").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 request log line, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "cli-42" {
		t.Errorf("expected logged request_id cli-42, got %v", fields["request_id"])
	}
	if fields["client_ip"] != "203.0.113.9" {
		t.Errorf("expected first forwarded hop as client_ip, got %v", fields["client_ip"])
	}
	if fields["path"] != "/api/status" {
		t.Errorf("expected logged path /api/status, got %v", fields["path"])
	}
}

func TestServer_DismissKeepsServedCase(t *testing.T) {
	eng := newEngine("infy", "TCS")
	srv, _ := newTestServerWith(t, eng, zap.NewNop())
	h := srv.Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/api/dismiss", strings.NewReader(`{"symbol":"infy","exchange":"NSE"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from dismiss, got %d", w.Code)
	}

	eng.mu.Lock()
	ok := eng.dismissed["NSE:infy"]
	eng.mu.Unlock()
	if !ok {
		t.Fatalf("expected backend dismissal under NSE:infy, got %v", eng.dismissed)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/api/refresh", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from refresh, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/board", nil))
	if strings.Contains(w.Body.String(), `"infy"`) {
		t.Errorf("refresh brought back a dismissed breakout: %s", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"TCS"`) {
		t.Errorf("expected TCS to remain on the board: %s", w.Body.String())
	}
}

func TestServer_RequiresDashboard(t *testing.T) {
	if _, err := NewServer(Config{}, Dependencies{}, nil); err == nil {
		t.Error("expected error without a dashboard")
	}
}

func TestServer_BoardAndDismiss(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	total := func() float64 {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest("GET", "/api/board", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var resp response.SuccessResponse
		json.Unmarshal(w.Body.Bytes(), &resp)
		return resp.Data.(map[string]any)["total"].(float64)
	}

	if got := total(); got != 2 {
		t.Fatalf("expected 2 breakouts, got %v", got)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/api/dismiss", strings.NewReader(`{"symbol":"AAA","exchange":"NSE"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from dismiss, got %d", w.Code)
	}
	if got := total(); got != 1 {
		t.Errorf("expected 1 breakout after dismiss, got %v", got)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/api/refresh", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from refresh, got %d", w.Code)
	}
	if got := total(); got != 1 {
		t.Errorf("refresh must not bring back a dismissed breakout, got %v", got)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/dismissed", nil))
	if !strings.Contains(w.Body.String(), "NSE:AAA") {
		t.Errorf("expected NSE:AAA in dismissed list, got %s", w.Body.String())
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/api/dismiss", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", w.Code)
	}
}

func TestServer_Metrics(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/status", nil))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "http_requests_total") {
		t.Error("expected http_requests_total in metrics output")
	}
	if !strings.Contains(body, "backend_requests_total") {
		t.Error("expected backend_requests_total in metrics output")
	}
}
