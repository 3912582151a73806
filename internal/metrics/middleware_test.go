package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.InfoLevel)
	return zap.New(core), logs
}

func TestLoggingMiddleware_RequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
	}{
		{"honors caller id", "dash-7f3a"},
		{"generates when absent", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := observed()
			var seen string
			h := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = w.Header().Get(RequestIDHeader)
				w.WriteHeader(http.StatusAccepted)
			}))

			req := httptest.NewRequest("POST", "/api/refresh", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			got := w.Header().Get(RequestIDHeader)
			if got == "" {
				t.Fatal("expected a request id on the response")
			}
			if tt.incoming != "" && got != tt.incoming {
				t.Errorf("expected echoed id %q, got %q", tt.incoming, got)
			}
			if seen != got {
				t.Errorf("handler saw id %q before it was written, response has %q", seen, got)
			}

			entries := logs.All()
			if len(entries) != 1 {
				t.Fatalf("expected 1 log line, got %d", len(entries))
			}
			fields := entries[0].ContextMap()
			if fields["request_id"] != got {
				t.Errorf("expected logged request_id %q, got %v", got, fields["request_id"])
			}
			if fields["status"] != int64(http.StatusAccepted) {
				t.Errorf("expected logged status 202, got %v", fields["status"])
			}
			if fields["path"] != "/api/refresh" {
				t.Errorf("expected logged path /api/refresh, got %v", fields["path"])
			}
		})
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name      string
		forwarded string
		want      string
	}{
		{"remote addr", "", "10.0.0.1:54321"},
		{"single hop", "203.0.113.50", "203.0.113.50"},
		{"first of chain", " 198.51.100.7 , 10.1.1.1, 10.2.2.2", "198.51.100.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/board", nil)
			req.RemoteAddr = "10.0.0.1:54321"
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestHTTPMiddleware_StatusClassAndInFlight(t *testing.T) {
	reg := NewRegistry()

	inFlight := -1.0
	h := HTTPMiddleware(reg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inFlight = gauge(t, reg, "http_requests_in_flight")
		if r.URL.Path == "/api/board/sort" {
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/board", nil))
	if inFlight != 1 {
		t.Errorf("expected 1 request in flight, got %v", inFlight)
	}
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/api/board/sort", nil))

	if got := gauge(t, reg, "http_requests_in_flight"); got != 0 {
		t.Errorf("expected no requests in flight, got %v", got)
	}

	statuses := map[string]string{}
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != "http_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			statuses[labels["path"]] = labels["status"]
		}
	}
	if statuses["/api/board"] != "2xx" {
		t.Errorf("expected implicit 200 recorded as 2xx, got %q", statuses["/api/board"])
	}
	if statuses["/api/board/sort"] != "4xx" {
		t.Errorf("expected 404 recorded as 4xx, got %q", statuses["/api/board/sort"])
	}
}

func gauge(t *testing.T, reg *Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name {
			for _, m := range mf.GetMetric() {
				return m.GetGauge().GetValue()
			}
		}
	}
	return -1
}
