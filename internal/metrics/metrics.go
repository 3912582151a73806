package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Backend client metrics
	backendRequests *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec

	// Feed metrics
	feedReconnects     prometheus.Counter
	feedMessages       *prometheus.CounterVec
	feedMalformed      prometheus.Counter
	feedConnected      prometheus.Gauge
	refetchesTriggered *prometheus.CounterVec

	// Board metrics
	snapshotsApplied   prometheus.Counter
	snapshotsDiscarded prometheus.Counter
	activeBreakouts    *prometheus.GaugeVec
	alertsRouted       *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	r.backendRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breakwatch_backend_requests_total",
			Help: "Total number of requests sent to the breakout backend",
		},
		[]string{"endpoint", "status"},
	)
	r.backendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "breakwatch_backend_request_duration_seconds",
			Help:    "Breakout backend request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
	r.feedReconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "breakwatch_feed_reconnects_total",
			Help: "Total number of scheduled push channel reconnects",
		},
	)
	r.feedMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breakwatch_feed_messages_total",
			Help: "Total number of push channel messages by type",
		},
		[]string{"type"},
	)
	r.feedMalformed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "breakwatch_feed_malformed_total",
			Help: "Total number of undecodable push channel payloads",
		},
	)
	r.feedConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "breakwatch_feed_connected",
			Help: "1 while the push channel is connected",
		},
	)
	r.refetchesTriggered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breakwatch_refetches_total",
			Help: "Total number of full refetches by trigger",
		},
		[]string{"trigger"},
	)
	r.snapshotsApplied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "breakwatch_snapshots_applied_total",
			Help: "Total number of refetch results applied to the board",
		},
	)
	r.snapshotsDiscarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "breakwatch_snapshots_discarded_total",
			Help: "Total number of refetch results discarded as stale",
		},
	)
	r.activeBreakouts = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "breakwatch_active_breakouts",
			Help: "Number of active breakouts by horizon",
		},
		[]string{"horizon"},
	)
	r.alertsRouted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "breakwatch_alerts_routed_total",
			Help: "Total number of new-breakout alerts routed to notifiers",
		},
		[]string{"notifier", "status"},
	)

	reg.MustRegister(r.backendRequests)
	reg.MustRegister(r.backendDuration)
	reg.MustRegister(r.feedReconnects)
	reg.MustRegister(r.feedMessages)
	reg.MustRegister(r.feedMalformed)
	reg.MustRegister(r.feedConnected)
	reg.MustRegister(r.refetchesTriggered)
	reg.MustRegister(r.snapshotsApplied)
	reg.MustRegister(r.snapshotsDiscarded)
	reg.MustRegister(r.activeBreakouts)
	reg.MustRegister(r.alertsRouted)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordBackendRequest records one backend call. status 0 means a transport error.
func (r *Registry) RecordBackendRequest(endpoint string, status int, duration float64) {
	statusStr := "error"
	if status > 0 {
		statusStr = statusToString(status)
	}
	r.backendRequests.WithLabelValues(endpoint, statusStr).Inc()
	r.backendDuration.WithLabelValues(endpoint).Observe(duration)
}

// RecordReconnect records a scheduled reconnect.
func (r *Registry) RecordReconnect() {
	r.feedReconnects.Inc()
}

// RecordFeedMessage records a decoded push message.
func (r *Registry) RecordFeedMessage(msgType string) {
	r.feedMessages.WithLabelValues(msgType).Inc()
}

// RecordMalformed records an undecodable push message.
func (r *Registry) RecordMalformed() {
	r.feedMalformed.Inc()
}

// SetFeedConnected flips the connection gauge.
func (r *Registry) SetFeedConnected(connected bool) {
	if connected {
		r.feedConnected.Set(1)
		return
	}
	r.feedConnected.Set(0)
}

// RecordRefetch records a refetch trigger.
func (r *Registry) RecordRefetch(trigger string) {
	r.refetchesTriggered.WithLabelValues(trigger).Inc()
}

// RecordSnapshot records whether a refetch result was applied or discarded.
func (r *Registry) RecordSnapshot(applied bool) {
	if applied {
		r.snapshotsApplied.Inc()
		return
	}
	r.snapshotsDiscarded.Inc()
}

// SetActiveBreakouts sets the per-horizon breakout count.
func (r *Registry) SetActiveBreakouts(counts map[string]int) {
	r.activeBreakouts.Reset()
	for horizon, n := range counts {
		r.activeBreakouts.WithLabelValues(horizon).Set(float64(n))
	}
}

// RecordAlertRouted records an alert delivery attempt.
func (r *Registry) RecordAlertRouted(notifier, status string) {
	r.alertsRouted.WithLabelValues(notifier, status).Inc()
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
