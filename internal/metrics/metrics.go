package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/andresuchdata/inventory-queue/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the inventory service metrics. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Ledger metrics
	ReplaysTotal       *prometheus.CounterVec
	ReplayDuration     prometheus.Histogram
	TransactionsLoaded prometheus.Gauge
	OrdersTotal        *prometheus.CounterVec
	DiagnosticsTotal   *prometheus.CounterVec

	// Forecast metrics
	ForecastDuration *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
}

// New creates a Metrics instance on its own registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "inventory_queue"
	}

	registry := prometheus.NewRegistry()

	// Register standard Go metrics
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{registry: registry}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	m.ReplaysTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_replays_total",
			Help:      "Total number of ledger builds by source (replay or cache)",
		},
		[]string{"source"},
	)

	m.ReplayDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_replay_duration_seconds",
			Help:      "Time spent replaying the transaction log",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
	)

	m.TransactionsLoaded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ledger_transactions_loaded",
			Help:      "Number of transactions in the last loaded log",
		},
	)

	m.OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_orders_total",
			Help:      "Orders seen by replays, by outcome",
		},
		[]string{"outcome"},
	)

	m.DiagnosticsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnostics_total",
			Help:      "Non-fatal diagnostics produced, by kind",
		},
		[]string{"kind"},
	)

	m.ForecastDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forecast_duration_seconds",
			Help:      "Per-item forecast duration in seconds",
			Buckets:   []float64{.0001, .001, .01, .05, .1, .5, 1, 5},
		},
		[]string{"status"},
	)

	m.CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.ReplaysTotal,
		m.ReplayDuration,
		m.TransactionsLoaded,
		m.OrdersTotal,
		m.DiagnosticsTotal,
		m.ForecastDuration,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the HTTP handler for metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordReplay records a freshly replayed ledger
func (m *Metrics) RecordReplay(transactions int, summary domain.LedgerSummary, duration time.Duration) {
	if m == nil {
		return
	}
	m.ReplaysTotal.WithLabelValues("replay").Inc()
	m.ReplayDuration.Observe(duration.Seconds())
	m.TransactionsLoaded.Set(float64(transactions))
	m.OrdersTotal.WithLabelValues("fulfilled").Add(float64(summary.OrdersFulfilled))
	m.OrdersTotal.WithLabelValues("declined").Add(float64(summary.OrdersDeclined))
}

// RecordCacheHit records a ledger served from cache
func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.ReplaysTotal.WithLabelValues("cache").Inc()
}

// RecordDiagnostics counts diagnostics by kind
func (m *Metrics) RecordDiagnostics(diagnostics []domain.Diagnostic) {
	if m == nil {
		return
	}
	for _, d := range diagnostics {
		m.DiagnosticsTotal.WithLabelValues(string(d.Kind)).Inc()
	}
}

// RecordForecast records one forecaster call
func (m *Metrics) RecordForecast(success bool, duration time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	m.ForecastDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// SetCircuitBreakerState sets circuit breaker state
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
