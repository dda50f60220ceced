package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the ad server.
type Metrics struct {
	// Resolver metrics
	ResolveRequests *prometheus.CounterVec
	ResolveLatency  prometheus.Histogram

	// View recorder metrics
	Views          *prometheus.CounterVec
	DuplicateViews *prometheus.CounterVec

	// Aggregation metrics
	RollupRuns     *prometheus.CounterVec
	RollupDuration prometheus.Histogram

	// System metrics
	DBConnections *prometheus.GaugeVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ResolveRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolve_requests_total",
				Help:      "Total ad resolve requests by outcome",
			},
			[]string{"outcome"},
		),
		ResolveLatency: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "resolve_latency_seconds",
				Help:      "Ad resolve latency in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
			},
		),
		Views: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "views_recorded_total",
				Help:      "Total view events recorded",
			},
			[]string{"view_type"},
		),
		DuplicateViews: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "views_duplicate_total",
				Help:      "View events skipped by the idempotency guard",
			},
			[]string{"view_type"},
		),
		RollupRuns: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rollup_runs_total",
				Help:      "Analytics rollup runs by status",
			},
			[]string{"status"},
		),
		RollupDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rollup_duration_seconds",
				Help:      "Analytics rollup duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
		),
		DBConnections: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections",
				Help:      "Database connection pool state",
			},
			[]string{"state"},
		),
		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Requests rejected by rate limiting",
			},
			[]string{"path"},
		),
	}
}

// RecordResolve records an ad resolve request and its latency.
func (m *Metrics) RecordResolve(outcome string, duration time.Duration) {
	m.ResolveRequests.WithLabelValues(outcome).Inc()
	m.ResolveLatency.Observe(duration.Seconds())
}

// RecordView records one accepted view event.
func (m *Metrics) RecordView(viewType string) {
	m.Views.WithLabelValues(viewType).Inc()
}

// RecordDuplicateView records a view skipped by the idempotency guard.
func (m *Metrics) RecordDuplicateView(viewType string) {
	m.DuplicateViews.WithLabelValues(viewType).Inc()
}

// RecordRollupRun records one aggregation run.
func (m *Metrics) RecordRollupRun(status string, duration time.Duration) {
	m.RollupRuns.WithLabelValues(status).Inc()
	m.RollupDuration.Observe(duration.Seconds())
}

// RecordRateLimitHit records a rate-limited request.
func (m *Metrics) RecordRateLimitHit(path string) {
	m.RateLimitHits.WithLabelValues(path).Inc()
}

// SetDBConnections updates the pool gauges.
func (m *Metrics) SetDBConnections(idle, inUse int) {
	m.DBConnections.WithLabelValues("idle").Set(float64(idle))
	m.DBConnections.WithLabelValues("in_use").Set(float64(inUse))
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
