package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec

	EditRequestsSubmitted prometheus.Counter
	EditTransitions       *prometheus.CounterVec // to
	ApplyDuration         prometheus.Histogram
	ApplyOperations       *prometheus.CounterVec // kind, outcome

	IdentityLookups *prometheus.CounterVec // result: hit, miss, error
	FilterReconcile *prometheus.CounterVec // result: ok, repaired, skipped, error
}

// New registers every collector with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bizdir_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),

		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bizdir_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"}),

		EditRequestsSubmitted: f.NewCounter(prometheus.CounterOpts{
			Name: "bizdir_edit_requests_submitted_total",
			Help: "Edit requests submitted",
		}),

		EditTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bizdir_edit_request_transitions_total",
			Help: "Edit request status transitions by target status",
		}, []string{"to"}),

		ApplyDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bizdir_edit_apply_duration_seconds",
			Help:    "Duration of applying an approved edit request",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		ApplyOperations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bizdir_edit_apply_operations_total",
			Help: "Business writes performed while applying edit requests",
		}, []string{"kind", "outcome"}),

		IdentityLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bizdir_identity_cache_lookups_total",
			Help: "Identity cache lookups by result",
		}, []string{"result"}),

		FilterReconcile: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bizdir_filter_reconcile_regions_total",
			Help: "Regions checked by the filter reconciliation job by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m != nil {
		m.HTTPRequests.WithLabelValues(method, route, status).Inc()
		m.HTTPLatency.WithLabelValues(method, route).Observe(d.Seconds())
	}
}

func (m *Metrics) IncSubmitted() {
	if m != nil {
		m.EditRequestsSubmitted.Inc()
	}
}

func (m *Metrics) IncTransition(to string) {
	if m != nil {
		m.EditTransitions.WithLabelValues(to).Inc()
	}
}

func (m *Metrics) ObserveApply(d time.Duration) {
	if m != nil {
		m.ApplyDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) IncApplyOperation(kind, outcome string) {
	if m != nil {
		m.ApplyOperations.WithLabelValues(kind, outcome).Inc()
	}
}

func (m *Metrics) IncIdentityLookup(result string) {
	if m != nil {
		m.IdentityLookups.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncFilterReconcile(result string) {
	if m != nil {
		m.FilterReconcile.WithLabelValues(result).Inc()
	}
}
