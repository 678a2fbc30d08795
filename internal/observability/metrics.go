package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the hybrid paper service.
// All counters and histograms are registered via promauto with the default registry.
//
// A nil *Metrics is valid and records nothing, which keeps unit tests free of
// global registration.
type Metrics struct {
	// StoreQueries counts adapter calls by store, operation and outcome (ok, not_found, invalid, error).
	StoreQueries *prometheus.CounterVec

	// StoreQueryDuration observes adapter call latency in seconds by store and operation.
	StoreQueryDuration *prometheus.HistogramVec

	// RouteDecisions counts router resolutions by operation, store and whether the caller overrode the table.
	RouteDecisions *prometheus.CounterVec

	// DualWrites counts dual-write outcomes by operation and result (consistent, partial, failed).
	DualWrites *prometheus.CounterVec

	// StoreDiscrepancy is the latest absolute paper count difference between stores.
	StoreDiscrepancy prometheus.Gauge

	// CacheLookups counts filter option cache lookups by result (hit, miss, error).
	CacheLookups *prometheus.CounterVec

	// EventsPublished counts dual-write events by result (ok, error).
	EventsPublished *prometheus.CounterVec

	// HTTPRequests counts API requests by route pattern, method and status code.
	HTTPRequests *prometheus.CounterVec

	// HTTPRequestDuration observes API latency in seconds by route pattern and method.
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Stores
		StoreQueries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_queries_total",
			Help:      "Total number of store adapter calls",
		}, []string{"store", "operation", "outcome"}),
		StoreQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_query_duration_seconds",
			Help:      "Duration of store adapter calls in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"store", "operation"}),

		// Routing
		RouteDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_decisions_total",
			Help:      "Total number of read operations routed to a store",
		}, []string{"operation", "store", "overridden"}),

		// Dual writes
		DualWrites: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dual_writes_total",
			Help:      "Total number of dual writes by outcome",
		}, []string{"operation", "result"}),
		StoreDiscrepancy: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_paper_count_discrepancy",
			Help:      "Absolute difference between relational and document paper counts",
		}),

		// Cache and events
		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Total number of filter option cache lookups",
		}, []string{"result"}),
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of dual-write events published",
		}, []string{"result"}),

		// HTTP
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"route", "method", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// RecordStoreQuery records one adapter call.
func (m *Metrics) RecordStoreQuery(store, operation, outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.StoreQueries.WithLabelValues(store, operation, outcome).Inc()
	m.StoreQueryDuration.WithLabelValues(store, operation).Observe(durationSeconds)
}

// RecordRoute records a router decision.
func (m *Metrics) RecordRoute(operation, store string, overridden bool) {
	if m == nil {
		return
	}
	o := "false"
	if overridden {
		o = "true"
	}
	m.RouteDecisions.WithLabelValues(operation, store, o).Inc()
}

// RecordDualWrite records the outcome of one dual write.
func (m *Metrics) RecordDualWrite(operation, result string) {
	if m == nil {
		return
	}
	m.DualWrites.WithLabelValues(operation, result).Inc()
}

// SetStoreDiscrepancy records the latest sync status discrepancy.
func (m *Metrics) SetStoreDiscrepancy(discrepancy int64) {
	if m == nil {
		return
	}
	m.StoreDiscrepancy.Set(float64(discrepancy))
}

// RecordCacheLookup records a cache hit, miss or error.
func (m *Metrics) RecordCacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// RecordEventPublished records an event publish attempt.
func (m *Metrics) RecordEventPublished(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.EventsPublished.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records a served API request.
func (m *Metrics) RecordHTTPRequest(route, method, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(route, method).Observe(durationSeconds)
}
