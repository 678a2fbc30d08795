package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Note: prometheus/promauto registers metrics globally, so we need to use
// unique namespaces per test to avoid registration conflicts.

func TestNewMetrics(t *testing.T) {
	m := NewMetrics("test_hybrid_new")

	assert.NotNil(t, m.StoreQueries)
	assert.NotNil(t, m.StoreQueryDuration)
	assert.NotNil(t, m.RouteDecisions)
	assert.NotNil(t, m.DualWrites)
	assert.NotNil(t, m.StoreDiscrepancy)
	assert.NotNil(t, m.CacheLookups)
	assert.NotNil(t, m.EventsPublished)
	assert.NotNil(t, m.HTTPRequests)
	assert.NotNil(t, m.HTTPRequestDuration)
}

func TestRecordStoreQuery(t *testing.T) {
	m := NewMetrics("test_store_query")

	m.RecordStoreQuery("document", "find_by_id", "ok", 0.012)
	m.RecordStoreQuery("document", "find_by_id", "ok", 0.020)
	m.RecordStoreQuery("relational", "find_by_id", "error", 5)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.StoreQueries.WithLabelValues("document", "find_by_id", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.StoreQueries.WithLabelValues("relational", "find_by_id", "error")))

	count, err := getHistogramSampleCount(m.StoreQueryDuration.WithLabelValues("document", "find_by_id").(prometheus.Histogram))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestRecordRoute(t *testing.T) {
	m := NewMetrics("test_route")

	m.RecordRoute("full-text-search", "document", false)
	m.RecordRoute("full-text-search", "relational", true)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.RouteDecisions.WithLabelValues("full-text-search", "document", "false")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RouteDecisions.WithLabelValues("full-text-search", "relational", "true")))
}

func TestRecordDualWriteAndDiscrepancy(t *testing.T) {
	m := NewMetrics("test_dual_write")

	m.RecordDualWrite("create", "partial")
	m.SetStoreDiscrepancy(7)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.DualWrites.WithLabelValues("create", "partial")))
	assert.Equal(t, float64(7), testutil.ToFloat64(m.StoreDiscrepancy))
}

func TestRecordCacheAndEvents(t *testing.T) {
	m := NewMetrics("test_cache_events")

	m.RecordCacheLookup("hit")
	m.RecordEventPublished(true)
	m.RecordEventPublished(false)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsPublished.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsPublished.WithLabelValues("error")))
}

func TestRecordHTTPRequest(t *testing.T) {
	m := NewMetrics("test_http_requests")

	m.RecordHTTPRequest("/api/papers/{id}", "GET", "200", 0.01)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/api/papers/{id}", "GET", "200")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordStoreQuery("document", "op", "ok", 1)
		m.RecordRoute("op", "document", false)
		m.RecordDualWrite("create", "consistent")
		m.SetStoreDiscrepancy(1)
		m.RecordCacheLookup("miss")
		m.RecordEventPublished(true)
		m.RecordHTTPRequest("/", "GET", "200", 1)
	})
}

// getHistogramSampleCount extracts the sample count from a histogram.
func getHistogramSampleCount(h prometheus.Histogram) (uint64, error) {
	ch := make(chan prometheus.Metric, 1)
	h.Collect(ch)
	close(ch)

	var m prometheus.Metric
	for m = range ch {
		break
	}

	var metric dto.Metric
	if err := m.Write(&metric); err != nil {
		return 0, err
	}
	return metric.GetHistogram().GetSampleCount(), nil
}
