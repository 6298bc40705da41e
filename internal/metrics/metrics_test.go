package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveBackend("kpi", time.Millisecond, nil)
		c.GeometryLoaded(3, nil)
		c.GeometryLookup(true)
		c.DashboardLoad("ready")
		c.LoadMoreOutcome("anomalies", "applied")
		c.StaleResponse()
		c.SetActiveSessions(2)
		c.EventPublished(nil)
	})
}

func TestCollectorCounts(t *testing.T) {
	c := NewCollector()

	c.ObserveBackend("kpi", 10*time.Millisecond, nil)
	c.ObserveBackend("kpi", 10*time.Millisecond, errors.New("boom"))
	c.GeometryLookup(true)
	c.GeometryLookup(false)
	c.GeometryLookup(false)
	c.GeometryLoaded(42, nil)
	c.StaleResponse()
	c.SetActiveSessions(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.BackendRequests.WithLabelValues("kpi", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.BackendRequests.WithLabelValues("kpi", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.GeometryLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.GeometryLookups.WithLabelValues("miss")))
	assert.Equal(t, 42.0, testutil.ToFloat64(c.GeometryRoads))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.StaleResponses))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.ActiveSessions))
}

func TestGeometryLoadFailureKeepsGauge(t *testing.T) {
	c := NewCollector()

	c.GeometryLoaded(10, nil)
	c.GeometryLoaded(0, errors.New("unreachable"))

	assert.Equal(t, 10.0, testutil.ToFloat64(c.GeometryRoads))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.GeometryLoads.WithLabelValues("error")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector()
	c.DashboardLoad("ready")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `dashboard_loads_total{outcome="ready"} 1`)
}
