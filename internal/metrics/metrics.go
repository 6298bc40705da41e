package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the service's prometheus registry. All methods are safe on a nil *Collector,
// so components can be constructed without metrics in tests.
type Collector struct {
	reg *prometheus.Registry

	BackendRequests *prometheus.CounterVec   // endpoint, outcome
	BackendDuration *prometheus.HistogramVec // endpoint

	GeometryLoads   *prometheus.CounterVec // result
	GeometryRoads   prometheus.Gauge
	GeometryLookups *prometheus.CounterVec // result: hit|miss

	DashboardLoads  *prometheus.CounterVec // outcome: ready|error|stale
	LoadMore        *prometheus.CounterVec // list, outcome
	StaleResponses  prometheus.Counter
	ActiveSessions  prometheus.Gauge
	EventsPublished *prometheus.CounterVec // outcome
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		BackendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_backend_requests_total",
			Help: "Backend API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		BackendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dashboard_backend_request_duration_seconds",
			Help:    "Backend API request latency.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"endpoint"}),
		GeometryLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_geometry_loads_total",
			Help: "Route geometry loads by result.",
		}, []string{"result"}),
		GeometryRoads: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_geometry_roads",
			Help: "Number of road geometries in the current snapshot.",
		}),
		GeometryLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_geometry_lookups_total",
			Help: "Trip geometry lookups by result.",
		}, []string{"result"}),
		DashboardLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_loads_total",
			Help: "Initial dashboard loads by outcome.",
		}, []string{"outcome"}),
		LoadMore: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_load_more_total",
			Help: "Load-more calls by list and outcome.",
		}, []string{"list", "outcome"}),
		StaleResponses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_stale_responses_total",
			Help: "Responses discarded because the selected file changed.",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_active_sessions",
			Help: "Dashboard sessions currently held in memory.",
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_events_published_total",
			Help: "Dashboard transition events published by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.BackendRequests, c.BackendDuration,
		c.GeometryLoads, c.GeometryRoads, c.GeometryLookups,
		c.DashboardLoads, c.LoadMore, c.StaleResponses, c.ActiveSessions,
		c.EventsPublished,
	)

	return c
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}

func (c *Collector) ObserveBackend(endpoint string, d time.Duration, err error) {
	if c == nil {
		return
	}
	c.BackendRequests.WithLabelValues(endpoint, outcome(err)).Inc()
	c.BackendDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

func (c *Collector) GeometryLoaded(roads int, err error) {
	if c == nil {
		return
	}
	c.GeometryLoads.WithLabelValues(outcome(err)).Inc()
	if err == nil {
		c.GeometryRoads.Set(float64(roads))
	}
}

func (c *Collector) GeometryLookup(hit bool) {
	if c == nil {
		return
	}
	if hit {
		c.GeometryLookups.WithLabelValues("hit").Inc()
	} else {
		c.GeometryLookups.WithLabelValues("miss").Inc()
	}
}

func (c *Collector) DashboardLoad(result string) {
	if c == nil {
		return
	}
	c.DashboardLoads.WithLabelValues(result).Inc()
}

func (c *Collector) LoadMoreOutcome(list, result string) {
	if c == nil {
		return
	}
	c.LoadMore.WithLabelValues(list, result).Inc()
}

func (c *Collector) StaleResponse() {
	if c == nil {
		return
	}
	c.StaleResponses.Inc()
}

func (c *Collector) SetActiveSessions(n int) {
	if c == nil {
		return
	}
	c.ActiveSessions.Set(float64(n))
}

func (c *Collector) EventPublished(err error) {
	if c == nil {
		return
	}
	c.EventsPublished.WithLabelValues(outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
