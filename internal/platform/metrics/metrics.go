package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus instruments for the render service.
type Metrics struct {
	registry       *prometheus.Registry
	requestsTotal  prometheus.Counter
	rendersTotal   prometheus.Counter
	cacheHitsTotal prometheus.Counter
	uploadsTotal   prometheus.Counter
	errorsTotal    prometheus.Counter
	renderDuration prometheus.Histogram
	activeRenders  prometheus.Gauge
}

// New creates and registers Prometheus metrics for the render service.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "render_requests_total",
		Help: "Total number of HTTP requests received",
	})
	rendersTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "render_renders_total",
		Help: "Total number of completed renders (cache misses)",
	})
	cacheHitsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "render_cache_hits_total",
		Help: "Total number of render requests served from the artifact cache",
	})
	uploadsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "render_uploads_total",
		Help: "Total number of images ingested via upload",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "render_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	renderDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "render_duration_seconds",
		Help:    "Wall-clock duration of completed renders",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
	})
	activeRenders := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "render_active_renders",
		Help: "Number of renders currently holding a render slot",
	})

	registry.MustRegister(
		requestsTotal,
		rendersTotal,
		cacheHitsTotal,
		uploadsTotal,
		errorsTotal,
		renderDuration,
		activeRenders,
	)

	return &Metrics{
		registry:       registry,
		requestsTotal:  requestsTotal,
		rendersTotal:   rendersTotal,
		cacheHitsTotal: cacheHitsTotal,
		uploadsTotal:   uploadsTotal,
		errorsTotal:    errorsTotal,
		renderDuration: renderDuration,
		activeRenders:  activeRenders,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncRenders increments the completed renders counter.
func (m *Metrics) IncRenders() {
	m.rendersTotal.Inc()
}

// IncCacheHits increments the cache hit counter.
func (m *Metrics) IncCacheHits() {
	m.cacheHitsTotal.Inc()
}

// IncUploads increments the uploads counter.
func (m *Metrics) IncUploads() {
	m.uploadsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// ObserveRenderDuration records a completed render's duration in seconds.
func (m *Metrics) ObserveRenderDuration(seconds float64) {
	m.renderDuration.Observe(seconds)
}

// SetActiveRenders sets the active renders gauge.
func (m *Metrics) SetActiveRenders(n int) {
	m.activeRenders.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. active renders).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
