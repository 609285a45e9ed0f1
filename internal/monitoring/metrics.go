// Package monitoring exposes Prometheus metrics for the extraction
// service and the gin middleware that records them.
package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors, backed by a dedicated
// registry so multiple service instances never collide.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Extraction metrics
	ExtractionsTotal   *prometheus.CounterVec
	ExtractionDuration *prometheus.HistogramVec

	// Sandbox metrics
	SandboxExecutions prometheus.Counter
	SandboxFailures   *prometheus.CounterVec

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

// NewMetrics creates the collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webcontent_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webcontent_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		ExtractionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webcontent_extractions_total",
				Help: "Total number of extractions by scope, format and status",
			},
			[]string{"scope", "format", "status"},
		),
		ExtractionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webcontent_extraction_duration_seconds",
				Help:    "Extraction duration in seconds by scope",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"scope"},
		),
		SandboxExecutions: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "webcontent_sandbox_executions_total",
				Help: "Total number of sandbox evaluations",
			},
		),
		SandboxFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webcontent_sandbox_failures_total",
				Help: "Sandbox failures by reason",
			},
			[]string{"reason"},
		),
		CacheHits: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "webcontent_cache_hits_total",
				Help: "Result store hits",
			},
		),
		CacheMisses: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "webcontent_cache_misses_total",
				Help: "Result store misses",
			},
		),
	}
}

// Handler serves this instance's registry in Prometheus exposition
// format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one completed HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordExtraction records one extraction outcome.
func (m *Metrics) RecordExtraction(scope, format, status string, duration time.Duration) {
	m.ExtractionsTotal.WithLabelValues(scope, format, status).Inc()
	m.ExtractionDuration.WithLabelValues(scope).Observe(duration.Seconds())
}
