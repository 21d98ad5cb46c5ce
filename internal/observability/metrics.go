package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or 5xx spikes.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per route template. Watch for: p95/p99 increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation, slow shutdown drains.
	HTTPRequestsInFlight prometheus.Gauge

	// Repository calls by operation and outcome (success, not_found, duplicate, error).
	RepositoryOperationsTotal *prometheus.CounterVec

	// Repository latency by operation. Watch for: database slowness.
	RepositoryOperationDuration *prometheus.HistogramVec

	// Cache hits and misses on GetByID. Hit rate = hits/(hits+misses).
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	// Cache backend failures by operation (get, set, delete). Requests still succeed.
	CacheErrorsTotal *prometheus.CounterVec

	// Rate limit denials. Watch for: a single client hammering the API.
	RateLimitDeniedTotal prometheus.Counter

	// Panics caught by RecoverMiddleware. Any increase is a bug.
	PanicsRecoveredTotal prometheus.Counter
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	RepositoryOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repositoryOperationsTotal",
			Help: "Total number of movie repository calls",
		},
		[]string{"operation", "outcome"},
	)
	RepositoryOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "repositoryOperationDurationSeconds",
			Help:    "Movie repository latency in seconds (per call)",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"operation"},
	)
	CacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheHitsTotal",
			Help: "Total number of movie cache hits",
		},
	)
	CacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cacheMissesTotal",
			Help: "Total number of movie cache misses",
		},
	)
	CacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheErrorsTotal",
			Help: "Total number of cache backend errors",
		},
		[]string{"operation"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)
	PanicsRecoveredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "panicsRecoveredTotal",
			Help: "Total number of handler panics recovered",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		RepositoryOperationsTotal, RepositoryOperationDuration,
		CacheHitsTotal, CacheMissesTotal, CacheErrorsTotal,
		RateLimitDeniedTotal, PanicsRecoveredTotal,
	)
}

// ObserveRepositoryCall records one repository call started at start.
func ObserveRepositoryCall(operation, outcome string, start time.Time) {
	RepositoryOperationsTotal.WithLabelValues(operation, outcome).Inc()
	RepositoryOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
