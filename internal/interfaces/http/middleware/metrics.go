package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// httpDurationBuckets covers fast catalog reads up to multi-second uploads
var httpDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// httpMetrics holds all HTTP-related metrics instruments.
type httpMetrics struct {
	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestSize     *prometheus.HistogramVec
	activeRequests  prometheus.Gauge
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	factory := promauto.With(reg)
	return &httpMetrics{
		requestTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orgmap",
			Subsystem: "http_server",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "route", "status_code"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "orgmap",
			Subsystem: "http_server",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution in seconds.",
			Buckets:   httpDurationBuckets,
		}, []string{"method", "route"}),
		requestSize: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "orgmap",
			Subsystem: "http_server",
			Name:      "request_size_bytes",
			Help:      "HTTP request body size distribution in bytes.",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
		}, []string{"method", "route"}),
		activeRequests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "orgmap",
			Subsystem: "http_server",
			Name:      "active_requests",
			Help:      "Number of currently active HTTP requests.",
		}),
	}
}

// HTTPMetrics returns a Gin middleware that records request counts, latencies
// and body sizes on reg. A nil registerer disables collection.
func HTTPMetrics(reg prometheus.Registerer) gin.HandlerFunc {
	if reg == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	metrics := newHTTPMetrics(reg)
	return func(c *gin.Context) {
		start := time.Now()
		metrics.activeRequests.Inc()

		c.Next()

		metrics.activeRequests.Dec()
		route := getRoutePattern(c)
		method := c.Request.Method

		metrics.requestTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		if size := c.Request.ContentLength; size > 0 {
			metrics.requestSize.WithLabelValues(method, route).Observe(float64(size))
		}
	}
}

// getRoutePattern returns the route pattern (e.g., "/api/v1/job_roles/:id/grades")
// instead of the actual path to avoid high cardinality issues.
func getRoutePattern(c *gin.Context) string {
	route := c.FullPath()
	if route == "" {
		return "unknown"
	}
	return route
}

// HTTPMetricsStatusGroup groups status codes by class (2xx, 4xx, 5xx).
func HTTPMetricsStatusGroup(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500:
		return "5xx"
	default:
		return "other"
	}
}
