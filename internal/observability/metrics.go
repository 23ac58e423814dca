// Package observability collects Prometheus metrics for the gateway.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics aggregates the gateway's Prometheus collectors on a private
// registry.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	scansTotal      *prometheus.CounterVec
	confirmsTotal   *prometheus.CounterVec
	cacheTotal      *prometheus.CounterVec
}

// New initializes the registry and the workflow metrics.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eventgate_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eventgate_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	scans := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eventgate_scans_total",
		Help: "Scan verifications by outcome.",
	}, []string{"outcome"})
	confirms := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eventgate_confirmations_total",
		Help: "Attendance confirmations by outcome.",
	}, []string{"outcome"})
	cache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eventgate_events_cache_total",
		Help: "Events cache lookups by result.",
	}, []string{"result"})
	registry.MustRegister(requests, duration, scans, confirms, cache)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		scansTotal:      scans,
		confirmsTotal:   confirms,
		cacheTotal:      cache,
	}
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return m.handler
}

// GinMiddleware records request counts and durations per route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// ScanObserved counts one verification attempt by cycle outcome.
func (m *Metrics) ScanObserved(outcome string) {
	m.scansTotal.WithLabelValues(outcome).Inc()
}

// ConfirmObserved counts one confirmation attempt by cycle outcome.
func (m *Metrics) ConfirmObserved(outcome string) {
	m.confirmsTotal.WithLabelValues(outcome).Inc()
}

// CacheObserved counts one events-cache lookup: hit, stale or miss.
func (m *Metrics) CacheObserved(result string) {
	m.cacheTotal.WithLabelValues(result).Inc()
}
