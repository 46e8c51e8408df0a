// Package metrics collects and exposes Prometheus metrics for the auth
// service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records service and HTTP metrics. It satisfies service.Observer.
type Collector struct {
	operations      *prometheus.CounterVec
	authentications *prometheus.CounterVec
	refreshConflict prometheus.Counter
	httpRequests    *prometheus.CounterVec
	httpLatency     prometheus.Histogram
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shopauth_auth_operations_total",
			Help: "Auth operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		authentications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shopauth_authentications_total",
			Help: "Bearer token authentications by method and outcome.",
		}, []string{"method", "outcome"}),
		refreshConflict: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shopauth_token_refresh_conflicts_total",
			Help: "Refreshes that lost a concurrent rotation of the same token.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shopauth_http_requests_total",
			Help: "HTTP responses by status code.",
		}, []string{"status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "shopauth_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.operations,
		c.authentications,
		c.refreshConflict,
		c.httpRequests,
		c.httpLatency,
	)

	return c
}

func (c *Collector) AuthOperation(op, outcome string) {
	c.operations.WithLabelValues(op, outcome).Inc()
}

func (c *Collector) Authentication(method, outcome string) {
	c.authentications.WithLabelValues(method, outcome).Inc()
}

func (c *Collector) RefreshConflict() {
	c.refreshConflict.Inc()
}

// RecordHTTP records one served request.
func (c *Collector) RecordHTTP(statusCode int, d time.Duration) {
	c.httpRequests.WithLabelValues(strconv.Itoa(statusCode)).Inc()
	c.httpLatency.Observe(d.Seconds())
}

// Middleware records the status and latency of every request.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		c.RecordHTTP(sw.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
