// Package metrics instruments the sample handler server with Prometheus
// collectors so long reinvocation chains can be watched from outside.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector tracks invocation and HTTP traffic metrics
type Collector struct {
	invocations        *prometheus.CounterVec
	invocationDuration *prometheus.HistogramVec
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	inFlight           prometheus.Gauge
}

// NewCollector creates and registers the collectors. A nil registerer
// uses the default registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provoke_invocations_total",
				Help: "Total handler invocations by action and reported status",
			},
			[]string{"function", "action", "status"},
		),
		invocationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "provoke_invocation_duration_seconds",
				Help:    "Handler invocation duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 10, 6),
			},
			[]string{"function"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provoke_http_requests_total",
				Help: "Total HTTP requests served by the sample handler",
			},
			[]string{"method", "endpoint", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "provoke_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 10, 6),
			},
			[]string{"method", "endpoint"},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "provoke_http_in_flight_requests",
				Help: "HTTP requests currently being served",
			},
		),
	}

	reg.MustRegister(c.invocations)
	reg.MustRegister(c.invocationDuration)
	reg.MustRegister(c.httpRequests)
	reg.MustRegister(c.httpDuration)
	reg.MustRegister(c.inFlight)

	return c
}

// RecordInvocation records one handler invocation. Status is what the
// response claimed, not what the invoker made of it.
func (c *Collector) RecordInvocation(function, action, status string, seconds float64) {
	c.invocations.WithLabelValues(function, action, status).Inc()
	c.invocationDuration.WithLabelValues(function).Observe(seconds)
}

// Middleware returns HTTP middleware that tracks request counts and latency
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoint := r.URL.Path
		method := r.Method
		start := time.Now()

		c.inFlight.Inc()
		defer c.inFlight.Dec()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		status := fmt.Sprintf("%d", rw.statusCode)
		c.httpRequests.WithLabelValues(method, endpoint, status).Inc()
		c.httpDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
	})
}

// Handler returns the HTTP handler for the default Prometheus registry
func (c *Collector) Handler() http.Handler {
	return promhttp.Handler()
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}
