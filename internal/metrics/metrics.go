// Package metrics exposes Prometheus instrumentation for the web server and
// the analysis pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics represents the collection of all Prometheus metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	UploadsTotal      *prometheus.CounterVec
	ChatCallsTotal    *prometheus.CounterVec
	ChatCallDuration  *prometheus.HistogramVec
	ChartRendersTotal *prometheus.CounterVec
}

// New creates all metrics on a private registry, along with the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	m.UploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "uploads_total",
			Help: "CSV uploads by result",
		},
		[]string{"result"},
	)
	m.ChatCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_calls_total",
			Help: "Chat completion calls by call site and outcome",
		},
		[]string{"call", "outcome"},
	)
	m.ChatCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_call_duration_seconds",
			Help:    "Latency of chat completion calls",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"call"},
	)
	m.ChartRendersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chart_renders_total",
			Help: "Chart builds by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.UploadsTotal,
		m.ChatCallsTotal,
		m.ChatCallDuration,
		m.ChartRendersTotal,
	)
	return m
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RecordUpload counts an upload; result is "ok" or "error".
func (m *Metrics) RecordUpload(result string) {
	if m == nil {
		return
	}
	m.UploadsTotal.WithLabelValues(result).Inc()
}

// RecordChatCall counts one chat completion call and its latency.
func (m *Metrics) RecordChatCall(call, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.ChatCallsTotal.WithLabelValues(call, outcome).Inc()
	m.ChatCallDuration.WithLabelValues(call).Observe(d.Seconds())
}

// RecordChart counts a chart build attempt.
func (m *Metrics) RecordChart(kind, outcome string) {
	if m == nil {
		return
	}
	m.ChartRendersTotal.WithLabelValues(kind, outcome).Inc()
}

// Middleware tracks HTTP requests by their route pattern, so path parameters
// and unknown paths do not blow up label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		path := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				path = p
			}
		}
		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(rw.statusCode)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// responseWriter is a wrapper to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Handler returns the Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
