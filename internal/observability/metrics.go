// Package observability exposes the Prometheus metrics of the service.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the application metrics: HTTP traffic plus the state of
// the offline engine. All methods tolerate a nil receiver so components can
// run without metrics wired.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	queueDepth      prometheus.Gauge
	syncedTotal     prometheus.Counter
	deadLetterTotal prometheus.Counter
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "daftar_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "daftar_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	queueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "daftar_offline_queue_depth",
		Help: "Mutations waiting in the offline sync queue.",
	})
	synced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "daftar_offline_synced_total",
		Help: "Mutations successfully applied to the remote store.",
	})
	dead := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "daftar_offline_dead_letter_total",
		Help: "Mutations retired after a permanent remote rejection.",
	})
	registry.MustRegister(requests, duration, queueDepth, synced, dead)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		queueDepth:      queueDepth,
		syncedTotal:     synced,
		deadLetterTotal: dead,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// SetQueueDepth records the current offline queue length.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

// AddSynced counts mutations applied during a drain.
func (m *Metrics) AddSynced(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.syncedTotal.Add(float64(n))
}

// AddDeadLettered counts mutations retired to the dead-letter collection.
func (m *Metrics) AddDeadLettered(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.deadLetterTotal.Add(float64(n))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
