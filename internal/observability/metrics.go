package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the Prometheus metrics of the back office.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	fetches         *prometheus.CounterVec
	mutations       *prometheus.CounterVec
	workspaces      prometheus.Gauge
}

// NewMetrics initialises the registry with the HTTP and list collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "backoffice_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_list_fetch_total",
		Help: "Settled list fetches by resource and outcome.",
	}, []string{"resource", "outcome"})
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backoffice_list_mutations_total",
		Help: "Settled list mutations by resource, operation and outcome.",
	}, []string{"resource", "op", "outcome"})
	workspaces := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "backoffice_console_workspaces",
		Help: "Live console workspaces.",
	})
	registry.MustRegister(requests, duration, fetches, mutations, workspaces)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		fetches:         fetches,
		mutations:       mutations,
		workspaces:      workspaces,
	}
}

// Handler returns the http.Handler for /metrics.
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

// FetchSettled counts a settled list fetch.
func (m *Metrics) FetchSettled(resource, outcome string) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(resource, outcome).Inc()
}

// MutationSettled counts a settled create, update or delete.
func (m *Metrics) MutationSettled(resource, op, outcome string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(resource, op, outcome).Inc()
}

// SetWorkspaces records the number of live console workspaces.
func (m *Metrics) SetWorkspaces(n int) {
	if m == nil {
		return
	}
	m.workspaces.Set(float64(n))
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
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
