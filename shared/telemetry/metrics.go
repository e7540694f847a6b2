package telemetry

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus collectors for a service.
type Metrics struct {
	registry *prometheus.Registry

	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
	Normalizations   *prometheus.CounterVec
	UpstreamFetches  *prometheus.CounterVec
}

// NewMetrics registers the service collectors on a dedicated registry so
// tests can build several instances without duplicate-registration panics.
// Dashes in serviceName become underscores in metric names.
func NewMetrics(serviceName string) *Metrics {
	reg := prometheus.NewRegistry()
	subsystem := strings.ReplaceAll(serviceName, "-", "_")
	m := &Metrics{
		registry: reg,
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "focusnest",
				Subsystem: subsystem,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "focusnest",
				Subsystem: subsystem,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "focusnest",
				Subsystem: subsystem,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being served",
			},
		),
		Normalizations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "focusnest",
				Subsystem: subsystem,
				Name:      "normalizations_total",
				Help:      "Activity payload normalizations by outcome",
			},
			[]string{"result", "kind"},
		),
		UpstreamFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "focusnest",
				Subsystem: subsystem,
				Name:      "upstream_fetches_total",
				Help:      "Backend fetches by endpoint and outcome",
			},
			[]string{"endpoint", "result"},
		),
	}
	reg.MustRegister(
		m.RequestCounter,
		m.RequestDuration,
		m.RequestsInFlight,
		m.Normalizations,
		m.UpstreamFetches,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveNormalization records one normalization attempt. kind is empty on success.
func (m *Metrics) ObserveNormalization(kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		m.Normalizations.WithLabelValues("ok", "none").Inc()
		return
	}
	m.Normalizations.WithLabelValues("error", kind).Inc()
}

// ObserveFetch records one upstream fetch.
func (m *Metrics) ObserveFetch(endpoint string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.UpstreamFetches.WithLabelValues(endpoint, result).Inc()
}

// Middleware instruments chi routes. The route label is the matched pattern,
// not the raw path, to keep cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.RequestsInFlight.Inc()
		defer m.RequestsInFlight.Dec()

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		m.RequestCounter.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	})
}
