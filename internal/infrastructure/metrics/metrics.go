package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lifeplanner"

// Metrics owns a private registry and every collector the application reports.
// All Observe methods are safe to call on a nil *Metrics.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
	StoreRequests     *prometheus.CounterVec
	StoreCoalesced    *prometheus.CounterVec
	CascadeOperations *prometheus.CounterVec
	CascadeSteps      *prometheus.CounterVec
}

// New creates the registry and registers all collectors
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		StoreRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_requests_total",
				Help:      "Repository calls issued by entity stores",
			},
			[]string{"store", "action", "outcome"},
		),
		StoreCoalesced: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_fetch_coalesced_total",
				Help:      "FetchAll calls that attached to an in-flight request",
			},
			[]string{"store"},
		),
		CascadeOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cascade_operations_total",
				Help:      "Cascade archive/restore operations by final state",
			},
			[]string{"direction", "state"},
		),
		CascadeSteps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cascade_steps_total",
				Help:      "Individual archive/restore calls issued by cascades",
			},
			[]string{"direction", "outcome"},
		),
	}

	registry.MustRegister(
		m.HTTPRequests,
		m.HTTPDuration,
		m.StoreRequests,
		m.StoreCoalesced,
		m.CascadeOperations,
		m.CascadeSteps,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveStoreAction(store, action string, err error) {
	if m == nil {
		return
	}
	m.StoreRequests.WithLabelValues(store, action, outcome(err)).Inc()
}

func (m *Metrics) ObserveCoalesced(store string) {
	if m == nil {
		return
	}
	m.StoreCoalesced.WithLabelValues(store).Inc()
}

func (m *Metrics) ObserveCascade(direction, state string) {
	if m == nil {
		return
	}
	m.CascadeOperations.WithLabelValues(direction, state).Inc()
}

func (m *Metrics) ObserveCascadeStep(direction string, err error) {
	if m == nil {
		return
	}
	m.CascadeSteps.WithLabelValues(direction, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
