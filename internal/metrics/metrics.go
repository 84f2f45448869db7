// Package metrics exposes Prometheus instrumentation for the HTTP surface
// and the snippet domain. Labels stay low-cardinality: chi route patterns,
// never raw paths or snippet IDs.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ServerMetrics struct {
	reg     *prometheus.Registry
	handler http.Handler

	inflight prometheus.Gauge
	reqTotal *prometheus.CounterVec
	reqDur   *prometheus.HistogramVec

	snippetsCreated *prometheus.CounterVec
	snippetsDeleted prometheus.Counter
	accessTotal     *prometheus.CounterVec
}

// New returns a fresh registry with the standard Go and process collectors
// plus the service's own series.
func New() *ServerMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &ServerMetrics{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests",
		}),
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		}, []string{"method", "route", "status"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency by method and route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"}),
		snippetsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snippets_created_total",
			Help: "Total snippets created by visibility",
		}, []string{"visibility"}),
		snippetsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "snippets_deleted_total",
			Help: "Total snippets deleted by their owners",
		}),
		accessTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snippet_access_total",
			Help: "Access gate outcomes by status (granted, password_required, expired, denied)",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		m.inflight,
		m.reqTotal,
		m.reqDur,
		m.snippetsCreated,
		m.snippetsDeleted,
		m.accessTotal,
	)

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	m.reg = reg
	return m
}

// Handler serves the scrape endpoint.
func (m *ServerMetrics) Handler() http.Handler {
	return m.handler
}

func (m *ServerMetrics) IncSnippetCreated(visibility string) {
	m.snippetsCreated.WithLabelValues(visibility).Inc()
}

func (m *ServerMetrics) IncSnippetDeleted() {
	m.snippetsDeleted.Inc()
}

func (m *ServerMetrics) IncAccess(outcome string) {
	m.accessTotal.WithLabelValues(outcome).Inc()
}
