// Package metrics provides Prometheus metrics for monitoring the onion
// request client.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the client.
type Metrics struct {
	// Build metrics (OnionBuilder.Build)
	BuildsTotal    *prometheus.CounterVec
	BuildDuration  prometheus.Histogram
	LayersPerBuild prometheus.Histogram

	// Directory metrics
	DirectoryFetchesTotal *prometheus.CounterVec
	DirectoryNodesFetched prometheus.Gauge

	// Transport metrics
	TransportRequestsTotal   *prometheus.CounterVec
	TransportRequestDuration prometheus.Histogram

	// Error metrics
	ErrorsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all onion-client metrics under the given
// namespace (empty defaults to "onion_client").
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "onion_client"
	}
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		BuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "builds_total",
				Help:      "Total number of onion envelope builds, by outcome",
			},
			[]string{"outcome"},
		),

		BuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "build_duration_seconds",
				Help:      "Time spent constructing an onion envelope",
				Buckets:   prometheus.DefBuckets,
			},
		),

		LayersPerBuild: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "layers_per_build",
				Help:      "Number of onion layers in a built envelope",
				Buckets:   []float64{1, 2, 3, 4, 5, 7, 10},
			},
		),

		DirectoryFetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "directory_fetches_total",
				Help:      "Total number of seed-node directory fetch attempts, by outcome",
			},
			[]string{"outcome"},
		),

		DirectoryNodesFetched: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "directory_nodes_fetched",
				Help:      "Number of service nodes returned by the last successful directory fetch",
			},
		),

		TransportRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transport_requests_total",
				Help:      "Total number of onion_req/v2 transport requests, by outcome",
			},
			[]string{"outcome"},
		),

		TransportRequestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transport_request_duration_seconds",
				Help:      "Duration of onion_req/v2 POST requests to the entry hop",
				Buckets:   prometheus.DefBuckets,
			},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of typed errors, by component and code",
			},
			[]string{"component", "code"},
		),
	}

	registry.MustRegister(
		m.BuildsTotal,
		m.BuildDuration,
		m.LayersPerBuild,
		m.DirectoryFetchesTotal,
		m.DirectoryNodesFetched,
		m.TransportRequestsTotal,
		m.TransportRequestDuration,
		m.ErrorsTotal,
	)

	registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return m
}

// Handler returns the HTTP handler serving the metrics registry. The
// core client never serves this itself; only the demonstration binary
// mounts it.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// RecordError records an error by component and code.
func (m *Metrics) RecordError(component, code string) {
	m.ErrorsTotal.WithLabelValues(component, code).Inc()
}
