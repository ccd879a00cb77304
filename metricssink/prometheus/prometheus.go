// Package prometheus implements spi.Metrics against a Prometheus registry
// (spec §6, metrics sink is an external collaborator), grounded on the
// teacher's PrometheusMetrics collector wiring: one registry, collectors
// registered once at construction, counters and histograms labeled by the
// metric's own name since pocketetl's Metrics interface is name-keyed
// rather than a fixed set of fields.
package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oriys/pocketetl/spi"
)

// Sink is a spi.Metrics backed by a Prometheus registry. CreateChildMetrics
// returns a Sink sharing the same registry and collectors: nesting scopes
// (spec §4.6) is free because there is nothing per-child to allocate beyond
// the label values the caller supplies to AddCount/AddTime.
type Sink struct {
	registry *prometheus.Registry
	counts   *prometheus.CounterVec
	times    *prometheus.HistogramVec
}

// defaultBuckets mirrors the teacher's invocation-duration buckets; pocketetl
// timings are scope-elapsed milliseconds, the same unit the teacher measures.
var defaultBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

// New builds a root Sink registered under namespace. buckets overrides the
// histogram buckets used for AddTime observations; nil uses defaultBuckets.
func New(namespace string, buckets []float64) *Sink {
	if len(buckets) == 0 {
		buckets = defaultBuckets
	}
	registry := prometheus.NewRegistry()
	counts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Count metrics emitted by pocketetl stages, labeled by metric name.",
		},
		[]string{"metric"},
	)
	times := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scope_duration_milliseconds",
			Help:      "Elapsed wall time of pocketetl profiling scopes, labeled by scope name.",
			Buckets:   buckets,
		},
		[]string{"metric"},
	)
	registry.MustRegister(counts, times)
	return &Sink{registry: registry, counts: counts, times: times}
}

// AddCount implements spi.Metrics.
func (s *Sink) AddCount(name string, value int64) {
	s.counts.WithLabelValues(name).Add(float64(value))
}

// AddTime implements spi.Metrics.
func (s *Sink) AddTime(name string, ms float64) {
	s.times.WithLabelValues(name).Observe(ms)
}

// CreateChildMetrics implements spi.Metrics.
func (s *Sink) CreateChildMetrics() spi.Metrics {
	return &Sink{registry: s.registry, counts: s.counts, times: s.times}
}

// Close implements spi.Metrics. A Prometheus sink has nothing to release
// per scope; collectors live for the registry's lifetime.
func (s *Sink) Close() {}

// Handler returns an HTTP handler for Prometheus to scrape.
func (s *Sink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}
