// Package metrics holds the Prometheus collectors for document loading.
//
// A nil *Metrics is valid and records nothing, so library code can take one
// unconditionally.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ontograph"

// Import sources reported by ImportResolved.
const (
	SourceOverride = "override"
	SourceFile     = "file"
	SourceSearch   = "search"
	SourceURL      = "url"
	SourcePURL     = "purl"
	SourceCache    = "cache"
)

// Metrics owns a private registry so tests and embedded use never collide
// with the global one.
type Metrics struct {
	registry *prometheus.Registry

	frames       *prometheus.CounterVec // by kind: term, typedef, instance
	warnings     prometheus.Counter
	imports      *prometheus.CounterVec // by source
	loadDuration prometheus.Histogram
}

// New creates and registers every collector, plus the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "frames_total",
			Help:      "Total number of document frames ingested",
		}, []string{"kind"}),

		warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "warnings_total",
			Help:      "Total number of non-fatal ingestion warnings",
		}),

		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "imports",
			Name:      "resolved_total",
			Help:      "Total number of import references resolved",
		}, []string{"source"}),

		loadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Time to load one document, imports included",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms to ~4min
		}),
	}

	m.registry.MustRegister(
		m.frames,
		m.warnings,
		m.imports,
		m.loadDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// FrameIngested counts one frame of kind.
func (m *Metrics) FrameIngested(kind string) {
	if m == nil {
		return
	}
	m.frames.WithLabelValues(kind).Inc()
}

// Warning counts one ingestion warning.
func (m *Metrics) Warning() {
	if m == nil {
		return
	}
	m.warnings.Inc()
}

// ImportResolved counts one import resolved from source.
func (m *Metrics) ImportResolved(source string) {
	if m == nil {
		return
	}
	m.imports.WithLabelValues(source).Inc()
}

// ObserveLoad records the duration of one document load.
func (m *Metrics) ObserveLoad(d time.Duration) {
	if m == nil {
		return
	}
	m.loadDuration.Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
