// Package metrics exposes chart pipeline counters on a private registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chartpipe"

// RenderDurationBuckets are sized for sub-frame renders.
var RenderDurationBuckets = []float64{.0005, .001, .002, .004, .008, .016, .032, .064, .25, 1}

// Metrics holds the pipeline collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	Renders        *prometheus.CounterVec
	RenderDuration *prometheus.HistogramVec
	Warnings       *prometheus.CounterVec
	Loads          *prometheus.CounterVec
	Elements       *prometheus.GaugeVec
}

// New registers the collectors on a fresh registry. withRuntime adds the Go
// and process collectors.
func New(withRuntime bool) *Metrics {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(collectors.NewGoCollector())
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace}))
	}
	m := &Metrics{
		registry: reg,
		Renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Completed render passes.",
		}, []string{"chart", "kind"}),
		RenderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Time spent in one render pass.",
			Buckets:   RenderDurationBuckets,
		}, []string{"chart", "kind"}),
		Warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "data_warnings_total",
			Help:      "Recoverable data problems by kind.",
		}, []string{"chart", "warning"}),
		Loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Dataset loads by outcome.",
		}, []string{"chart", "status"}),
		Elements: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "elements",
			Help:      "Visual elements bound after the last render.",
		}, []string{"chart"}),
	}
	reg.MustRegister(m.Renders, m.RenderDuration, m.Warnings, m.Loads, m.Elements)
	return m
}

// Handler serves the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRender records one render pass.
func (m *Metrics) ObserveRender(chart, kind string, took time.Duration, elements int) {
	if m == nil {
		return
	}
	m.Renders.WithLabelValues(chart, kind).Inc()
	m.RenderDuration.WithLabelValues(chart, kind).Observe(took.Seconds())
	m.Elements.WithLabelValues(chart).Set(float64(elements))
}

// AddWarning counts one data warning.
func (m *Metrics) AddWarning(chart, kind string) {
	if m == nil {
		return
	}
	m.Warnings.WithLabelValues(chart, kind).Inc()
}

// ObserveLoad counts a load outcome: ok, error, stale or disposed.
func (m *Metrics) ObserveLoad(chart, status string) {
	if m == nil {
		return
	}
	m.Loads.WithLabelValues(chart, status).Inc()
}
