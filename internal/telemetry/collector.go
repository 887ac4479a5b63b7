// collector.go — Prometheus metrics fed from engine bus events.
// Labels use component names, never ids, to keep cardinality bounded.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brennhill/renderlens/internal/bus"
	"github.com/brennhill/renderlens/internal/types"
)

// Collector owns a private registry so several engines in one process never
// collide on metric names.
type Collector struct {
	registry *prometheus.Registry

	renders        *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec
	slowRenders    *prometheus.CounterVec
	changes        *prometheus.CounterVec
}

// renderBuckets are in milliseconds, centred on the 16ms frame budget.
var renderBuckets = []float64{1, 2, 4, 8, 16, 33, 50, 100, 250, 500, 1000}

// NewCollector creates a collector with all metrics registered. components,
// when non-nil, reports the number of registered components at scrape time.
func NewCollector(components func() int) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "renderlens_renders_total",
			Help: "Committed renders per component.",
		}, []string{"component"}),
		renderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "renderlens_render_duration_ms",
			Help:    "Render duration in milliseconds.",
			Buckets: renderBuckets,
		}, []string{"component"}),
		slowRenders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "renderlens_slow_renders_total",
			Help: "Renders exceeding the slow threshold.",
		}, []string{"component"}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "renderlens_prop_changes_total",
			Help: "Detected prop changes by reason.",
		}, []string{"reason"}),
	}
	c.registry.MustRegister(c.renders, c.renderDuration, c.slowRenders, c.changes)
	if components != nil {
		c.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "renderlens_mounted_components",
			Help: "Components currently registered in the hierarchy.",
		}, func() float64 { return float64(components()) }))
	}
	return c
}

// Attach subscribes the collector to b. The returned function detaches it.
func (c *Collector) Attach(b *bus.Bus) func() {
	cancels := []func(){
		bus.On(b, types.TopicRenderEnd, func(p types.RenderEndPayload) {
			c.renders.WithLabelValues(p.ComponentName).Inc()
			c.renderDuration.WithLabelValues(p.ComponentName).Observe(p.Duration)
		}),
		bus.On(b, types.TopicPerformanceWarning, func(p types.PerformanceWarningPayload) {
			c.slowRenders.WithLabelValues(p.ComponentName).Inc()
		}),
		bus.On(b, types.TopicChangeDetected, func(p types.ChangeDetectedPayload) {
			for _, ch := range p.Changes {
				c.changes.WithLabelValues(string(ch.Reason)).Inc()
			}
		}),
	}
	return func() {
		for _, cancel := range cancels {
			cancel()
		}
	}
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
