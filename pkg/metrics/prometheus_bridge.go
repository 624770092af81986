package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registryCollector adapts a Registry to prometheus.Collector, so a Registry
// built with this package's own lightweight Counter/Gauge/Histogram types can
// still be scraped by a real Prometheus client_golang HTTP handler.
type registryCollector struct {
	registry  *Registry
	namespace string
}

// NewPrometheusCollector wraps registry as a prometheus.Collector under the
// given namespace (may be empty).
func NewPrometheusCollector(registry *Registry, namespace string) prometheus.Collector {
	return &registryCollector{registry: registry, namespace: namespace}
}

// Describe satisfies prometheus.Collector; this package's metrics are
// created dynamically, so no fixed descriptor set is advertised up front.
func (c *registryCollector) Describe(ch chan<- *prometheus.Desc) {}

// Collect satisfies prometheus.Collector, emitting one const metric per
// entry currently in the registry.
func (c *registryCollector) Collect(ch chan<- prometheus.Metric) {
	c.registry.mu.RLock()
	defer c.registry.mu.RUnlock()

	for name, counter := range c.registry.counters {
		desc := prometheus.NewDesc(c.name(name), "counter "+name, nil, nil)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(counter.Value()))
	}
	for name, gauge := range c.registry.gauges {
		desc := prometheus.NewDesc(c.name(name), "gauge "+name, nil, nil)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(gauge.Value()))
	}
	for name, hist := range c.registry.histograms {
		desc := prometheus.NewDesc(c.name(name), "summary "+name, nil, nil)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, hist.Mean())
	}
}

func (c *registryCollector) name(metric string) string {
	sanitized := sanitizePromName(metric)
	if c.namespace == "" {
		return sanitized
	}
	return c.namespace + "_" + sanitized
}

func sanitizePromName(name string) string {
	out := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		switch ch := name[i]; {
		case ch == '.' || ch == '-':
			out[i] = '_'
		default:
			out[i] = ch
		}
	}
	return string(out)
}

// NewPrometheusClientHandler registers registry with a fresh
// prometheus.Registry and returns an http.Handler serving it via the
// official client_golang exposition writer.
func NewPrometheusClientHandler(registry *Registry, namespace string) http.Handler {
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(NewPrometheusCollector(registry, namespace))
	return promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{})
}
