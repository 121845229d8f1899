package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option tunes a Manager before its collectors are registered.
type Option func(*Manager)

// WithNamespace replaces the "scoreboard" namespace. Empty keeps the default.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithSubsystem inserts a subsystem between namespace and metric name.
func WithSubsystem(subsystem string) Option {
	return func(m *Manager) { m.subsystem = subsystem }
}

// WithMetricPrefix prepends prefix and an underscore to every metric name.
func WithMetricPrefix(prefix string) Option {
	return func(m *Manager) { m.metricPrefix = prefix }
}

// WithBuckets sets the latency histogram buckets in seconds.
func WithBuckets(buckets ...float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithConstLabel attaches a constant label to every collector.
func WithConstLabel(name, value string) Option {
	return func(m *Manager) {
		if name == "" {
			return
		}
		if m.customLabels == nil {
			m.customLabels = make(map[string]string)
		}
		m.customLabels[name] = value
	}
}

// WithRefreshInterval sets how often RunSystemCollector samples the runtime.
func WithRefreshInterval(interval time.Duration) Option {
	return func(m *Manager) {
		if interval > 0 {
			m.refreshInterval = interval
		}
	}
}

// WithDisabled turns every Record* helper into a no-op.
func WithDisabled() Option {
	return func(m *Manager) { m.enabled = false }
}

// WithPrometheusRegistry registers collectors on r instead of the default registerer.
func WithPrometheusRegistry(r prometheus.Registerer) Option {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}
