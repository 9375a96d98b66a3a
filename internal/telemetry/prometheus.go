// Package telemetry backs the observability metrics interface with
// prometheus collectors exported on /metrics.
package telemetry

import (
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pareedo/pigeonwatch/internal/observability"
)

// PrometheusMetrics implements observability.Metrics. Collectors are
// created lazily on first use; the label schema of a metric is fixed by
// its first observation.
type PrometheusMetrics struct {
	namespace  string
	registerer prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
	labelKeys  map[string][]string
}

// NewPrometheusMetrics builds a metrics adapter registering into reg;
// nil uses the default registerer.
func NewPrometheusMetrics(namespace string, reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := new(PrometheusMetrics)
	m.namespace = namespace
	m.registerer = reg
	m.counters = make(map[string]*prometheus.CounterVec)
	m.gauges = make(map[string]*prometheus.GaugeVec)
	m.histograms = make(map[string]*prometheus.HistogramVec)
	m.labelKeys = make(map[string][]string)
	return m
}

// IncCounter adds value to the named counter.
func (m *PrometheusMetrics) IncCounter(name string, value float64, labels map[string]string) {
	keys, values, ok := m.labelPairs(name, labels)
	if !ok {
		return
	}
	m.mu.Lock()
	vec, found := m.counters[name]
	if !found {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      sanitizeMetricName(name),
		}, keys)
		if err := m.registerer.Register(vec); err != nil {
			m.mu.Unlock()
			observability.Log().Warn("counter registration failed",
				observability.F("metric", name),
				observability.F("error", err.Error()))
			return
		}
		m.counters[name] = vec
	}
	m.mu.Unlock()
	vec.WithLabelValues(values...).Add(value)
}

// SetGauge sets the named gauge.
func (m *PrometheusMetrics) SetGauge(name string, value float64, labels map[string]string) {
	keys, values, ok := m.labelPairs(name, labels)
	if !ok {
		return
	}
	m.mu.Lock()
	vec, found := m.gauges[name]
	if !found {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: m.namespace,
			Name:      sanitizeMetricName(name),
		}, keys)
		if err := m.registerer.Register(vec); err != nil {
			m.mu.Unlock()
			observability.Log().Warn("gauge registration failed",
				observability.F("metric", name),
				observability.F("error", err.Error()))
			return
		}
		m.gauges[name] = vec
	}
	m.mu.Unlock()
	vec.WithLabelValues(values...).Set(value)
}

// ObserveHistogram records value into the named histogram.
func (m *PrometheusMetrics) ObserveHistogram(name string, value float64, labels map[string]string) {
	keys, values, ok := m.labelPairs(name, labels)
	if !ok {
		return
	}
	m.mu.Lock()
	vec, found := m.histograms[name]
	if !found {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: m.namespace,
			Name:      sanitizeMetricName(name),
			Buckets:   prometheus.DefBuckets,
		}, keys)
		if err := m.registerer.Register(vec); err != nil {
			m.mu.Unlock()
			observability.Log().Warn("histogram registration failed",
				observability.F("metric", name),
				observability.F("error", err.Error()))
			return
		}
		m.histograms[name] = vec
	}
	m.mu.Unlock()
	vec.WithLabelValues(values...).Observe(value)
}

// labelPairs returns the sorted label keys and matching values. The
// first observation of a metric pins its label schema; later calls
// with a different schema are dropped with a warning.
func (m *PrometheusMetrics) labelPairs(name string, labels map[string]string) ([]string, []string, bool) {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	m.mu.Lock()
	pinned, seen := m.labelKeys[name]
	if !seen {
		m.labelKeys[name] = keys
		pinned = keys
	}
	m.mu.Unlock()

	if !equalStrings(pinned, keys) {
		observability.Log().Warn("metric label schema mismatch",
			observability.F("metric", name),
			observability.F("want", pinned),
			observability.F("got", keys))
		return nil, nil, false
	}

	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = labels[k]
	}
	return keys, values, true
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sanitizeMetricName(name string) string {
	var sb strings.Builder
	sb.Grow(len(name))
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			sb.WriteRune(r)
		case r >= '0' && r <= '9' && i > 0:
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return sb.String()
}
