package observability

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsClient implements MetricsClient backed by a prometheus
// registry. Collectors are created lazily the first time a metric name is
// seen; a metric name used with labels must always carry the same label keys.
type PrometheusMetricsClient struct {
	registry  *prometheus.Registry
	namespace string

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPrometheusMetricsClient creates a metrics client registered against the
// given registry. Pass prometheus.NewRegistry() to isolate from the default.
func NewPrometheusMetricsClient(registry *prometheus.Registry, namespace string) *PrometheusMetricsClient {
	return &PrometheusMetricsClient{
		registry:   registry,
		namespace:  namespace,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

// Registry returns the underlying prometheus registry for exposing /metrics.
func (m *PrometheusMetricsClient) Registry() *prometheus.Registry {
	return m.registry
}

// IncrementCounter increments a counter without labels
func (m *PrometheusMetricsClient) IncrementCounter(name string, value float64) {
	m.IncrementCounterWithLabels(name, value, nil)
}

// IncrementCounterWithLabels increments a counter with labels
func (m *PrometheusMetricsClient) IncrementCounterWithLabels(name string, value float64, labels map[string]string) {
	keys, values := splitLabels(labels)
	m.counterVec(name, keys).WithLabelValues(values...).Add(value)
}

// RecordGauge sets a gauge value
func (m *PrometheusMetricsClient) RecordGauge(name string, value float64, labels map[string]string) {
	keys, values := splitLabels(labels)
	m.gaugeVec(name, keys).WithLabelValues(values...).Set(value)
}

// RecordHistogram records an observation
func (m *PrometheusMetricsClient) RecordHistogram(name string, value float64, labels map[string]string) {
	keys, values := splitLabels(labels)
	m.histogramVec(name, keys).WithLabelValues(values...).Observe(value)
}

// RecordDuration records a duration in seconds as a histogram observation
func (m *PrometheusMetricsClient) RecordDuration(name string, duration time.Duration) {
	m.RecordHistogram(name, duration.Seconds(), nil)
}

// Close implements MetricsClient.Close
func (m *PrometheusMetricsClient) Close() error {
	return nil
}

func (m *PrometheusMetricsClient) counterVec(name string, labelKeys []string) *prometheus.CounterVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.counters[name]; ok {
		return c
	}

	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      sanitizeName(name),
	}, labelKeys)
	m.registry.MustRegister(c)
	m.counters[name] = c
	return c
}

func (m *PrometheusMetricsClient) gaugeVec(name string, labelKeys []string) *prometheus.GaugeVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if g, ok := m.gauges[name]; ok {
		return g
	}

	g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      sanitizeName(name),
	}, labelKeys)
	m.registry.MustRegister(g)
	m.gauges[name] = g
	return g
}

func (m *PrometheusMetricsClient) histogramVec(name string, labelKeys []string) *prometheus.HistogramVec {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.histograms[name]; ok {
		return h
	}

	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      sanitizeName(name),
		Buckets:   prometheus.DefBuckets,
	}, labelKeys)
	m.registry.MustRegister(h)
	m.histograms[name] = h
	return h
}

// splitLabels returns label keys in sorted order and their values in the
// matching order so a metric name always maps to a stable label set.
func splitLabels(labels map[string]string) ([]string, []string) {
	if len(labels) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make([]string, len(keys))
	for i, k := range keys {
		values[i] = labels[k]
	}
	return keys, values
}

func sanitizeName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_", " ", "_").Replace(name)
}

// NoopMetricsClient is a MetricsClient that discards everything
type NoopMetricsClient struct{}

// NewNoopMetricsClient creates a new NoopMetricsClient
func NewNoopMetricsClient() MetricsClient {
	return &NoopMetricsClient{}
}

// IncrementCounter implements MetricsClient
func (n *NoopMetricsClient) IncrementCounter(name string, value float64) {}

// IncrementCounterWithLabels implements MetricsClient
func (n *NoopMetricsClient) IncrementCounterWithLabels(name string, value float64, labels map[string]string) {
}

// RecordGauge implements MetricsClient
func (n *NoopMetricsClient) RecordGauge(name string, value float64, labels map[string]string) {}

// RecordHistogram implements MetricsClient
func (n *NoopMetricsClient) RecordHistogram(name string, value float64, labels map[string]string) {}

// RecordDuration implements MetricsClient
func (n *NoopMetricsClient) RecordDuration(name string, duration time.Duration) {}

// Close implements MetricsClient
func (n *NoopMetricsClient) Close() error { return nil }
