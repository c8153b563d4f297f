package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatherNames(t *testing.T, registry *prometheus.Registry) map[string]bool {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	return names
}

func TestPrometheusMetricsClient_Counter(t *testing.T) {
	registry := prometheus.NewRegistry()
	client := NewPrometheusMetricsClient(registry, "testns")

	client.IncrementCounter("requests.total", 1)
	client.IncrementCounter("requests.total", 2)

	families, err := registry.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "testns_requests_total", families[0].GetName())
	assert.Equal(t, float64(3), families[0].GetMetric()[0].GetCounter().GetValue())
}

func TestPrometheusMetricsClient_CounterWithLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	client := NewPrometheusMetricsClient(registry, "testns")

	// Label key order in the map must not matter
	client.IncrementCounterWithLabels("messages", 1, map[string]string{"direction": "in", "method": "a"})
	client.IncrementCounterWithLabels("messages", 1, map[string]string{"method": "a", "direction": "in"})
	client.IncrementCounterWithLabels("messages", 1, map[string]string{"direction": "out", "method": "a"})

	families, err := registry.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Len(t, families[0].GetMetric(), 2)
}

func TestPrometheusMetricsClient_GaugeAndHistogram(t *testing.T) {
	registry := prometheus.NewRegistry()
	client := NewPrometheusMetricsClient(registry, "testns")

	client.RecordGauge("connections.active", 7, nil)
	client.RecordHistogram("latency-seconds", 0.2, nil)
	client.RecordDuration("request duration", 150*time.Millisecond)

	names := gatherNames(t, registry)
	assert.True(t, names["testns_connections_active"])
	assert.True(t, names["testns_latency_seconds"])
	assert.True(t, names["testns_request_duration"])
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "a_b_c_d", sanitizeName("a.b-c d"))
}
