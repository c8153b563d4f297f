package websocket

import (
	"sync/atomic"
	"time"

	"github.com/Riya-023/collaborative-todo-board/pkg/observability"
)

// MetricsCollector collects realtime channel metrics
type MetricsCollector struct {
	client observability.MetricsClient

	totalConnections  atomic.Uint64
	activeConnections atomic.Int64
	messagesReceived  atomic.Uint64
	messagesSent      atomic.Uint64
	messagesDropped   atomic.Uint64
	locksGranted      atomic.Uint64
	locksReleased     atomic.Uint64
	conflicts         atomic.Uint64
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(client observability.MetricsClient) *MetricsCollector {
	if client == nil {
		client = observability.NewNoopMetricsClient()
	}
	return &MetricsCollector{client: client}
}

// RecordConnection records a new connection
func (mc *MetricsCollector) RecordConnection() {
	mc.totalConnections.Add(1)
	active := mc.activeConnections.Add(1)

	mc.client.IncrementCounter("websocket_connections_total", 1)
	mc.client.RecordGauge("websocket_connections_active", float64(active), nil)
}

// RecordDisconnection records a connection close
func (mc *MetricsCollector) RecordDisconnection(duration time.Duration) {
	active := mc.activeConnections.Add(-1)

	mc.client.RecordGauge("websocket_connections_active", float64(active), nil)
	mc.client.RecordHistogram("websocket_connection_duration_seconds", duration.Seconds(), nil)
}

// RecordMessage records message metrics
func (mc *MetricsCollector) RecordMessage(direction, method string, latency time.Duration) {
	if direction == "received" {
		mc.messagesReceived.Add(1)
	} else {
		mc.messagesSent.Add(1)
	}

	mc.client.IncrementCounterWithLabels("websocket_messages_total", 1, map[string]string{
		"direction": direction,
		"method":    method,
	})
	if latency > 0 {
		mc.client.RecordHistogram("websocket_message_latency_seconds", latency.Seconds(), nil)
	}
}

// RecordMessageDropped records a dropped outbound message
func (mc *MetricsCollector) RecordMessageDropped(reason string) {
	mc.messagesDropped.Add(1)
	mc.client.IncrementCounterWithLabels("websocket_messages_dropped_total", 1, map[string]string{
		"reason": reason,
	})
}

// RecordError records a protocol or processing error
func (mc *MetricsCollector) RecordError(kind string) {
	mc.client.IncrementCounterWithLabels("websocket_errors_total", 1, map[string]string{
		"kind": kind,
	})
}

// RecordLockGranted records a successful edit lock acquisition
func (mc *MetricsCollector) RecordLockGranted() {
	mc.locksGranted.Add(1)
	mc.client.IncrementCounter("edit_locks_granted_total", 1)
}

// RecordLockReleased records an edit lock release
func (mc *MetricsCollector) RecordLockReleased() {
	mc.locksReleased.Add(1)
	mc.client.IncrementCounter("edit_locks_released_total", 1)
}

// RecordConflict records an edit conflict
func (mc *MetricsCollector) RecordConflict() {
	mc.conflicts.Add(1)
	mc.client.IncrementCounter("edit_conflicts_total", 1)
}

// Stats is a point-in-time snapshot for the health endpoint
type Stats struct {
	TotalConnections  uint64 `json:"total_connections"`
	ActiveConnections int64  `json:"active_connections"`
	MessagesReceived  uint64 `json:"messages_received"`
	MessagesSent      uint64 `json:"messages_sent"`
	MessagesDropped   uint64 `json:"messages_dropped"`
	LocksGranted      uint64 `json:"locks_granted"`
	LocksReleased     uint64 `json:"locks_released"`
	Conflicts         uint64 `json:"conflicts"`
}

// Snapshot returns current counter values
func (mc *MetricsCollector) Snapshot() Stats {
	return Stats{
		TotalConnections:  mc.totalConnections.Load(),
		ActiveConnections: mc.activeConnections.Load(),
		MessagesReceived:  mc.messagesReceived.Load(),
		MessagesSent:      mc.messagesSent.Load(),
		MessagesDropped:   mc.messagesDropped.Load(),
		LocksGranted:      mc.locksGranted.Load(),
		LocksReleased:     mc.locksReleased.Load(),
		Conflicts:         mc.conflicts.Load(),
	}
}
