package websocket

import (
	"github.com/Riya-023/collaborative-todo-board/pkg/models/board"
	"github.com/Riya-023/collaborative-todo-board/pkg/observability"
)

// Notifier is the delivery surface the arbiter uses to reach sessions.
// Implemented by the hub.
type Notifier interface {
	SendToConnection(connectionID, method string, payload interface{}) error
	BroadcastExcept(originConnectionID, method string, payload interface{})
}

// ConflictArbiter mediates edit requests against the lock table. It reads
// lock state only through TryAcquire/Release — it never mutates the table
// directly — and its notifications are purely advisory: each client decides
// its own resolution and the server records nothing about the outcome.
type ConflictArbiter struct {
	locks    *EditLockTable
	notifier Notifier
	logger   observability.Logger
	metrics  *MetricsCollector
}

// NewConflictArbiter creates a new arbiter over the given lock table
func NewConflictArbiter(locks *EditLockTable, notifier Notifier, logger observability.Logger, metrics *MetricsCollector) *ConflictArbiter {
	return &ConflictArbiter{
		locks:    locks,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
	}
}

// RequestEdit attempts to acquire the edit lock for the requester.
//
// Granted: only the requester is told editing started; nothing is
// broadcast. Conflict: a ConflictNotification naming both parties goes to
// the requester and the current holder, and the lock is left unchanged.
// Further requesters keep receiving the same conflict referencing the
// original holder until it releases.
func (a *ConflictArbiter) RequestEdit(taskID string, requester board.Editor) bool {
	granted, holder := a.locks.TryAcquire(taskID, requester)
	if granted {
		a.metrics.RecordLockGranted()
		if err := a.notifier.SendToConnection(requester.ConnectionID, board.EventEditStarted, board.EditEvent{TaskID: taskID}); err != nil {
			a.logger.Debug("Failed to deliver edit-started", map[string]interface{}{
				"task_id":       taskID,
				"connection_id": requester.ConnectionID,
			})
		}
		return true
	}

	a.metrics.RecordConflict()
	notification := board.ConflictNotification{
		TaskID:           taskID,
		CurrentEditor:    *holder,
		RequestingEditor: requester,
	}

	// Delivered to exactly the two parties; failures to either are
	// swallowed like any other best-effort delivery.
	_ = a.notifier.SendToConnection(requester.ConnectionID, board.EventEditConflict, notification)
	_ = a.notifier.SendToConnection(holder.ConnectionID, board.EventEditConflict, notification)

	a.logger.Info("Edit conflict", map[string]interface{}{
		"task_id":   taskID,
		"holder":    holder.Username,
		"requester": requester.Username,
	})
	return false
}

// StopEdit releases the lock if the connection holds it and broadcasts the
// release to every other session. A stale or duplicate stop is a silent
// no-op.
func (a *ConflictArbiter) StopEdit(taskID, connectionID string) {
	if !a.locks.Release(taskID, connectionID) {
		return
	}
	a.metrics.RecordLockReleased()
	a.notifier.BroadcastExcept(connectionID, board.EventEditReleased, board.EditEvent{TaskID: taskID})
}
