package websocket

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Riya-023/collaborative-todo-board/pkg/models/board"
	"github.com/Riya-023/collaborative-todo-board/pkg/observability"
)

type sentFrame struct {
	connectionID string
	method       string
	payload      interface{}
}

// recordingNotifier captures deliveries instead of sending them
type recordingNotifier struct {
	sent      []sentFrame
	broadcast []sentFrame
	failSend  bool
}

func (n *recordingNotifier) SendToConnection(connectionID, method string, payload interface{}) error {
	if n.failSend {
		return errors.New("gone")
	}
	n.sent = append(n.sent, sentFrame{connectionID, method, payload})
	return nil
}

func (n *recordingNotifier) BroadcastExcept(originConnectionID, method string, payload interface{}) {
	n.broadcast = append(n.broadcast, sentFrame{originConnectionID, method, payload})
}

func newTestArbiter(notifier Notifier) (*ConflictArbiter, *EditLockTable) {
	locks := NewEditLockTable()
	metrics := NewMetricsCollector(observability.NewNoopMetricsClient())
	return NewConflictArbiter(locks, notifier, observability.NewNoopLogger(), metrics), locks
}

func TestConflictArbiter_Granted(t *testing.T) {
	notifier := &recordingNotifier{}
	arbiter, locks := newTestArbiter(notifier)

	granted := arbiter.RequestEdit("task-1", editor("alice", "conn-a"))
	assert.True(t, granted)

	// Only the requester is notified; nothing is broadcast
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "conn-a", notifier.sent[0].connectionID)
	assert.Equal(t, board.EventEditStarted, notifier.sent[0].method)
	assert.Empty(t, notifier.broadcast)

	_, held := locks.Holder("task-1")
	assert.True(t, held)
}

func TestConflictArbiter_Conflict(t *testing.T) {
	notifier := &recordingNotifier{}
	arbiter, locks := newTestArbiter(notifier)

	require.True(t, arbiter.RequestEdit("task-1", editor("alice", "conn-a")))
	notifier.sent = nil

	granted := arbiter.RequestEdit("task-1", editor("bob", "conn-b"))
	assert.False(t, granted)

	// Exactly the two parties hear about it, with identical payloads
	require.Len(t, notifier.sent, 2)
	assert.Equal(t, "conn-b", notifier.sent[0].connectionID)
	assert.Equal(t, "conn-a", notifier.sent[1].connectionID)
	for _, frame := range notifier.sent {
		assert.Equal(t, board.EventEditConflict, frame.method)
		notification := frame.payload.(board.ConflictNotification)
		assert.Equal(t, "alice", notification.CurrentEditor.Username)
		assert.Equal(t, "bob", notification.RequestingEditor.Username)
	}
	assert.Empty(t, notifier.broadcast)

	holder, _ := locks.Holder("task-1")
	assert.Equal(t, "conn-a", holder.ConnectionID)
}

func TestConflictArbiter_DeliveryFailureDoesNotBlockGrant(t *testing.T) {
	notifier := &recordingNotifier{failSend: true}
	arbiter, locks := newTestArbiter(notifier)

	// The lock is granted even when the grant notification cannot be
	// delivered; disconnect cleanup will reclaim it.
	assert.True(t, arbiter.RequestEdit("task-1", editor("alice", "conn-a")))
	_, held := locks.Holder("task-1")
	assert.True(t, held)
}

func TestConflictArbiter_StopEdit(t *testing.T) {
	notifier := &recordingNotifier{}
	arbiter, locks := newTestArbiter(notifier)

	require.True(t, arbiter.RequestEdit("task-1", editor("alice", "conn-a")))
	notifier.sent = nil

	// Stranger's stop does nothing
	arbiter.StopEdit("task-1", "conn-b")
	assert.Empty(t, notifier.broadcast)
	_, held := locks.Holder("task-1")
	assert.True(t, held)

	// Holder's stop releases and broadcasts away from the origin
	arbiter.StopEdit("task-1", "conn-a")
	require.Len(t, notifier.broadcast, 1)
	assert.Equal(t, "conn-a", notifier.broadcast[0].connectionID)
	assert.Equal(t, board.EventEditReleased, notifier.broadcast[0].method)
	assert.Equal(t, 0, locks.Len())

	// Duplicate stop broadcasts nothing further
	arbiter.StopEdit("task-1", "conn-a")
	assert.Len(t, notifier.broadcast, 1)
}
