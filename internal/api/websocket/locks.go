package websocket

import (
	"sync"
	"time"

	"github.com/Riya-023/collaborative-todo-board/pkg/models/board"
)

// EditLockTable tracks which connection is editing which task. Locks are
// advisory and cooperative: they warn clients about contention but do not
// block HTTP-level writes. At most one lock exists per task at any instant;
// every mutation happens under one mutex so two concurrent TryAcquire calls
// on the same task can never both observe it unlocked.
//
// There is no expiry. A lock is released only by an explicit stop/submit or
// by disconnect cleanup.
type EditLockTable struct {
	mu    sync.Mutex
	locks map[string]*board.EditLock
}

// NewEditLockTable creates an empty lock table
func NewEditLockTable() *EditLockTable {
	return &EditLockTable{
		locks: make(map[string]*board.EditLock),
	}
}

// TryAcquire atomically claims the task for the requester. If the task is
// already locked the existing lock is left untouched — never stolen,
// transferred, or queued — and the current holder is returned.
func (t *EditLockTable) TryAcquire(taskID string, requester board.Editor) (bool, *board.Editor) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if lock, ok := t.locks[taskID]; ok {
		holder := lock.Holder
		return false, &holder
	}

	t.locks[taskID] = &board.EditLock{
		TaskID:     taskID,
		Holder:     requester,
		AcquiredAt: time.Now(),
	}
	return true, nil
}

// Release deletes the lock only if it is held by the given connection.
// Releasing an unheld or foreign lock is a no-op, which keeps a stale
// client from dropping another session's active lock. Returns whether a
// lock was actually released.
func (t *EditLockTable) Release(taskID, connectionID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	lock, ok := t.locks[taskID]
	if !ok || lock.Holder.ConnectionID != connectionID {
		return false
	}

	delete(t.locks, taskID)
	return true
}

// ReleaseAllFor deletes every lock held by the given connection and returns
// the released task IDs so the caller can broadcast release notifications.
// Used on disconnect.
func (t *EditLockTable) ReleaseAllFor(connectionID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var released []string
	for taskID, lock := range t.locks {
		if lock.Holder.ConnectionID == connectionID {
			delete(t.locks, taskID)
			released = append(released, taskID)
		}
	}
	return released
}

// Holder returns the current holder of the task's lock, if any
func (t *EditLockTable) Holder(taskID string) (board.Editor, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	lock, ok := t.locks[taskID]
	if !ok {
		return board.Editor{}, false
	}
	return lock.Holder, true
}

// Len returns the number of live locks
func (t *EditLockTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}
