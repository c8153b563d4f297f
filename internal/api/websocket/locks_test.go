package websocket

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Riya-023/collaborative-todo-board/pkg/models/board"
)

func editor(user, conn string) board.Editor {
	return board.Editor{UserID: user, Username: user, ConnectionID: conn}
}

func TestEditLockTable_TryAcquire(t *testing.T) {
	table := NewEditLockTable()

	granted, holder := table.TryAcquire("task-1", editor("alice", "conn-a"))
	assert.True(t, granted)
	assert.Nil(t, holder)

	// Second requester is refused and told who holds the lock
	granted, holder = table.TryAcquire("task-1", editor("bob", "conn-b"))
	assert.False(t, granted)
	require.NotNil(t, holder)
	assert.Equal(t, "alice", holder.Username)
	assert.Equal(t, "conn-a", holder.ConnectionID)

	// The refused request must not disturb the existing lock
	current, ok := table.Holder("task-1")
	require.True(t, ok)
	assert.Equal(t, "conn-a", current.ConnectionID)

	// A different task is independent
	granted, _ = table.TryAcquire("task-2", editor("bob", "conn-b"))
	assert.True(t, granted)
	assert.Equal(t, 2, table.Len())
}

func TestEditLockTable_TryAcquire_SameHolderTwice(t *testing.T) {
	table := NewEditLockTable()

	granted, _ := table.TryAcquire("task-1", editor("alice", "conn-a"))
	require.True(t, granted)

	// Re-requesting your own lock still reports a conflict with yourself;
	// the lock is never reissued while held.
	granted, holder := table.TryAcquire("task-1", editor("alice", "conn-a"))
	assert.False(t, granted)
	require.NotNil(t, holder)
	assert.Equal(t, "conn-a", holder.ConnectionID)
}

func TestEditLockTable_Release(t *testing.T) {
	table := NewEditLockTable()
	table.TryAcquire("task-1", editor("alice", "conn-a"))

	// A non-holder cannot release
	assert.False(t, table.Release("task-1", "conn-b"))
	_, ok := table.Holder("task-1")
	assert.True(t, ok)

	// The holder can, exactly once
	assert.True(t, table.Release("task-1", "conn-a"))
	assert.False(t, table.Release("task-1", "conn-a"))
	_, ok = table.Holder("task-1")
	assert.False(t, ok)

	// Releasing a task that was never locked is a no-op
	assert.False(t, table.Release("task-x", "conn-a"))
}

func TestEditLockTable_ReleaseAllFor(t *testing.T) {
	table := NewEditLockTable()
	table.TryAcquire("task-1", editor("alice", "conn-a"))
	table.TryAcquire("task-2", editor("alice", "conn-a"))
	table.TryAcquire("task-3", editor("bob", "conn-b"))

	released := table.ReleaseAllFor("conn-a")
	assert.ElementsMatch(t, []string{"task-1", "task-2"}, released)
	assert.Equal(t, 1, table.Len())

	// Bob's lock survives Alice's disconnect
	holder, ok := table.Holder("task-3")
	require.True(t, ok)
	assert.Equal(t, "conn-b", holder.ConnectionID)

	// A second cleanup for the same connection finds nothing
	assert.Empty(t, table.ReleaseAllFor("conn-a"))
}

func TestEditLockTable_ConcurrentAcquire(t *testing.T) {
	table := NewEditLockTable()

	const contenders = 64
	var granted atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			conn := fmt.Sprintf("conn-%d", n)
			if ok, _ := table.TryAcquire("task-1", editor(conn, conn)); ok {
				granted.Add(1)
			}
		}(i)
	}
	wg.Wait()

	// Exactly one contender may win, no matter the interleaving
	assert.Equal(t, int32(1), granted.Load())
	assert.Equal(t, 1, table.Len())
}

func TestEditLockTable_ConcurrentAcquireRelease(t *testing.T) {
	table := NewEditLockTable()

	const workers = 32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			conn := fmt.Sprintf("conn-%d", n)
			for j := 0; j < 100; j++ {
				taskID := fmt.Sprintf("task-%d", j%5)
				if ok, _ := table.TryAcquire(taskID, editor(conn, conn)); ok {
					table.Release(taskID, conn)
				}
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, table.Len())
}
