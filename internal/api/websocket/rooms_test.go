package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomManager_JoinLeave(t *testing.T) {
	rooms := NewRoomManager()

	rooms.Join("conn-a", "board-1")
	rooms.Join("conn-b", "board-1")
	rooms.Join("conn-a", "board-2")

	assert.ElementsMatch(t, []string{"conn-a", "conn-b"}, rooms.Members("board-1"))
	assert.ElementsMatch(t, []string{"conn-a"}, rooms.Members("board-2"))
	assert.True(t, rooms.IsMember("board-1", "conn-a"))
	assert.False(t, rooms.IsMember("board-1", "conn-c"))

	rooms.Leave("conn-a", "board-1")
	assert.ElementsMatch(t, []string{"conn-b"}, rooms.Members("board-1"))
	assert.True(t, rooms.IsMember("board-2", "conn-a"))
}

func TestRoomManager_LeaveAll(t *testing.T) {
	rooms := NewRoomManager()
	rooms.Join("conn-a", "board-1")
	rooms.Join("conn-a", "board-2")
	rooms.Join("conn-b", "board-1")

	rooms.LeaveAll("conn-a")

	assert.False(t, rooms.IsMember("board-1", "conn-a"))
	assert.False(t, rooms.IsMember("board-2", "conn-a"))
	assert.Empty(t, rooms.Members("board-2"))
	assert.ElementsMatch(t, []string{"conn-b"}, rooms.Members("board-1"))
}

func TestRoomManager_UnknownBoard(t *testing.T) {
	rooms := NewRoomManager()

	assert.Empty(t, rooms.Members("nope"))
	assert.False(t, rooms.IsMember("nope", "conn-a"))
	rooms.Leave("conn-a", "nope")
	rooms.LeaveAll("conn-a")
}
