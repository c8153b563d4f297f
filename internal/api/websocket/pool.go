package websocket

import (
	"sync"

	"github.com/Riya-023/collaborative-todo-board/pkg/models/board"
)

// messagePool reuses message envelopes across the read/write paths
var messagePool = sync.Pool{
	New: func() interface{} {
		return &board.Message{}
	},
}

// GetMessage returns a zeroed message from the pool
func GetMessage() *board.Message {
	return messagePool.Get().(*board.Message)
}

// PutMessage resets the message and returns it to the pool
func PutMessage(m *board.Message) {
	*m = board.Message{}
	messagePool.Put(m)
}
