package websocket

import (
	"sync"
)

// RoomManager is the subscription table behind board-scoped delivery.
// The current board flow uses a single implicit room, but the contract
// supports partitioning connections into independent boards.
type RoomManager struct {
	mu      sync.RWMutex
	members map[string]map[string]struct{} // board ID -> connection IDs
	joined  map[string]map[string]struct{} // connection ID -> board IDs
}

// NewRoomManager creates an empty room manager
func NewRoomManager() *RoomManager {
	return &RoomManager{
		members: make(map[string]map[string]struct{}),
		joined:  make(map[string]map[string]struct{}),
	}
}

// Join subscribes a connection to a board
func (m *RoomManager) Join(connectionID, boardID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.members[boardID] == nil {
		m.members[boardID] = make(map[string]struct{})
	}
	m.members[boardID][connectionID] = struct{}{}

	if m.joined[connectionID] == nil {
		m.joined[connectionID] = make(map[string]struct{})
	}
	m.joined[connectionID][boardID] = struct{}{}
}

// Leave removes a connection from a board
func (m *RoomManager) Leave(connectionID, boardID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remove(connectionID, boardID)
}

// LeaveAll removes a connection from every board it joined. Used on
// disconnect.
func (m *RoomManager) LeaveAll(connectionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for boardID := range m.joined[connectionID] {
		m.remove(connectionID, boardID)
	}
}

func (m *RoomManager) remove(connectionID, boardID string) {
	if conns, ok := m.members[boardID]; ok {
		delete(conns, connectionID)
		if len(conns) == 0 {
			delete(m.members, boardID)
		}
	}
	if boards, ok := m.joined[connectionID]; ok {
		delete(boards, boardID)
		if len(boards) == 0 {
			delete(m.joined, connectionID)
		}
	}
}

// Members returns the connection IDs subscribed to a board
func (m *RoomManager) Members(boardID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conns := m.members[boardID]
	ids := make([]string, 0, len(conns))
	for id := range conns {
		ids = append(ids, id)
	}
	return ids
}

// IsMember reports whether the connection joined the board
func (m *RoomManager) IsMember(boardID, connectionID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conns, ok := m.members[boardID]
	if !ok {
		return false
	}
	_, ok = conns[connectionID]
	return ok
}
