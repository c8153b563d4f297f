package websocket

import (
	"sync"
	"time"

	"github.com/Riya-023/collaborative-todo-board/pkg/models/board"
)

// SessionRegistry tracks which user identity each live connection
// represents. It exclusively owns Session records; other components read
// identities through Lookup but never mutate them.
//
// Connections that never announce an identity stay tracked at the transport
// level only and have no entry here.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*board.Session
}

// NewSessionRegistry creates an empty registry
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]*board.Session),
	}
}

// Register binds a connection to an identity. Registering a zero identity
// is a no-op and returns nil.
func (r *SessionRegistry) Register(connectionID string, identity board.Identity) *board.Session {
	if identity.Zero() {
		return nil
	}

	session := &board.Session{
		ConnectionID: connectionID,
		Identity:     identity,
		JoinedAt:     time.Now(),
	}

	r.mu.Lock()
	r.sessions[connectionID] = session
	r.mu.Unlock()

	return session
}

// Unregister removes the session for the connection and returns it so the
// caller can still emit a presence-left event carrying the identity.
// Unregistering an unknown connection is a no-op, not an error.
func (r *SessionRegistry) Unregister(connectionID string) *board.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[connectionID]
	if !ok {
		return nil
	}
	delete(r.sessions, connectionID)
	return session
}

// Lookup returns the identity bound to the connection
func (r *SessionRegistry) Lookup(connectionID string) (board.Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[connectionID]
	if !ok {
		return board.Identity{}, false
	}
	return session.Identity, true
}

// Identities returns the identities of all registered sessions
func (r *SessionRegistry) Identities() []board.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identities := make([]board.Identity, 0, len(r.sessions))
	for _, session := range r.sessions {
		identities = append(identities, session.Identity)
	}
	return identities
}

// Count returns the number of registered sessions
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
