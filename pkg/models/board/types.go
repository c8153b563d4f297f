// Package board defines the wire protocol for the realtime board channel:
// the message envelope exchanged over each WebSocket connection plus the
// transient presence, lock, and mutation event payloads.
package board

import (
	"sync/atomic"
	"time"
)

// MessageType represents WebSocket message types
type MessageType uint8

const (
	MessageTypeRequest MessageType = iota
	MessageTypeResponse
	MessageTypeNotification
	MessageTypeError
	MessageTypePing
	MessageTypePong
)

// Message represents a WebSocket message envelope
type Message struct {
	ID     string      `json:"id"`
	Type   MessageType `json:"type"`
	Method string      `json:"method,omitempty"`
	Params interface{} `json:"params,omitempty"`
	Result interface{} `json:"result,omitempty"`
	Error  *Error      `json:"error,omitempty"`
}

// Error represents a WebSocket error
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Standard error codes
const (
	ErrCodeInvalidMessage = 4000
	ErrCodeAuthFailed     = 4001
	ErrCodeRateLimited    = 4002
	ErrCodeServerError    = 4003
	ErrCodeMethodNotFound = 4004
	ErrCodeInvalidParams  = 4005
)

// NewError creates a new WebSocket error
func NewError(code int, message string, data interface{}) *Error {
	return &Error{Code: code, Message: message, Data: data}
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// IsRequest checks if the message is a request
func (m *Message) IsRequest() bool {
	return m.Type == MessageTypeRequest
}

// IsNotification checks if the message is a notification
func (m *Message) IsNotification() bool {
	return m.Type == MessageTypeNotification
}

// Client-to-server methods
const (
	MethodAnnounceIdentity = "identity.announce"
	MethodJoinBoard        = "board.join"
	MethodRequestEdit      = "task.request_edit"
	MethodStopEdit         = "task.stop_edit"
	MethodMutation         = "task.mutation"
	MethodLogActivity      = "activity.log"
)

// Server-to-client notification methods
const (
	EventPresenceJoined = "presence.joined"
	EventPresenceLeft   = "presence.left"
	EventEditStarted    = "task.edit_started"
	EventEditConflict   = "task.edit_conflict"
	EventEditReleased   = "task.edit_released"
	EventMutation       = "task.mutation"
	EventActivity       = "activity.logged"
)

// Mutation kinds carried by MethodMutation / EventMutation
const (
	MutationCreated = "created"
	MutationUpdated = "updated"
	MutationDeleted = "deleted"
)

// Identity is the user identity bound to a connection after a verified
// identity.announce.
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// Zero reports whether the identity carries no user
func (i Identity) Zero() bool {
	return i.UserID == ""
}

// Session is the ephemeral record binding a live connection to an identity.
// Sessions are owned exclusively by the session registry.
type Session struct {
	ConnectionID string    `json:"connection_id"`
	Identity     Identity  `json:"identity"`
	JoinedAt     time.Time `json:"joined_at"`
}

// Editor identifies the party holding or requesting an edit lock
type Editor struct {
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	ConnectionID string `json:"connection_id"`
}

// EditLock is the advisory, exclusive claim on one task for live editing.
// At most one lock exists per task at any instant.
type EditLock struct {
	TaskID     string    `json:"task_id"`
	Holder     Editor    `json:"holder"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// ConflictNotification is delivered to exactly two sessions when a second
// user requests an already-locked task. It is advisory: each client decides
// its own resolution and the server records nothing.
type ConflictNotification struct {
	TaskID           string `json:"task_id"`
	CurrentEditor    Editor `json:"current_editor"`
	RequestingEditor Editor `json:"requesting_editor"`
}

// EditEvent is the payload for edit_started / edit_released notifications
type EditEvent struct {
	TaskID string `json:"task_id"`
}

// MutationEvent relays a committed task mutation to other sessions.
// Persistence has already completed upstream; recipients must treat the
// payload as an upsert or delete against current state, not a delta.
type MutationEvent struct {
	Kind   string      `json:"kind"`
	TaskID string      `json:"task_id,omitempty"`
	Task   interface{} `json:"task,omitempty"`
}

// AnnounceParams carries the token-backed identity announcement
type AnnounceParams struct {
	Token string `json:"token"`
}

// JoinBoardParams scopes future broadcasts to a board group
type JoinBoardParams struct {
	BoardID string `json:"board_id"`
}

// EditParams names the task for request_edit / stop_edit
type EditParams struct {
	TaskID string `json:"task_id"`
}

// Connection carries the transport-level metadata for one live connection
type Connection struct {
	ID        string
	State     atomic.Value // ConnectionState
	CreatedAt time.Time
	LastPing  time.Time
}

// ConnectionState represents the state of a WebSocket connection
type ConnectionState int

const (
	ConnectionStateConnecting ConnectionState = iota
	ConnectionStateConnected
	ConnectionStateClosing
	ConnectionStateClosed
)

// GetState returns the current connection state
func (c *Connection) GetState() ConnectionState {
	if state := c.State.Load(); state != nil {
		return state.(ConnectionState)
	}
	return ConnectionStateClosed
}

// SetState sets the connection state
func (c *Connection) SetState(state ConnectionState) {
	c.State.Store(state)
}

// IsActive checks if the connection is active
func (c *Connection) IsActive() bool {
	state := c.GetState()
	return state == ConnectionStateConnected || state == ConnectionStateConnecting
}
