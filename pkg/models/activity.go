package models

import (
	"time"

	"github.com/google/uuid"
)

// Activity actions
const (
	ActionCreated       = "created"
	ActionUpdated       = "updated"
	ActionDeleted       = "deleted"
	ActionAssigned      = "assigned"
	ActionMoved         = "moved"
	ActionSmartAssigned = "smart-assigned"
)

// Activity is an audit record for a task mutation. Rows are written by the
// HTTP layer after a successful mutation and mirrored to connected clients
// over the event channel.
type Activity struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	Action    string     `json:"action" db:"action"`
	TaskID    *uuid.UUID `json:"task_id" db:"task_id"`
	TaskTitle string     `json:"task_title" db:"task_title"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id"`
	Username  string     `json:"username" db:"username"`
	Details   string     `json:"details" db:"details"`
	Timestamp time.Time  `json:"timestamp" db:"timestamp"`
}

// ValidAction reports whether a is a known activity action
func ValidAction(a string) bool {
	switch a {
	case ActionCreated, ActionUpdated, ActionDeleted, ActionAssigned, ActionMoved, ActionSmartAssigned:
		return true
	}
	return false
}
