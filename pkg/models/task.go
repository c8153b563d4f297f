package models

import (
	"time"

	"github.com/google/uuid"
)

// Task statuses map to the board columns.
const (
	StatusTodo       = "Todo"
	StatusInProgress = "In Progress"
	StatusDone       = "Done"
)

// Task priorities
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

// Field limits enforced at the API layer before hitting the database.
const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
)

// ColumnNames lists the board columns; task titles must not collide with
// them so drag targets stay unambiguous in the UI.
var ColumnNames = []string{StatusTodo, StatusInProgress, StatusDone}

// Task represents a board task
type Task struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Title        string     `json:"title" db:"title"`
	Description  string     `json:"description" db:"description"`
	Status       string     `json:"status" db:"status"`
	Priority     string     `json:"priority" db:"priority"`
	AssignedTo   *uuid.UUID `json:"assigned_to" db:"assigned_to"`
	CreatedBy    uuid.UUID  `json:"created_by" db:"created_by"`
	LastEditedBy *uuid.UUID `json:"last_edited_by" db:"last_edited_by"`
	LastEditedAt *time.Time `json:"last_edited_at" db:"last_edited_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`

	// Joined user details, populated by list/get queries
	Assignee *UserRef `json:"assignee,omitempty" db:"-"`
	Creator  *UserRef `json:"creator,omitempty" db:"-"`
}

// ValidStatus reports whether s is one of the board columns
func ValidStatus(s string) bool {
	return s == StatusTodo || s == StatusInProgress || s == StatusDone
}

// ValidPriority reports whether p is a known priority
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// IsColumnName reports whether the title collides with a board column
func IsColumnName(title string) bool {
	for _, c := range ColumnNames {
		if title == c {
			return true
		}
	}
	return false
}

// Active reports whether the task counts against a user's load for
// smart assignment (anything not yet Done).
func (t *Task) Active() bool {
	return t.Status != StatusDone
}
