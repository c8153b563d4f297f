// Package repository contains the sqlx persistence layer for tasks, users,
// and the activity log.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Riya-023/collaborative-todo-board/pkg/models"
)

// Common repository errors
var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateTitle = errors.New("task title must be unique")
	ErrDuplicateUser  = errors.New("user already exists")
)

const uniqueViolation = "23505"

// TaskRepository handles database operations for tasks
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// taskRow carries a task plus the joined user columns
type taskRow struct {
	models.Task
	AssigneeUsername *string `db:"assignee_username"`
	AssigneeEmail    *string `db:"assignee_email"`
	CreatorUsername  *string `db:"creator_username"`
	CreatorEmail     *string `db:"creator_email"`
}

func (r taskRow) toTask() *models.Task {
	t := r.Task
	if t.AssignedTo != nil && r.AssigneeUsername != nil {
		t.Assignee = &models.UserRef{ID: *t.AssignedTo, Username: *r.AssigneeUsername}
		if r.AssigneeEmail != nil {
			t.Assignee.Email = *r.AssigneeEmail
		}
	}
	if r.CreatorUsername != nil {
		t.Creator = &models.UserRef{ID: t.CreatedBy, Username: *r.CreatorUsername}
		if r.CreatorEmail != nil {
			t.Creator.Email = *r.CreatorEmail
		}
	}
	return &t
}

const taskSelect = `
	SELECT t.id, t.title, t.description, t.status, t.priority,
	       t.assigned_to, t.created_by, t.last_edited_by, t.last_edited_at,
	       t.created_at, t.updated_at,
	       au.username AS assignee_username, au.email AS assignee_email,
	       cu.username AS creator_username, cu.email AS creator_email
	FROM tasks t
	LEFT JOIN users au ON au.id = t.assigned_to
	LEFT JOIN users cu ON cu.id = t.created_by
`

// Create inserts a new task. The title-uniqueness constraint is enforced by
// the database; a violation maps to ErrDuplicateTitle.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt

	query := `
		INSERT INTO tasks (id, title, description, status, priority, assigned_to,
		                   created_by, last_edited_by, last_edited_at, created_at, updated_at)
		VALUES (:id, :title, :description, :status, :priority, :assigned_to,
		        :created_by, :last_edited_by, :last_edited_at, :created_at, :updated_at)
	`

	if _, err := r.db.NamedExecContext(ctx, query, task); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateTitle
		}
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// Get retrieves a task by ID with joined user details
func (r *TaskRepository) Get(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	var row taskRow
	err := r.db.GetContext(ctx, &row, taskSelect+` WHERE t.id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return row.toTask(), nil
}

// GetByTitle retrieves a task by its unique title
func (r *TaskRepository) GetByTitle(ctx context.Context, title string) (*models.Task, error) {
	var row taskRow
	err := r.db.GetContext(ctx, &row, taskSelect+` WHERE t.title = $1`, title)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task by title: %w", err)
	}

	return row.toTask(), nil
}

// List retrieves all tasks, newest first
func (r *TaskRepository) List(ctx context.Context) ([]*models.Task, error) {
	var rows []taskRow
	err := r.db.SelectContext(ctx, &rows, taskSelect+` ORDER BY t.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	tasks := make([]*models.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, row.toTask())
	}
	return tasks, nil
}

// Update persists the mutable task fields
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	task.UpdatedAt = time.Now()

	query := `
		UPDATE tasks
		SET title = :title,
		    description = :description,
		    status = :status,
		    priority = :priority,
		    assigned_to = :assigned_to,
		    last_edited_by = :last_edited_by,
		    last_edited_at = :last_edited_at,
		    updated_at = :updated_at
		WHERE id = :id
	`

	result, err := r.db.NamedExecContext(ctx, query, task)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateTitle
		}
		return fmt.Errorf("failed to update task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a task permanently
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// UserTaskCount pairs a user with their number of active (non-Done) tasks
type UserTaskCount struct {
	UserID   uuid.UUID `db:"user_id"`
	Username string    `db:"username"`
	Active   int       `db:"active"`
}

// ListActiveCounts returns every user with their active task count, ordered
// by fewest tasks first with username as the deterministic tie-breaker.
func (r *TaskRepository) ListActiveCounts(ctx context.Context) ([]UserTaskCount, error) {
	query := `
		SELECT u.id AS user_id, u.username,
		       COUNT(t.id) FILTER (WHERE t.status IN ('Todo', 'In Progress')) AS active
		FROM users u
		LEFT JOIN tasks t ON t.assigned_to = u.id
		GROUP BY u.id, u.username
		ORDER BY active ASC, u.username ASC
	`

	var counts []UserTaskCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("failed to list active task counts: %w", err)
	}

	return counts, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
