package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Riya-023/collaborative-todo-board/pkg/models"
)

// ActivityRepository handles database operations for the activity log
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create inserts a new activity record
func (r *ActivityRepository) Create(ctx context.Context, activity *models.Activity) error {
	if activity.ID == uuid.Nil {
		activity.ID = uuid.New()
	}
	if activity.Timestamp.IsZero() {
		activity.Timestamp = time.Now()
	}

	query := `
		INSERT INTO activities (id, action, task_id, task_title, user_id, username, details, timestamp)
		VALUES (:id, :action, :task_id, :task_title, :user_id, :username, :details, :timestamp)
	`

	if _, err := r.db.NamedExecContext(ctx, query, activity); err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}

	return nil
}

// ListRecent retrieves the most recent activity records
func (r *ActivityRepository) ListRecent(ctx context.Context, limit int) ([]*models.Activity, error) {
	if limit <= 0 {
		limit = 50
	}

	var activities []*models.Activity
	query := `SELECT * FROM activities ORDER BY timestamp DESC LIMIT $1`
	if err := r.db.SelectContext(ctx, &activities, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}

	return activities, nil
}
