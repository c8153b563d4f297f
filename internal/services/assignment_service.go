// Package services holds business logic that spans repositories.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Riya-023/collaborative-todo-board/internal/repository"
	"github.com/Riya-023/collaborative-todo-board/pkg/models"
	"github.com/Riya-023/collaborative-todo-board/pkg/observability"
)

// ErrNoUsers is returned when smart assign finds nobody to assign to
var ErrNoUsers = errors.New("no users available for assignment")

// TaskStore is the subset of the task repository used by smart assignment
type TaskStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	ListActiveCounts(ctx context.Context) ([]repository.UserTaskCount, error)
}

// ActivityStore records audit entries for assignments
type ActivityStore interface {
	Create(ctx context.Context, activity *models.Activity) error
}

// AssignmentService implements the smart-assign heuristic: hand the task to
// the user with the fewest active (non-Done) tasks. Ties break on username
// so the outcome is deterministic.
type AssignmentService struct {
	tasks      TaskStore
	activities ActivityStore
	logger     observability.Logger
}

// NewAssignmentService creates a new assignment service
func NewAssignmentService(tasks TaskStore, activities ActivityStore, logger observability.Logger) *AssignmentService {
	return &AssignmentService{
		tasks:      tasks,
		activities: activities,
		logger:     logger,
	}
}

// SmartAssign assigns the task to the least-loaded user and logs the
// activity. The actor is the user who triggered the assignment.
func (s *AssignmentService) SmartAssign(ctx context.Context, taskID uuid.UUID, actor models.UserRef) (*models.Task, error) {
	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, errors.Wrap(err, "smart assign: load task")
	}

	counts, err := s.tasks.ListActiveCounts(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "smart assign: load task counts")
	}
	if len(counts) == 0 {
		return nil, ErrNoUsers
	}

	target := pickLeastLoaded(counts)

	now := time.Now()
	task.AssignedTo = &target.UserID
	task.LastEditedBy = &actor.ID
	task.LastEditedAt = &now

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, errors.Wrap(err, "smart assign: update task")
	}

	activity := &models.Activity{
		Action:    models.ActionSmartAssigned,
		TaskID:    &task.ID,
		TaskTitle: task.Title,
		UserID:    actor.ID,
		Username:  actor.Username,
		Details:   fmt.Sprintf("Smart assigned task %q to %s", task.Title, target.Username),
	}
	if err := s.activities.Create(ctx, activity); err != nil {
		// The assignment itself succeeded; a missing audit row is not
		// worth failing the request over.
		s.logger.Error("Failed to log smart-assign activity", map[string]interface{}{
			"task_id": task.ID.String(),
			"error":   err.Error(),
		})
	}

	s.logger.Info("Smart assigned task", map[string]interface{}{
		"task_id":  task.ID.String(),
		"assignee": target.Username,
		"active":   target.Active,
	})

	return s.tasks.Get(ctx, taskID)
}

// pickLeastLoaded returns the user with the fewest active tasks. The query
// already orders by count then username, but the scan keeps the choice
// correct even for unordered inputs.
func pickLeastLoaded(counts []repository.UserTaskCount) repository.UserTaskCount {
	best := counts[0]
	for _, c := range counts[1:] {
		if c.Active < best.Active || (c.Active == best.Active && c.Username < best.Username) {
			best = c
		}
	}
	return best
}
