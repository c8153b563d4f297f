package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Riya-023/collaborative-todo-board/internal/repository"
	"github.com/Riya-023/collaborative-todo-board/internal/resilience"
	"github.com/Riya-023/collaborative-todo-board/internal/services"
	"github.com/Riya-023/collaborative-todo-board/pkg/auth"
	"github.com/Riya-023/collaborative-todo-board/pkg/common/cache"
	"github.com/Riya-023/collaborative-todo-board/pkg/models"
)

const taskListCacheKey = "tasks:list"

var cacheBreakerConfig = resilience.CircuitBreakerConfig{}

type taskRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	AssignedTo  *string `json:"assigned_to"`
}

// validate normalizes the request in place and returns a user-facing error
// message, or "" when the payload is acceptable.
func (r *taskRequest) validate() string {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return "title is required"
	}
	if len(r.Title) > models.MaxTitleLength {
		return fmt.Sprintf("title must be at most %d characters", models.MaxTitleLength)
	}
	if models.IsColumnName(r.Title) {
		return "title must not match a column name"
	}
	if len(r.Description) > models.MaxDescriptionLength {
		return fmt.Sprintf("description must be at most %d characters", models.MaxDescriptionLength)
	}
	if r.Status == "" {
		r.Status = models.StatusTodo
	}
	if !models.ValidStatus(r.Status) {
		return "invalid status"
	}
	if r.Priority == "" {
		r.Priority = models.PriorityMedium
	}
	if !models.ValidPriority(r.Priority) {
		return "invalid priority"
	}
	return ""
}

func (r *taskRequest) assignee() (*uuid.UUID, string) {
	if r.AssignedTo == nil || *r.AssignedTo == "" {
		return nil, ""
	}
	id, err := uuid.Parse(*r.AssignedTo)
	if err != nil {
		return nil, "invalid assigned_to"
	}
	return &id, ""
}

// handleListTasks serves the board read path. The task list is cached
// briefly; cache failures degrade to a direct database read behind a
// circuit breaker so a sick Redis cannot take the board down.
func (s *Server) handleListTasks(c *gin.Context) {
	ctx := c.Request.Context()

	// A cache miss is a normal outcome, not a breaker failure.
	res, err := s.breakers.Execute(ctx, "cache", cacheBreakerConfig, func() (interface{}, error) {
		var cached []*models.Task
		if err := s.cache.Get(ctx, taskListCacheKey, &cached); err != nil {
			if errors.Is(err, cache.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return cached, nil
	})
	if err != nil {
		s.logger.Debug("Task list cache read failed", map[string]interface{}{"error": err.Error()})
	}
	if cached, ok := res.([]*models.Task); ok && cached != nil {
		c.JSON(http.StatusOK, gin.H{"tasks": cached})
		return
	}

	tasks, err := s.tasks.List(ctx)
	if err != nil {
		s.logger.Error("Failed to list tasks", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to list tasks"})
		return
	}

	_, _ = s.breakers.Execute(ctx, "cache", cacheBreakerConfig, func() (interface{}, error) {
		return nil, s.cache.Set(ctx, taskListCacheKey, tasks, s.config.TaskCacheTTL)
	})

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// handleGetTask returns one task by ID
func (s *Server) handleGetTask(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid task id"})
		return
	}

	task, err := s.tasks.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "task not found"})
			return
		}
		s.logger.Error("Failed to get task", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to get task"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"task": task})
}

// handleCreateTask creates a task. Titles are unique across the board and
// must not collide with column names.
func (s *Server) handleCreateTask(c *gin.Context) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "authorization required"})
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": msg})
		return
	}
	assignee, msg := req.assignee()
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": msg})
		return
	}

	ctx := c.Request.Context()
	now := time.Now()
	task := &models.Task{
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
		Priority:     req.Priority,
		AssignedTo:   assignee,
		CreatedBy:    identity.UserID,
		LastEditedBy: &identity.UserID,
		LastEditedAt: &now,
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		if errors.Is(err, repository.ErrDuplicateTitle) {
			c.JSON(http.StatusConflict, gin.H{"message": "task title must be unique"})
			return
		}
		s.logger.Error("Failed to create task", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to create task"})
		return
	}

	s.logActivity(c, models.ActionCreated, task, identity, fmt.Sprintf("Created task %q", task.Title))
	s.invalidateTaskCache(c)
	s.metrics.IncrementCounterWithLabels("tasks_mutations_total", 1, map[string]string{"action": "create"})

	created, err := s.tasks.Get(ctx, task.ID)
	if err != nil {
		created = task
	}
	c.JSON(http.StatusCreated, gin.H{"task": created})
}

// handleUpdateTask updates a task. Status and assignee changes produce
// distinct activity entries so the feed can tell a move from an edit.
func (s *Server) handleUpdateTask(c *gin.Context) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "authorization required"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid task id"})
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": msg})
		return
	}
	assignee, msg := req.assignee()
	if msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": msg})
		return
	}

	ctx := c.Request.Context()
	task, err := s.tasks.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "task not found"})
			return
		}
		s.logger.Error("Failed to load task", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to update task"})
		return
	}

	prevStatus := task.Status
	prevAssignee := task.AssignedTo

	now := time.Now()
	task.Title = req.Title
	task.Description = req.Description
	task.Status = req.Status
	task.Priority = req.Priority
	task.AssignedTo = assignee
	task.LastEditedBy = &identity.UserID
	task.LastEditedAt = &now

	if err := s.tasks.Update(ctx, task); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateTitle):
			c.JSON(http.StatusConflict, gin.H{"message": "task title must be unique"})
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "task not found"})
		default:
			s.logger.Error("Failed to update task", map[string]interface{}{"error": err.Error()})
			c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to update task"})
		}
		return
	}

	switch {
	case prevStatus != task.Status:
		s.logActivity(c, models.ActionMoved, task, identity,
			fmt.Sprintf("Moved task %q from %s to %s", task.Title, prevStatus, task.Status))
	case assigneeChanged(prevAssignee, task.AssignedTo):
		s.logActivity(c, models.ActionAssigned, task, identity,
			fmt.Sprintf("Reassigned task %q", task.Title))
	default:
		s.logActivity(c, models.ActionUpdated, task, identity,
			fmt.Sprintf("Updated task %q", task.Title))
	}

	s.invalidateTaskCache(c)
	s.metrics.IncrementCounterWithLabels("tasks_mutations_total", 1, map[string]string{"action": "update"})

	updated, err := s.tasks.Get(ctx, id)
	if err != nil {
		updated = task
	}
	c.JSON(http.StatusOK, gin.H{"task": updated})
}

// handleDeleteTask removes a task permanently
func (s *Server) handleDeleteTask(c *gin.Context) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "authorization required"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid task id"})
		return
	}

	ctx := c.Request.Context()
	task, err := s.tasks.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "task not found"})
			return
		}
		s.logger.Error("Failed to load task", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to delete task"})
		return
	}

	if err := s.tasks.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "task not found"})
			return
		}
		s.logger.Error("Failed to delete task", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to delete task"})
		return
	}

	// Deleted tasks keep their title in the feed but no task reference.
	s.logActivity(c, models.ActionDeleted, &models.Task{Title: task.Title}, identity,
		fmt.Sprintf("Deleted task %q", task.Title))
	s.invalidateTaskCache(c)
	s.metrics.IncrementCounterWithLabels("tasks_mutations_total", 1, map[string]string{"action": "delete"})

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// handleSmartAssign hands the task to the least-loaded user
func (s *Server) handleSmartAssign(c *gin.Context) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "authorization required"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid task id"})
		return
	}

	task, err := s.assignment.SmartAssign(c.Request.Context(), id, models.UserRef{
		ID:       identity.UserID,
		Username: identity.Username,
		Email:    identity.Email,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": "task not found"})
		case errors.Is(err, services.ErrNoUsers):
			c.JSON(http.StatusConflict, gin.H{"message": "no users available for assignment"})
		default:
			s.logger.Error("Smart assign failed", map[string]interface{}{"error": err.Error()})
			c.JSON(http.StatusInternalServerError, gin.H{"message": "smart assign failed"})
		}
		return
	}

	s.invalidateTaskCache(c)
	_ = s.cache.Delete(c.Request.Context(), activityCacheKey)
	s.metrics.IncrementCounterWithLabels("tasks_mutations_total", 1, map[string]string{"action": "smart_assign"})

	c.JSON(http.StatusOK, gin.H{"task": task})
}

func (s *Server) logActivity(c *gin.Context, action string, task *models.Task, identity auth.Identity, details string) {
	activity := &models.Activity{
		Action:    action,
		TaskTitle: task.Title,
		UserID:    identity.UserID,
		Username:  identity.Username,
		Details:   details,
	}
	if action != models.ActionDeleted && task.ID != uuid.Nil {
		activity.TaskID = &task.ID
	}

	if err := s.activities.Create(c.Request.Context(), activity); err != nil {
		s.logger.Error("Failed to record activity", map[string]interface{}{
			"action": action,
			"error":  err.Error(),
		})
		return
	}

	_ = s.cache.Delete(c.Request.Context(), activityCacheKey)
}

func (s *Server) invalidateTaskCache(c *gin.Context) {
	ctx := c.Request.Context()
	_, _ = s.breakers.Execute(ctx, "cache", cacheBreakerConfig, func() (interface{}, error) {
		return nil, s.cache.Delete(ctx, taskListCacheKey)
	})
}

func assigneeChanged(a, b *uuid.UUID) bool {
	if a == nil && b == nil {
		return false
	}
	if a == nil || b == nil {
		return true
	}
	return *a != *b
}
