package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Riya-023/collaborative-todo-board/pkg/models"
)

var activityColumns = []string{"id", "action", "task_id", "task_title", "user_id", "username", "details", "timestamp"}

func TestActivityRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewActivityRepository(db)

	mock.ExpectExec("INSERT INTO activities").
		WillReturnResult(sqlmock.NewResult(0, 1))

	activity := &models.Activity{
		Action:    models.ActionCreated,
		TaskTitle: "Fix login",
		UserID:    uuid.New(),
		Username:  "alice",
	}
	require.NoError(t, repo.Create(context.Background(), activity))
	assert.NotEqual(t, uuid.Nil, activity.ID)
	assert.False(t, activity.Timestamp.IsZero())
}

func TestActivityRepository_ListRecent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewActivityRepository(db)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM activities ORDER BY timestamp DESC").
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows(activityColumns).
			AddRow(uuid.New(), models.ActionMoved, nil, "Fix login", uuid.New(), "alice", "Moved", now).
			AddRow(uuid.New(), models.ActionCreated, nil, "Fix login", uuid.New(), "alice", "Created", now.Add(-time.Minute)))

	activities, err := repo.ListRecent(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, activities, 2)
	assert.Equal(t, models.ActionMoved, activities[0].Action)
}

func TestActivityRepository_ListRecent_DefaultLimit(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewActivityRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM activities ORDER BY timestamp DESC").
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows(activityColumns))

	activities, err := repo.ListRecent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, activities)
}
