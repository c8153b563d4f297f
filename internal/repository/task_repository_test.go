package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Riya-023/collaborative-todo-board/pkg/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

var taskColumns = []string{
	"id", "title", "description", "status", "priority",
	"assigned_to", "created_by", "last_edited_by", "last_edited_at",
	"created_at", "updated_at",
	"assignee_username", "assignee_email", "creator_username", "creator_email",
}

func TestTaskRepository_Create(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectExec("INSERT INTO tasks").
		WillReturnResult(sqlmock.NewResult(0, 1))

	task := &models.Task{Title: "Fix login", Status: models.StatusTodo, Priority: models.PriorityMedium, CreatedBy: uuid.New()}
	err := repo.Create(context.Background(), task)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, task.ID)
	assert.False(t, task.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepository_Create_DuplicateTitle(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectExec("INSERT INTO tasks").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Task{Title: "Fix login", CreatedBy: uuid.New()})
	assert.ErrorIs(t, err, ErrDuplicateTitle)
}

func TestTaskRepository_Get(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	id := uuid.New()
	assignee := uuid.New()
	creator := uuid.New()
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM tasks t").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(taskColumns).AddRow(
			id, "Fix login", "desc", models.StatusInProgress, models.PriorityHigh,
			assignee, creator, nil, nil, now, now,
			"bob", "bob@example.com", "alice", "alice@example.com",
		))

	task, err := repo.Get(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, "Fix login", task.Title)
	require.NotNil(t, task.Assignee)
	assert.Equal(t, "bob", task.Assignee.Username)
	require.NotNil(t, task.Creator)
	assert.Equal(t, "alice", task.Creator.Username)
}

func TestTaskRepository_Get_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM tasks t").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(taskColumns))

	_, err := repo.Get(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTaskRepository_List(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	creator := uuid.New()
	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM tasks t").
		WillReturnRows(sqlmock.NewRows(taskColumns).
			AddRow(uuid.New(), "Task B", "", models.StatusTodo, models.PriorityLow,
				nil, creator, nil, nil, now, now, nil, nil, "alice", nil).
			AddRow(uuid.New(), "Task A", "", models.StatusDone, models.PriorityLow,
				nil, creator, nil, nil, now.Add(-time.Hour), now, nil, nil, "alice", nil))

	tasks, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Task B", tasks[0].Title)
	assert.Nil(t, tasks[0].Assignee)
	require.NotNil(t, tasks[0].Creator)
}

func TestTaskRepository_Update_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectExec("UPDATE tasks").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Task{ID: uuid.New(), Title: "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTaskRepository_Update_DuplicateTitle(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	mock.ExpectExec("UPDATE tasks").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Update(context.Background(), &models.Task{ID: uuid.New(), Title: "taken"})
	assert.ErrorIs(t, err, ErrDuplicateTitle)
}

func TestTaskRepository_Delete(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	id := uuid.New()
	mock.ExpectExec("DELETE FROM tasks").
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Delete(context.Background(), id))

	mock.ExpectExec("DELETE FROM tasks").
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), id), ErrNotFound)
}

func TestTaskRepository_ListActiveCounts(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)

	bob := uuid.New()
	alice := uuid.New()
	mock.ExpectQuery("SELECT u.id AS user_id").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "username", "active"}).
			AddRow(bob, "bob", 0).
			AddRow(alice, "alice", 2))

	counts, err := repo.ListActiveCounts(context.Background())
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, "bob", counts[0].Username)
	assert.Equal(t, 0, counts[0].Active)
	assert.Equal(t, 2, counts[1].Active)
}
