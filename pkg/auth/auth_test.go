package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Riya-023/collaborative-todo-board/pkg/observability"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(&ServiceConfig{JWTSecret: "test-secret"}, observability.NewNoopLogger())
}

func TestGenerateAndVerifyToken(t *testing.T) {
	svc := newTestService(t)

	identity := Identity{
		UserID:   uuid.New(),
		Username: "alice",
		Email:    "alice@example.com",
	}

	token, err := svc.GenerateToken(identity)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, identity, got)

	// Second verification is served from the cache
	got, err = svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, identity, got)
}

func TestVerifyToken_Invalid(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.VerifyToken("")
	assert.ErrorIs(t, err, ErrNoToken)

	_, err = svc.VerifyToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	svc := newTestService(t)
	other := NewService(&ServiceConfig{JWTSecret: "different-secret"}, observability.NewNoopLogger())

	token, err := other.GenerateToken(Identity{UserID: uuid.New(), Username: "mallory"})
	require.NoError(t, err)

	_, err = svc.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyToken_Expired(t *testing.T) {
	svc := NewService(&ServiceConfig{
		JWTSecret:     "test-secret",
		JWTExpiration: -time.Minute,
	}, observability.NewNoopLogger())

	token, err := svc.GenerateToken(Identity{UserID: uuid.New(), Username: "alice"})
	require.NoError(t, err)

	_, err = svc.VerifyToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestPasswordHashing(t *testing.T) {
	svc := newTestService(t)

	hash, err := svc.HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)

	assert.NoError(t, svc.CheckPassword(hash, "hunter22"))
	assert.ErrorIs(t, svc.CheckPassword(hash, "hunter23"), ErrInvalidCredentials)
}
