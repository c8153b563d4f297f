package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Riya-023/collaborative-todo-board/pkg/observability"
)

func TestManager_GetReturnsSameBreaker(t *testing.T) {
	m := NewManager(observability.NewNoopLogger())

	a := m.Get("cache", CircuitBreakerConfig{})
	b := m.Get("cache", CircuitBreakerConfig{})
	other := m.Get("db", CircuitBreakerConfig{})

	assert.Same(t, a, b)
	assert.NotSame(t, a, other)
}

func TestManager_Execute(t *testing.T) {
	m := NewManager(observability.NewNoopLogger())

	result, err := m.Execute(context.Background(), "ok", CircuitBreakerConfig{}, func() (interface{}, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, result)

	boom := errors.New("boom")
	_, err = m.Execute(context.Background(), "ok", CircuitBreakerConfig{}, func() (interface{}, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestManager_OpensAfterFailures(t *testing.T) {
	m := NewManager(observability.NewNoopLogger())
	cfg := CircuitBreakerConfig{FailureRatio: 0.5, Timeout: time.Minute}

	boom := errors.New("boom")
	for i := 0; i < 5; i++ {
		_, _ = m.Execute(context.Background(), "flaky", cfg, func() (interface{}, error) {
			return nil, boom
		})
	}

	_, err := m.Execute(context.Background(), "flaky", cfg, func() (interface{}, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestManager_ExecuteHonorsContext(t *testing.T) {
	m := NewManager(observability.NewNoopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		_, err := m.Execute(ctx, "slow", CircuitBreakerConfig{}, func() (interface{}, error) {
			time.Sleep(time.Second)
			return nil, nil
		})
		assert.ErrorIs(t, err, context.Canceled)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Execute did not return after context cancellation")
	}
}
