package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_Lifecycle(t *testing.T) {
	okService := func() error { return nil }
	failingService := func() error { return errors.New("service error") }

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	cb := New(10, 2*time.Second, 0.3, 3).(*circuitBreaker)
	cb.now = func() time.Time { return now }

	for i := 0; i < 20; i++ {
		require.NoError(t, cb.Call(okService))
	}
	assert.Equal(t, Closed, cb.State())

	// 3 failures out of a window of 10 reach the 30% threshold.
	for i := 0; i < 3; i++ {
		require.Error(t, cb.Call(failingService))
	}
	assert.Equal(t, Open, cb.State())

	called := false
	err := cb.Call(func() error { called = true; return nil })
	require.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)

	now = now.Add(3 * time.Second)
	require.NoError(t, cb.Call(okService))
	assert.Equal(t, HalfOpen, cb.State())

	require.NoError(t, cb.Call(okService))
	require.NoError(t, cb.Call(okService))
	assert.Equal(t, Closed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	cb := New(2, time.Second, 0.5, 2).(*circuitBreaker)
	cb.now = func() time.Time { return now }

	require.Error(t, cb.Call(func() error { return errors.New("boom") }))
	assert.Equal(t, Open, cb.State())

	now = now.Add(2 * time.Second)
	require.Error(t, cb.Call(func() error { return errors.New("still down") }))
	assert.Equal(t, Open, cb.State())

	require.ErrorIs(t, cb.Call(func() error { return nil }), ErrOpen)
}
