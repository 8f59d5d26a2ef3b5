package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upiguard/pkg/logger"
)

func TestExecute_PassesThroughResults(t *testing.T) {
	b := NewBreaker(Settings{Name: "pass"}, logger.NewNop())

	got, err := Execute(b, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	boom := errors.New("boom")
	_, err = Execute(b, func() (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
}

func TestExecute_TripsAfterFailures(t *testing.T) {
	b := NewBreaker(Settings{Name: "trip", MinRequests: 3, Timeout: time.Minute}, logger.NewNop())
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		_, _ = Execute(b, func() (string, error) { return "", boom })
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	called := false
	_, err := Execute(b, func() (string, error) {
		called = true
		return "ok", nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestExecute_NilBreaker(t *testing.T) {
	got, err := Execute[*int](nil, func() (*int, error) { return nil, nil })
	assert.NoError(t, err)
	assert.Nil(t, got)
}
