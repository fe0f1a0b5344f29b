package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoReturnsFirstSuccess(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), 3, time.Millisecond, func(context.Context) (int, error) {
		calls++
		if calls < 2 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 2, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	delay := 20 * time.Millisecond

	start := time.Now()
	_, err := Do(context.Background(), 3, delay, func(context.Context) (int, error) {
		calls++
		return 0, boom
	})
	elapsed := time.Since(start)

	assert.Equal(t, 3, calls)
	assert.Equal(t, boom, err)
	assert.GreaterOrEqual(t, elapsed, 2*delay)
}

func TestDoStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := Do(ctx, 5, time.Second, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("transient")
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
