package ttlcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoizeWithinTTL(t *testing.T) {
	c := New(time.Minute)
	calls := 0
	fn := Memoize(c, "double", func(_ context.Context, n int) (int, error) {
		calls++
		return n * 2, nil
	})

	v, err := fn(context.Background(), 21)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = fn(context.Background(), 21)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls, "second call within TTL must be served from cache")

	_, err = fn(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "different argument is a different key")
}

func TestMemoizeExpiry(t *testing.T) {
	c := New(30 * time.Millisecond)
	calls := 0
	fn := Memoize(c, "now", func(context.Context, int) (int, error) {
		calls++
		return calls, nil
	})

	_, err := fn(context.Background(), 1)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	v, err := fn(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, v, "expired entry must be recomputed")
	assert.Equal(t, 2, calls)
}

func TestMemoizeNeverCachesErrors(t *testing.T) {
	c := New(time.Minute)
	calls := 0
	fn := Memoize(c, "flaky", func(context.Context, int) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("transient")
		}
		return 99, nil
	})

	_, err := fn(context.Background(), 1)
	require.Error(t, err)

	v, err := fn(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 99, v)
	assert.Equal(t, 2, calls)
}

func TestMemoizeDistinguishesNames(t *testing.T) {
	c := New(time.Minute)
	a := Memoize(c, "a", func(context.Context, int) (string, error) { return "a", nil })
	b := Memoize(c, "b", func(context.Context, int) (string, error) { return "b", nil })

	va, err := a(context.Background(), 1)
	require.NoError(t, err)
	vb, err := b(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "a", va)
	assert.Equal(t, "b", vb)
}
