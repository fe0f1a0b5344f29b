// Package retry wraps flaky upstream calls with a fixed-delay retry loop.
// Upstream RPC failures here are typically transient node hiccups, so a
// fixed inter-attempt delay is used instead of exponential backoff.
package retry

import (
	"context"
	"time"
)

// Do invokes fn up to attempts times, sleeping delay between failed
// attempts, and returns the last error once the budget is exhausted.
// The sleep is cut short when ctx is cancelled.
func Do[T any](ctx context.Context, attempts int, delay time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}

		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
	}
	return zero, lastErr
}
