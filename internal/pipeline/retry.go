package pipeline

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/avast/retry-go/v4"
)

const MaxRetries = 3

// IsRetryable checks if a store error is worth retrying. Cancellation is
// final; anything else may be a transient lock or connection error.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * 100 * time.Millisecond
	if base > 2*time.Second {
		base = 2 * time.Second
	}
	jitter := time.Duration(rand.Int63n(int64(base) / 2))
	return base + jitter
}

// withRetry runs fn up to MaxRetries times, backing off between attempts.
// The last error is returned unwrapped.
func withRetry(ctx context.Context, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(MaxRetries),
		retry.RetryIf(IsRetryable),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return Backoff(int(n))
		}),
		retry.LastErrorOnly(true),
	)
}
