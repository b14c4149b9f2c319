package apperr

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// RetryConflicts runs op until it succeeds, fails with a non-conflict error,
// or maxTries attempts were made.
func RetryConflicts[T any](ctx context.Context, maxTries uint, op func() (T, error)) (T, error) {
	if maxTries == 0 {
		maxTries = 1
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 25 * time.Millisecond
	b.MaxInterval = 400 * time.Millisecond

	return backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && KindOf(err) != KindConflict {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(maxTries),
		backoff.WithMaxElapsedTime(5*time.Second),
	)
}
