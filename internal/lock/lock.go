// Package lock serializes decisions keyed by a client or an order id.
package lock

import (
	"context"
	"errors"
	"fmt"

	"distromart-be/internal/apperr"

	"github.com/google/uuid"
)

var ErrNotAcquired = errors.New("lock not acquired")

// Locker grants exclusive ownership of a key until the returned release
// func is called.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

func ClientKey(id uuid.UUID) string { return "client:" + id.String() }
func OrderKey(id uuid.UUID) string  { return "order:" + id.String() }

// Conflict wraps an acquisition failure in the shared conflict error.
func Conflict(key string, err error) error {
	return apperr.Conflict("lock_timeout", fmt.Errorf("%s: %w", key, err))
}
