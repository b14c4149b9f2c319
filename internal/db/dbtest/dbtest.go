// Package dbtest provides a Transactor for service tests that do not reach
// a database.
package dbtest

import (
	"context"
	"sync"
)

// Transactor runs fn inline. It counts calls and can be told to fail the
// commit after fn succeeds.
type Transactor struct {
	mu        sync.Mutex
	Calls     int
	CommitErr error
}

func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	t.Calls++
	commitErr := t.CommitErr
	t.mu.Unlock()

	if err := fn(ctx); err != nil {
		return err
	}
	return commitErr
}
