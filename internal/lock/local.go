package lock

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	ch   chan struct{}
	refs int
}

// Local is an in-process keyed mutex. It is enough for a single server
// instance; deployments with several instances use Redis.
type Local struct {
	mu   sync.Mutex
	keys map[string]*entry
	wait time.Duration
}

func NewLocal(wait time.Duration) *Local {
	return &Local{keys: make(map[string]*entry), wait: wait}
}

func (l *Local) Acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.keys[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.keys[key] = e
	}
	e.refs++
	l.mu.Unlock()

	if l.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	select {
	case e.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-e.ch
				l.unref(key, e)
			})
		}, nil
	case <-ctx.Done():
		l.unref(key, e)
		return nil, Conflict(key, ErrNotAcquired)
	}
}

func (l *Local) unref(key string, e *entry) {
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.keys, key)
	}
	l.mu.Unlock()
}
