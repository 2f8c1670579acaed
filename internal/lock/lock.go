// Package lock provides per-key mutual exclusion for reconciliation runs.
//
// Award sync for one badge must never run twice at the same time. Local
// serializes goroutines of one process; Redis extends the guarantee across
// processes sharing a Redis instance.
package lock

import (
	"context"
	"sync"
)

// Locker acquires exclusive ownership of a key.
//
// Acquire blocks until the key is free or ctx is done. The returned
// function releases the key and must be called exactly once.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Local is an in-process Locker.
type Local struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

var _ Locker = (*Local)(nil)

// NewLocal creates an in-process locker.
func NewLocal() *Local {
	return &Local{slots: make(map[string]chan struct{})}
}

// Acquire implements Locker.
func (l *Local) Acquire(ctx context.Context, key string) (func(), error) {
	slot := l.slot(key)

	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-slot })
	}, nil
}

// slot returns the single-capacity channel guarding key.
func (l *Local) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}
