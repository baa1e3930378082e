// Package lock serializes work per key. Keys are namespaced strings such as
// "slug:posts" or "rating:42".
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrNotAcquired is returned when the lock could not be taken before the context ended.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker hands out exclusive, per-key locks. Unlock must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// WithWait bounds how long l may block acquiring a lock. A non-positive wait leaves l as is.
func WithWait(l Locker, wait time.Duration) Locker {
	if wait <= 0 {
		return l
	}
	return bounded{Locker: l, wait: wait}
}

type bounded struct {
	Locker
	wait time.Duration
}

func (b bounded) Lock(ctx context.Context, key string) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, b.wait)
	defer cancel()
	return b.Locker.Lock(ctx, key)
}
