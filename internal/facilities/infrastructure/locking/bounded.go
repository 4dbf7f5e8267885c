package locking

import (
	"context"
	"time"
)

// Locker is the acquisition contract shared by the room lockers.
type Locker interface {
	Lock(ctx context.Context, roomID int64) (func() error, error)
}

// BoundedLocker caps how long a caller waits for a room lock.
type BoundedLocker struct {
	inner Locker
	wait  time.Duration
}

// WithWait wraps inner so acquisition gives up after wait. A non-positive
// wait returns inner unchanged.
func WithWait(inner Locker, wait time.Duration) Locker {
	if wait <= 0 {
		return inner
	}
	return &BoundedLocker{inner: inner, wait: wait}
}

// Lock acquires the room lock, failing with ErrLockTimeout once the wait elapses.
// Only acquisition is bounded; the returned release is not tied to the deadline.
func (l *BoundedLocker) Lock(ctx context.Context, roomID int64) (func() error, error) {
	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()
	return l.inner.Lock(waitCtx, roomID)
}
