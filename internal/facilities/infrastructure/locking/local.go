// Package locking serializes conflict-check-then-write sequences per room.
package locking

import (
	"context"
	"errors"
	"sync"
)

// ErrLockTimeout is returned when a room lock cannot be acquired in time.
var ErrLockTimeout = errors.New("timed out waiting for room lock")

// LocalRoomLocker serializes writers within one process.
type LocalRoomLocker struct {
	mu    sync.Mutex
	rooms map[int64]chan struct{}
}

// NewLocalRoomLocker creates an in-process locker.
func NewLocalRoomLocker() *LocalRoomLocker {
	return &LocalRoomLocker{rooms: make(map[int64]chan struct{})}
}

// Lock blocks until the room is free or ctx ends.
func (l *LocalRoomLocker) Lock(ctx context.Context, roomID int64) (func() error, error) {
	sem := l.semaphore(roomID)
	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil, errors.Join(ErrLockTimeout, ctx.Err())
	}

	var once sync.Once
	return func() error {
		once.Do(func() { <-sem })
		return nil
	}, nil
}

func (l *LocalRoomLocker) semaphore(roomID int64) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	sem, ok := l.rooms[roomID]
	if !ok {
		sem = make(chan struct{}, 1)
		l.rooms[roomID] = sem
	}
	return sem
}
