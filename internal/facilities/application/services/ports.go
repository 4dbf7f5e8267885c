// Package services holds the conflict validator, status deriver and reconciler
// shared by the booking commands and the scheduled sweeps.
package services

import "context"

// RoomLocker serializes check-then-write sequences for one room. The returned
// release func must be called exactly once; further calls are no-ops.
type RoomLocker interface {
	Lock(ctx context.Context, roomID int64) (release func() error, err error)
}
