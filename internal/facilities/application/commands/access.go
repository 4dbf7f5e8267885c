package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/services"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
)

// authorize resolves userID and checks it holds the capability selected by allowed.
func authorize(ctx context.Context, users domain.UserDirectory, userID int64, allowed func(domain.Capabilities) bool) (*domain.User, error) {
	user, err := users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !allowed(user.Capabilities()) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotPermitted, user.Role)
	}
	return user, nil
}

func canManageRooms(c domain.Capabilities) bool { return c.CanManageRooms }

// withRoomLock runs fn while holding roomID's lock.
func withRoomLock(ctx context.Context, locker services.RoomLocker, roomID int64, fn func() error) (err error) {
	release, err := locker.Lock(ctx, roomID)
	if err != nil {
		return fmt.Errorf("lock room %d: %w", roomID, err)
	}
	defer func() {
		err = errors.Join(err, release())
	}()
	return fn()
}
