package commands

import (
	"context"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
	sharedApplication "github.com/felixgeelhaar/roomkeeper/internal/shared/application"
)

// RegisterRoomCommand adds a bookable room.
type RegisterRoomCommand struct {
	Details     domain.RoomDetails
	RequestedBy int64
}

// RegisterRoomHandler handles the RegisterRoomCommand.
type RegisterRoomHandler struct {
	users domain.UserDirectory
	rooms domain.RoomRepository
	clock sharedApplication.Clock
}

// NewRegisterRoomHandler creates a new RegisterRoomHandler.
func NewRegisterRoomHandler(users domain.UserDirectory, rooms domain.RoomRepository, clock sharedApplication.Clock) *RegisterRoomHandler {
	return &RegisterRoomHandler{users: users, rooms: rooms, clock: clock}
}

// Handle executes the RegisterRoomCommand and returns the new room's ID.
func (h *RegisterRoomHandler) Handle(ctx context.Context, cmd RegisterRoomCommand) (int64, error) {
	if _, err := authorize(ctx, h.users, cmd.RequestedBy, canManageRooms); err != nil {
		return 0, err
	}
	room, err := domain.NewRoom(cmd.Details, h.clock.Now())
	if err != nil {
		return 0, err
	}
	if err := h.rooms.Create(ctx, room); err != nil {
		return 0, err
	}
	return room.ID(), nil
}
