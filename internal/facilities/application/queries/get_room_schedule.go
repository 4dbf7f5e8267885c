package queries

import (
	"context"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
	sharedApplication "github.com/felixgeelhaar/roomkeeper/internal/shared/application"
)

// RoomScheduleDTO lists what is still ahead for a room.
type RoomScheduleDTO struct {
	Room        RoomDTO          `json:"room"`
	Bookings    []BookingDTO     `json:"bookings"`
	Maintenance []MaintenanceDTO `json:"maintenance"`
}

// GetRoomScheduleQuery contains the parameters for a room's schedule.
type GetRoomScheduleQuery struct {
	RoomID int64
}

// GetRoomScheduleHandler handles the GetRoomScheduleQuery.
type GetRoomScheduleHandler struct {
	rooms       domain.RoomRepository
	bookings    domain.BookingRepository
	maintenance domain.MaintenanceRepository
	clock       sharedApplication.Clock
}

// NewGetRoomScheduleHandler creates a new GetRoomScheduleHandler.
func NewGetRoomScheduleHandler(rooms domain.RoomRepository, bookings domain.BookingRepository, maintenance domain.MaintenanceRepository, clock sharedApplication.Clock) *GetRoomScheduleHandler {
	return &GetRoomScheduleHandler{rooms: rooms, bookings: bookings, maintenance: maintenance, clock: clock}
}

// Handle returns pending and approved bookings and open maintenance that
// have not ended yet, each ordered by start.
func (h *GetRoomScheduleHandler) Handle(ctx context.Context, query GetRoomScheduleQuery) (*RoomScheduleDTO, error) {
	room, err := h.rooms.FindByID(ctx, query.RoomID)
	if err != nil {
		return nil, err
	}

	now := h.clock.Now()
	bookings, err := h.bookings.ListUpcomingByRoom(ctx, room.ID(), now)
	if err != nil {
		return nil, err
	}
	maintenance, err := h.maintenance.ListOpenByRoom(ctx, room.ID(), now)
	if err != nil {
		return nil, err
	}

	return &RoomScheduleDTO{
		Room:        toRoomDTO(room),
		Bookings:    toBookingDTOs(bookings),
		Maintenance: toMaintenanceDTOs(maintenance),
	}, nil
}
