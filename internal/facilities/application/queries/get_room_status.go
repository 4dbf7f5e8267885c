package queries

import (
	"context"
	"time"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/services"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
	sharedApplication "github.com/felixgeelhaar/roomkeeper/internal/shared/application"
)

// RoomStatusDTO compares a room's stored status with a fresh derivation.
type RoomStatusDTO struct {
	RoomID    int64     `json:"room_id"`
	Name      string    `json:"name"`
	Stored    string    `json:"stored"`
	Derived   string    `json:"derived"`
	Cause     string    `json:"cause"`
	SourceID  int64     `json:"source_id,omitempty"`
	Drift     bool      `json:"drift"`
	DerivedAt time.Time `json:"derived_at"`
}

// GetRoomStatusQuery contains the parameters for reading a room's status.
type GetRoomStatusQuery struct {
	RoomID int64
}

// GetRoomStatusHandler handles the GetRoomStatusQuery. It never writes.
type GetRoomStatusHandler struct {
	rooms   domain.RoomRepository
	deriver *services.StatusDeriver
	clock   sharedApplication.Clock
}

// NewGetRoomStatusHandler creates a new GetRoomStatusHandler.
func NewGetRoomStatusHandler(rooms domain.RoomRepository, deriver *services.StatusDeriver, clock sharedApplication.Clock) *GetRoomStatusHandler {
	return &GetRoomStatusHandler{rooms: rooms, deriver: deriver, clock: clock}
}

// Handle executes the GetRoomStatusQuery.
func (h *GetRoomStatusHandler) Handle(ctx context.Context, query GetRoomStatusQuery) (*RoomStatusDTO, error) {
	room, err := h.rooms.FindByID(ctx, query.RoomID)
	if err != nil {
		return nil, err
	}
	d, err := h.deriver.Derive(ctx, room.ID(), h.clock.Now())
	if err != nil {
		return nil, err
	}

	return &RoomStatusDTO{
		RoomID:    room.ID(),
		Name:      room.Name(),
		Stored:    string(room.Status()),
		Derived:   string(d.Status()),
		Cause:     string(d.Cause()),
		SourceID:  d.SourceID(),
		Drift:     room.Status() != d.Status(),
		DerivedAt: d.DerivedAt(),
	}, nil
}
