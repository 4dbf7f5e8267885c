package queries

import (
	"context"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
)

// ListRoomsQuery filters the room listing. An empty Status lists every room.
type ListRoomsQuery struct {
	Status     string
	CategoryID int64
}

// ListRoomsHandler handles the ListRoomsQuery.
type ListRoomsHandler struct {
	rooms domain.RoomRepository
}

// NewListRoomsHandler creates a new ListRoomsHandler.
func NewListRoomsHandler(rooms domain.RoomRepository) *ListRoomsHandler {
	return &ListRoomsHandler{rooms: rooms}
}

// Handle executes the ListRoomsQuery.
func (h *ListRoomsHandler) Handle(ctx context.Context, query ListRoomsQuery) ([]RoomDTO, error) {
	filter := domain.RoomFilter{CategoryID: query.CategoryID}
	if query.Status != "" {
		status, err := domain.ParseRoomStatus(query.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = &status
	}

	rooms, err := h.rooms.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]RoomDTO, len(rooms))
	for i, r := range rooms {
		out[i] = toRoomDTO(r)
	}
	return out, nil
}
