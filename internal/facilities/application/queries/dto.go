package queries

import (
	"time"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
)

// RoomDTO is a data transfer object for rooms.
type RoomDTO struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	CategoryID int64     `json:"category_id,omitempty"`
	Capacity   int       `json:"capacity"`
	Building   string    `json:"building,omitempty"`
	Floor      int       `json:"floor"`
	Features   []string  `json:"features"`
	Status     string    `json:"status"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// BookingDTO is a data transfer object for bookings.
type BookingDTO struct {
	ID        int64     `json:"id"`
	RoomID    int64     `json:"room_id"`
	UserID    int64     `json:"user_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Purpose   string    `json:"purpose"`
	Status    string    `json:"status"`
}

// MaintenanceDTO is a data transfer object for maintenance windows.
type MaintenanceDTO struct {
	ID          int64     `json:"id"`
	RoomID      int64     `json:"room_id"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Status      string    `json:"status"`
}

func toRoomDTO(r *domain.Room) RoomDTO {
	return RoomDTO{
		ID:         r.ID(),
		Name:       r.Name(),
		CategoryID: r.CategoryID(),
		Capacity:   r.Capacity(),
		Building:   r.Building(),
		Floor:      r.Floor(),
		Features:   r.Features(),
		Status:     string(r.Status()),
		UpdatedAt:  r.UpdatedAt(),
	}
}

func toBookingDTOs(bookings []*domain.Booking) []BookingDTO {
	out := make([]BookingDTO, len(bookings))
	for i, b := range bookings {
		out[i] = BookingDTO{
			ID:        b.ID(),
			RoomID:    b.RoomID(),
			UserID:    b.UserID(),
			StartTime: b.StartTime(),
			EndTime:   b.EndTime(),
			Purpose:   b.Purpose(),
			Status:    string(b.Status()),
		}
	}
	return out
}

func toMaintenanceDTOs(items []*domain.Maintenance) []MaintenanceDTO {
	out := make([]MaintenanceDTO, len(items))
	for i, m := range items {
		out[i] = MaintenanceDTO{
			ID:          m.ID(),
			RoomID:      m.RoomID(),
			Description: m.Description(),
			StartDate:   m.StartDate(),
			EndDate:     m.EndDate(),
			Status:      string(m.Status()),
		}
	}
	return out
}
