package queries

import (
	"context"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
)

// ListUserBookingsQuery selects one user's bookings.
type ListUserBookingsQuery struct {
	UserID int64
}

// ListUserBookingsHandler handles the ListUserBookingsQuery.
type ListUserBookingsHandler struct {
	users    domain.UserDirectory
	bookings domain.BookingRepository
}

// NewListUserBookingsHandler creates a new ListUserBookingsHandler.
func NewListUserBookingsHandler(users domain.UserDirectory, bookings domain.BookingRepository) *ListUserBookingsHandler {
	return &ListUserBookingsHandler{users: users, bookings: bookings}
}

// Handle returns the user's bookings, newest first.
func (h *ListUserBookingsHandler) Handle(ctx context.Context, query ListUserBookingsQuery) ([]BookingDTO, error) {
	if _, err := h.users.FindByID(ctx, query.UserID); err != nil {
		return nil, err
	}
	bookings, err := h.bookings.ListByUser(ctx, query.UserID)
	if err != nil {
		return nil, err
	}
	return toBookingDTOs(bookings), nil
}
