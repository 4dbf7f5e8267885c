package services

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
)

// ConflictValidator decides whether a room can take a booking for a window.
type ConflictValidator struct {
	bookings    domain.BookingRepository
	maintenance domain.MaintenanceRepository
	guard       *StoreGuard
}

// NewConflictValidator creates a validator. guard may be nil.
func NewConflictValidator(bookings domain.BookingRepository, maintenance domain.MaintenanceRepository, guard *StoreGuard) *ConflictValidator {
	return &ConflictValidator{bookings: bookings, maintenance: maintenance, guard: guard}
}

// Validate returns nil when [start, end) is free for roomID. Checks run in a
// fixed order: interval shape, approved bookings, in-progress maintenance.
// Scheduled maintenance does not block.
func (v *ConflictValidator) Validate(ctx context.Context, roomID int64, start, end time.Time) error {
	window, err := domain.NewTimeRange(start, end)
	if err != nil {
		return err
	}
	return v.ValidateWindow(ctx, roomID, window, 0)
}

// ValidateWindow checks an already-built window, ignoring the booking
// identified by excludeBookingID (used when approving a pending booking).
func (v *ConflictValidator) ValidateWindow(ctx context.Context, roomID int64, window domain.TimeRange, excludeBookingID int64) error {
	var (
		bookings    []*domain.Booking
		maintenance []*domain.Maintenance
	)
	err := v.guard.Do(ctx, func(ctx context.Context) error {
		var err error
		if bookings, err = v.bookings.FindApprovedOverlapping(ctx, roomID, window); err != nil {
			return err
		}
		maintenance, err = v.maintenance.FindInProgressOverlapping(ctx, roomID, window)
		return err
	})
	if err != nil {
		return storeUnavailable(err)
	}

	for _, b := range bookings {
		if b.ID() != excludeBookingID && b.IsApproved() && b.Window().Overlaps(window) {
			return &domain.ConflictError{
				Reason:        domain.ConflictAlreadyBooked,
				RoomID:        roomID,
				ConflictingID: b.ID(),
				Window:        window,
			}
		}
	}
	for _, m := range maintenance {
		if m.Status() == domain.MaintenanceInProgress && m.Window().Overlaps(window) {
			return &domain.ConflictError{
				Reason:        domain.ConflictUnderMaintenance,
				RoomID:        roomID,
				ConflictingID: m.ID(),
				Window:        window,
			}
		}
	}
	return nil
}

func storeUnavailable(err error) error {
	if err == nil || isStoreUnavailable(err) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
}
