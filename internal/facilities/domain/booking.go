package domain

import (
	"fmt"
	"strings"
	"time"

	sharedDomain "github.com/felixgeelhaar/roomkeeper/internal/shared/domain"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingApproved  BookingStatus = "approved"
	BookingRejected  BookingStatus = "rejected"
	BookingCompleted BookingStatus = "completed"
)

// ParseBookingStatus validates a stored or requested booking status.
func ParseBookingStatus(s string) (BookingStatus, error) {
	switch status := BookingStatus(strings.ToLower(strings.TrimSpace(s))); status {
	case BookingPending, BookingApproved, BookingRejected, BookingCompleted:
		return status, nil
	default:
		return "", fmt.Errorf("%w: booking status %q", ErrUnknownStatus, s)
	}
}

// Booking is a request by a user to occupy a room for a window.
// Only approved bookings block other bookings or affect room status.
type Booking struct {
	sharedDomain.BaseAggregateRoot
	roomID  int64
	userID  int64
	window  TimeRange
	purpose string
	status  BookingStatus
}

// NewBooking creates a booking request. Auto-approved bookings skip the pending state.
func NewBooking(roomID, userID int64, start, end time.Time, purpose string, autoApprove bool, now time.Time) (*Booking, error) {
	window, err := NewTimeRange(start, end)
	if err != nil {
		return nil, err
	}
	purpose = strings.TrimSpace(purpose)
	if purpose == "" {
		return nil, ErrPurposeRequired
	}

	status := BookingPending
	if autoApprove {
		status = BookingApproved
	}

	return &Booking{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(now),
		roomID:            roomID,
		userID:            userID,
		window:            window.UTC(),
		purpose:           purpose,
		status:            status,
	}, nil
}

// RehydrateBooking rebuilds a booking from storage.
func RehydrateBooking(id, roomID, userID int64, start, end time.Time, purpose string, status BookingStatus, createdAt, updatedAt time.Time) *Booking {
	return &Booking{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)),
		roomID:            roomID,
		userID:            userID,
		window:            TimeRange{Start: start, End: end},
		purpose:           purpose,
		status:            status,
	}
}

func (b *Booking) RoomID() int64         { return b.roomID }
func (b *Booking) UserID() int64         { return b.userID }
func (b *Booking) Window() TimeRange     { return b.window }
func (b *Booking) StartTime() time.Time  { return b.window.Start }
func (b *Booking) EndTime() time.Time    { return b.window.End }
func (b *Booking) Purpose() string       { return b.purpose }
func (b *Booking) Status() BookingStatus { return b.status }
func (b *Booking) IsApproved() bool      { return b.status == BookingApproved }

// IsActiveAt reports whether the booking is approved and covers at.
func (b *Booking) IsActiveAt(at time.Time) bool {
	return b.IsApproved() && b.window.Contains(at)
}

// StartsWithin reports whether an approved booking starts after now and no later than now+d.
func (b *Booking) StartsWithin(now time.Time, d time.Duration) bool {
	return b.IsApproved() && b.window.Start.After(now) && !b.window.Start.After(now.Add(d))
}

// HasEnded reports whether the booking window finished strictly before now.
func (b *Booking) HasEnded(now time.Time) bool {
	return b.window.End.Before(now)
}

// RecordCreated raises the creation event once the store has assigned an ID.
func (b *Booking) RecordCreated() {
	if b.IsTransient() {
		return
	}
	b.AddDomainEvent(NewBookingRequested(b))
	if b.IsApproved() {
		b.AddDomainEvent(NewBookingApproved(b))
	}
}

// Approve moves a pending booking to approved.
func (b *Booking) Approve(now time.Time) error {
	if b.status != BookingPending {
		return fmt.Errorf("%w: cannot approve %s booking", ErrInvalidTransition, b.status)
	}
	b.status = BookingApproved
	b.Touch(now)
	b.AddDomainEvent(NewBookingApproved(b))
	return nil
}

// Reject moves a pending booking to rejected.
func (b *Booking) Reject(now time.Time) error {
	if b.status != BookingPending {
		return fmt.Errorf("%w: cannot reject %s booking", ErrInvalidTransition, b.status)
	}
	b.status = BookingRejected
	b.Touch(now)
	b.AddDomainEvent(NewBookingRejected(b))
	return nil
}

// Complete closes an approved booking whose window has ended.
func (b *Booking) Complete(now time.Time) error {
	if b.status != BookingApproved {
		return fmt.Errorf("%w: cannot complete %s booking", ErrInvalidTransition, b.status)
	}
	if !b.HasEnded(now) {
		return fmt.Errorf("%w: booking %d ends at %s", ErrInvalidTransition, b.ID(), b.window.End.Format(time.RFC3339))
	}
	b.status = BookingCompleted
	b.Touch(now)
	b.AddDomainEvent(NewBookingCompleted(b))
	return nil
}
