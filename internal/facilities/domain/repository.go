package domain

import (
	"context"
	"time"
)

// RoomFilter narrows room listings. A nil Status lists every room.
type RoomFilter struct {
	Status     *RoomStatus
	CategoryID int64
}

// RoomRepository persists rooms.
type RoomRepository interface {
	// Create stores a new room and assigns its ID.
	Create(ctx context.Context, room *Room) error

	// FindByID returns ErrRoomNotFound when the room does not exist.
	FindByID(ctx context.Context, id int64) (*Room, error)

	// List returns rooms ordered by ID.
	List(ctx context.Context, filter RoomFilter) ([]*Room, error)

	// SaveStatus persists the room's current status.
	SaveStatus(ctx context.Context, room *Room) error
}

// BookingRepository persists bookings.
type BookingRepository interface {
	// Create stores a new booking and assigns its ID.
	Create(ctx context.Context, booking *Booking) error

	// FindByID returns ErrBookingNotFound when the booking does not exist.
	FindByID(ctx context.Context, id int64) (*Booking, error)

	// SaveStatus persists the booking's current status.
	SaveStatus(ctx context.Context, booking *Booking) error

	// FindApprovedOverlapping returns approved bookings of a room overlapping window.
	FindApprovedOverlapping(ctx context.Context, roomID int64, window TimeRange) ([]*Booking, error)

	// FindApprovedActive returns approved bookings of a room covering at.
	FindApprovedActive(ctx context.Context, roomID int64, at time.Time) ([]*Booking, error)

	// FindNextApproved returns the earliest approved booking starting after at, or nil.
	FindNextApproved(ctx context.Context, roomID int64, at time.Time) (*Booking, error)

	// FindApprovedEndedBefore returns approved bookings whose end is strictly before t.
	FindApprovedEndedBefore(ctx context.Context, t time.Time) ([]*Booking, error)

	// ListUpcomingByRoom returns pending and approved bookings of a room ending at or after from.
	ListUpcomingByRoom(ctx context.Context, roomID int64, from time.Time) ([]*Booking, error)

	// ListByUser returns a user's bookings, newest first.
	ListByUser(ctx context.Context, userID int64) ([]*Booking, error)
}

// MaintenanceRepository persists maintenance windows.
type MaintenanceRepository interface {
	// Create stores new maintenance and assigns its ID.
	Create(ctx context.Context, m *Maintenance) error

	// FindByID returns ErrMaintenanceNotFound when the record does not exist.
	FindByID(ctx context.Context, id int64) (*Maintenance, error)

	// SaveStatus persists the maintenance's current status.
	SaveStatus(ctx context.Context, m *Maintenance) error

	// FindInProgressOverlapping returns in-progress maintenance of a room overlapping window.
	FindInProgressOverlapping(ctx context.Context, roomID int64, window TimeRange) ([]*Maintenance, error)

	// FindInProgressActive returns in-progress maintenance of a room covering at.
	FindInProgressActive(ctx context.Context, roomID int64, at time.Time) ([]*Maintenance, error)

	// ListOpenByRoom returns scheduled and in-progress maintenance ending at or after from.
	ListOpenByRoom(ctx context.Context, roomID int64, from time.Time) ([]*Maintenance, error)
}

// UserDirectory resolves the users that make bookings.
type UserDirectory interface {
	// FindByID returns ErrUserNotFound when the user does not exist.
	FindByID(ctx context.Context, id int64) (*User, error)

	// Upsert creates or updates a user mirrored from the identity provider.
	Upsert(ctx context.Context, user *User) error
}
