package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInterval      = errors.New("end time must be after start time")
	ErrRoomAlreadyBooked    = errors.New("room is already booked for this time slot")
	ErrRoomUnderMaintenance = errors.New("room is under maintenance during this time slot")
	ErrStoreUnavailable     = errors.New("booking store unavailable")

	ErrRoomNotFound        = errors.New("room not found")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrMaintenanceNotFound = errors.New("maintenance not found")
	ErrUserNotFound        = errors.New("user not found")

	ErrNotPermitted        = errors.New("operation not permitted for this role")
	ErrUnknownRole         = errors.New("unknown role")
	ErrUnknownStatus       = errors.New("unknown status")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrPurposeRequired     = errors.New("booking purpose is required")
	ErrDescriptionRequired = errors.New("maintenance description is required")
	ErrRoomNameRequired    = errors.New("room name is required")
	ErrInvalidCapacity     = errors.New("room capacity cannot be negative")
	ErrWindowInPast        = errors.New("window has already ended")
	ErrDerivationMismatch  = errors.New("status derivation belongs to another room")
)

// ConflictReason names the rule that rejected a booking window.
type ConflictReason string

const (
	ConflictAlreadyBooked    ConflictReason = "already_booked"
	ConflictUnderMaintenance ConflictReason = "under_maintenance"
)

// ConflictError identifies the record a requested window collides with.
type ConflictError struct {
	Reason        ConflictReason
	RoomID        int64
	ConflictingID int64
	Window        TimeRange
}

func (e *ConflictError) Error() string {
	switch e.Reason {
	case ConflictUnderMaintenance:
		return fmt.Sprintf("room %d is under maintenance during %s (maintenance %d)", e.RoomID, e.Window, e.ConflictingID)
	default:
		return fmt.Sprintf("room %d is already booked during %s (booking %d)", e.RoomID, e.Window, e.ConflictingID)
	}
}

// Unwrap exposes the sentinel matching the reason so callers can use errors.Is.
func (e *ConflictError) Unwrap() error {
	if e.Reason == ConflictUnderMaintenance {
		return ErrRoomUnderMaintenance
	}
	return ErrRoomAlreadyBooked
}

// ReconciliationError records why a single room could not be reconciled.
type ReconciliationError struct {
	RoomID int64
	Cause  error
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconcile room %d: %v", e.RoomID, e.Cause)
}

func (e *ReconciliationError) Unwrap() error { return e.Cause }
