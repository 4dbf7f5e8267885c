package domain

import (
	"fmt"
	"strings"
	"time"
)

// RoomStatus is the derived occupancy state of a room.
type RoomStatus string

const (
	RoomStatusVacant      RoomStatus = "VACANT"
	RoomStatusBooked      RoomStatus = "BOOKED"
	RoomStatusMaintenance RoomStatus = "MAINTENANCE"
)

// LookAheadWindow is how far ahead an approved booking makes a room BOOKED.
const LookAheadWindow = 60 * time.Minute

// ParseRoomStatus parses a status name case-insensitively.
func ParseRoomStatus(s string) (RoomStatus, error) {
	switch status := RoomStatus(strings.ToUpper(strings.TrimSpace(s))); status {
	case RoomStatusVacant, RoomStatusBooked, RoomStatusMaintenance:
		return status, nil
	default:
		return "", fmt.Errorf("%w: room status %q", ErrUnknownStatus, s)
	}
}

// StatusCause explains which rule produced a derived status.
type StatusCause string

const (
	CauseActiveMaintenance StatusCause = "active_maintenance"
	CauseActiveBooking     StatusCause = "active_booking"
	CauseUpcomingBooking   StatusCause = "upcoming_booking"
	CauseIdle              StatusCause = "idle"
)

// Snapshot is the booking and maintenance state a derivation reads.
// Stores may over-fetch; DeriveStatus re-checks every condition itself.
type Snapshot struct {
	Maintenance []*Maintenance
	Bookings    []*Booking
	Next        *Booking
}

// Derivation is a computed room status. It can only be produced by DeriveStatus,
// which makes it the sole path for changing a room's persisted status.
type Derivation struct {
	roomID   int64
	status   RoomStatus
	cause    StatusCause
	sourceID int64
	at       time.Time
}

func (d Derivation) RoomID() int64        { return d.roomID }
func (d Derivation) Status() RoomStatus   { return d.status }
func (d Derivation) Cause() StatusCause   { return d.cause }
func (d Derivation) SourceID() int64      { return d.sourceID }
func (d Derivation) DerivedAt() time.Time { return d.at }

// DeriveStatus computes a room's status at now. First matching rule wins:
// in-progress maintenance covering now, an approved booking covering now,
// an approved booking starting within LookAheadWindow, otherwise vacant.
func DeriveStatus(roomID int64, now time.Time, snap Snapshot) Derivation {
	d := Derivation{roomID: roomID, at: now}

	for _, m := range snap.Maintenance {
		if m.RoomID() == roomID && m.IsActiveAt(now) {
			d.status, d.cause, d.sourceID = RoomStatusMaintenance, CauseActiveMaintenance, m.ID()
			return d
		}
	}

	for _, b := range snap.Bookings {
		if b.RoomID() == roomID && b.IsActiveAt(now) {
			d.status, d.cause, d.sourceID = RoomStatusBooked, CauseActiveBooking, b.ID()
			return d
		}
	}

	if next := snap.Next; next != nil && next.RoomID() == roomID && next.StartsWithin(now, LookAheadWindow) {
		d.status, d.cause, d.sourceID = RoomStatusBooked, CauseUpcomingBooking, next.ID()
		return d
	}

	d.status, d.cause = RoomStatusVacant, CauseIdle
	return d
}
