package domain

import (
	"time"

	sharedDomain "github.com/felixgeelhaar/roomkeeper/internal/shared/domain"
)

const (
	AggregateRoom        = "Room"
	AggregateBooking     = "Booking"
	AggregateMaintenance = "Maintenance"

	RoutingKeyRoomStatusChanged        = "facilities.room.status_changed"
	RoutingKeyBookingRequested         = "facilities.booking.requested"
	RoutingKeyBookingApproved          = "facilities.booking.approved"
	RoutingKeyBookingRejected          = "facilities.booking.rejected"
	RoutingKeyBookingCompleted         = "facilities.booking.completed"
	RoutingKeyMaintenanceScheduled     = "facilities.maintenance.scheduled"
	RoutingKeyMaintenanceStatusChanged = "facilities.maintenance.status_changed"
)

// RoomStatusChanged is emitted when reconciliation changes a room's stored status.
type RoomStatusChanged struct {
	sharedDomain.BaseEvent
	RoomID   int64       `json:"room_id"`
	From     RoomStatus  `json:"from"`
	To       RoomStatus  `json:"to"`
	Cause    StatusCause `json:"cause"`
	SourceID int64       `json:"source_id,omitempty"`
}

// NewRoomStatusChanged creates a RoomStatusChanged event.
func NewRoomStatusChanged(roomID int64, from RoomStatus, d Derivation) *RoomStatusChanged {
	return &RoomStatusChanged{
		BaseEvent: sharedDomain.NewBaseEvent(roomID, AggregateRoom, RoutingKeyRoomStatusChanged, d.DerivedAt()),
		RoomID:    roomID,
		From:      from,
		To:        d.Status(),
		Cause:     d.Cause(),
		SourceID:  d.SourceID(),
	}
}

// BookingEvent carries a booking snapshot for every booking lifecycle event.
type BookingEvent struct {
	sharedDomain.BaseEvent
	BookingID int64         `json:"booking_id"`
	RoomID    int64         `json:"room_id"`
	UserID    int64         `json:"user_id"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Status    BookingStatus `json:"status"`
}

func newBookingEvent(b *Booking, routingKey string) *BookingEvent {
	return &BookingEvent{
		BaseEvent: sharedDomain.NewBaseEvent(b.ID(), AggregateBooking, routingKey, b.UpdatedAt()),
		BookingID: b.ID(),
		RoomID:    b.RoomID(),
		UserID:    b.UserID(),
		StartTime: b.StartTime(),
		EndTime:   b.EndTime(),
		Status:    b.Status(),
	}
}

// NewBookingRequested creates the event for a newly stored booking.
func NewBookingRequested(b *Booking) *BookingEvent {
	return newBookingEvent(b, RoutingKeyBookingRequested)
}

// NewBookingApproved creates the event for an approved booking.
func NewBookingApproved(b *Booking) *BookingEvent {
	return newBookingEvent(b, RoutingKeyBookingApproved)
}

// NewBookingRejected creates the event for a rejected booking.
func NewBookingRejected(b *Booking) *BookingEvent {
	return newBookingEvent(b, RoutingKeyBookingRejected)
}

// NewBookingCompleted creates the event for a booking closed by the lifecycle sweep.
func NewBookingCompleted(b *Booking) *BookingEvent {
	return newBookingEvent(b, RoutingKeyBookingCompleted)
}

// MaintenanceEvent carries a maintenance snapshot.
type MaintenanceEvent struct {
	sharedDomain.BaseEvent
	MaintenanceID int64             `json:"maintenance_id"`
	RoomID        int64             `json:"room_id"`
	StartDate     time.Time         `json:"start_date"`
	EndDate       time.Time         `json:"end_date"`
	From          MaintenanceStatus `json:"from,omitempty"`
	Status        MaintenanceStatus `json:"status"`
}

// NewMaintenanceScheduled creates the event for newly stored maintenance.
func NewMaintenanceScheduled(m *Maintenance) *MaintenanceEvent {
	return &MaintenanceEvent{
		BaseEvent:     sharedDomain.NewBaseEvent(m.ID(), AggregateMaintenance, RoutingKeyMaintenanceScheduled, m.UpdatedAt()),
		MaintenanceID: m.ID(),
		RoomID:        m.RoomID(),
		StartDate:     m.StartDate(),
		EndDate:       m.EndDate(),
		Status:        m.Status(),
	}
}

// NewMaintenanceStatusChanged creates the event for a maintenance transition.
func NewMaintenanceStatusChanged(m *Maintenance, from MaintenanceStatus) *MaintenanceEvent {
	return &MaintenanceEvent{
		BaseEvent:     sharedDomain.NewBaseEvent(m.ID(), AggregateMaintenance, RoutingKeyMaintenanceStatusChanged, m.UpdatedAt()),
		MaintenanceID: m.ID(),
		RoomID:        m.RoomID(),
		StartDate:     m.StartDate(),
		EndDate:       m.EndDate(),
		From:          from,
		Status:        m.Status(),
	}
}
