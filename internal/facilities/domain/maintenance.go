package domain

import (
	"fmt"
	"strings"
	"time"

	sharedDomain "github.com/felixgeelhaar/roomkeeper/internal/shared/domain"
)

// MaintenanceStatus is the lifecycle state of a maintenance window.
type MaintenanceStatus string

const (
	MaintenanceScheduled  MaintenanceStatus = "scheduled"
	MaintenanceInProgress MaintenanceStatus = "in-progress"
	MaintenanceCompleted  MaintenanceStatus = "completed"
	MaintenanceCancelled  MaintenanceStatus = "cancelled"
)

// ParseMaintenanceStatus validates a stored maintenance status.
func ParseMaintenanceStatus(s string) (MaintenanceStatus, error) {
	switch status := MaintenanceStatus(strings.ToLower(strings.TrimSpace(s))); status {
	case MaintenanceScheduled, MaintenanceInProgress, MaintenanceCompleted, MaintenanceCancelled:
		return status, nil
	default:
		return "", fmt.Errorf("%w: maintenance status %q", ErrUnknownStatus, s)
	}
}

// Maintenance takes a room out of service for a window.
// Only in-progress maintenance blocks bookings and forces MAINTENANCE status.
type Maintenance struct {
	sharedDomain.BaseAggregateRoot
	roomID      int64
	description string
	window      TimeRange
	status      MaintenanceStatus
}

// NewMaintenance schedules maintenance. A window that has already started is
// recorded as in-progress so it takes effect immediately.
func NewMaintenance(roomID int64, description string, start, end time.Time, now time.Time) (*Maintenance, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrDescriptionRequired
	}
	window, err := NewTimeRange(start, end)
	if err != nil {
		return nil, err
	}
	if !window.End.After(now) {
		return nil, ErrWindowInPast
	}

	status := MaintenanceScheduled
	if !window.Start.After(now) {
		status = MaintenanceInProgress
	}

	return &Maintenance{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(now),
		roomID:            roomID,
		description:       description,
		window:            window.UTC(),
		status:            status,
	}, nil
}

// RehydrateMaintenance rebuilds a maintenance record from storage.
func RehydrateMaintenance(id, roomID int64, description string, start, end time.Time, status MaintenanceStatus, createdAt, updatedAt time.Time) *Maintenance {
	return &Maintenance{
		BaseAggregateRoot: sharedDomain.RehydrateBaseAggregateRoot(sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)),
		roomID:            roomID,
		description:       description,
		window:            TimeRange{Start: start, End: end},
		status:            status,
	}
}

func (m *Maintenance) RoomID() int64             { return m.roomID }
func (m *Maintenance) Description() string       { return m.description }
func (m *Maintenance) Window() TimeRange         { return m.window }
func (m *Maintenance) StartDate() time.Time      { return m.window.Start }
func (m *Maintenance) EndDate() time.Time        { return m.window.End }
func (m *Maintenance) Status() MaintenanceStatus { return m.status }

// IsActiveAt reports whether the maintenance is in progress and covers at.
func (m *Maintenance) IsActiveAt(at time.Time) bool {
	return m.status == MaintenanceInProgress && m.window.Contains(at)
}

// IsOpen reports whether the maintenance can still affect the room.
func (m *Maintenance) IsOpen() bool {
	return m.status == MaintenanceScheduled || m.status == MaintenanceInProgress
}

// RecordCreated raises the scheduling event once the store has assigned an ID.
func (m *Maintenance) RecordCreated() {
	if m.IsTransient() {
		return
	}
	m.AddDomainEvent(NewMaintenanceScheduled(m))
}

// Start moves scheduled maintenance to in-progress.
func (m *Maintenance) Start(now time.Time) error {
	if m.status != MaintenanceScheduled {
		return fmt.Errorf("%w: cannot start %s maintenance", ErrInvalidTransition, m.status)
	}
	return m.transition(MaintenanceInProgress, now)
}

// Complete finishes in-progress maintenance.
func (m *Maintenance) Complete(now time.Time) error {
	if m.status != MaintenanceInProgress {
		return fmt.Errorf("%w: cannot complete %s maintenance", ErrInvalidTransition, m.status)
	}
	return m.transition(MaintenanceCompleted, now)
}

// Cancel withdraws maintenance that is scheduled or in progress.
func (m *Maintenance) Cancel(now time.Time) error {
	if !m.IsOpen() {
		return fmt.Errorf("%w: cannot cancel %s maintenance", ErrInvalidTransition, m.status)
	}
	return m.transition(MaintenanceCancelled, now)
}

func (m *Maintenance) transition(to MaintenanceStatus, now time.Time) error {
	from := m.status
	m.status = to
	m.Touch(now)
	m.AddDomainEvent(NewMaintenanceStatusChanged(m, from))
	return nil
}
