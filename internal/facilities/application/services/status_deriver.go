package services

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
)

// StatusDeriver reads a room's snapshot and computes its status. It never writes.
type StatusDeriver struct {
	bookings    domain.BookingRepository
	maintenance domain.MaintenanceRepository
}

// NewStatusDeriver creates a StatusDeriver.
func NewStatusDeriver(bookings domain.BookingRepository, maintenance domain.MaintenanceRepository) *StatusDeriver {
	return &StatusDeriver{bookings: bookings, maintenance: maintenance}
}

// Derive returns the status roomID should have at now.
func (d *StatusDeriver) Derive(ctx context.Context, roomID int64, now time.Time) (domain.Derivation, error) {
	snap, err := d.Snapshot(ctx, roomID, now)
	if err != nil {
		return domain.Derivation{}, err
	}
	return domain.DeriveStatus(roomID, now, snap), nil
}

// Snapshot loads the records a derivation at now depends on.
func (d *StatusDeriver) Snapshot(ctx context.Context, roomID int64, now time.Time) (domain.Snapshot, error) {
	var (
		snap domain.Snapshot
		err  error
	)
	if snap.Maintenance, err = d.maintenance.FindInProgressActive(ctx, roomID, now); err != nil {
		return snap, fmt.Errorf("load active maintenance of room %d: %w", roomID, err)
	}
	if len(snap.Maintenance) > 0 {
		return snap, nil
	}
	if snap.Bookings, err = d.bookings.FindApprovedActive(ctx, roomID, now); err != nil {
		return snap, fmt.Errorf("load active bookings of room %d: %w", roomID, err)
	}
	if len(snap.Bookings) > 0 {
		return snap, nil
	}
	if snap.Next, err = d.bookings.FindNextApproved(ctx, roomID, now); err != nil {
		return snap, fmt.Errorf("load next booking of room %d: %w", roomID, err)
	}
	return snap, nil
}
