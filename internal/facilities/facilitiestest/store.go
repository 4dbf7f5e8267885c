// Package facilitiestest provides a migrated in-memory store and seeding
// helpers for tests of the facilities packages.
package facilitiestest

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/infrastructure/persistence"
	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/outbox"
	"github.com/stretchr/testify/require"
)

// Epoch is the reference instant fixtures are built around.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// At returns Epoch plus h hours and m minutes.
func At(h, m int) time.Time {
	return Epoch.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

// Store is a migrated private SQLite database with repositories bound to it.
type Store struct {
	Conn   database.Connection
	Repos  persistence.Repositories
	UoW    *database.GenericUnitOfWork
	Outbox outbox.Repository

	t   testing.TB
	seq atomic.Int64
}

// NewStore opens and migrates an in-memory database closed at test cleanup.
func NewStore(t testing.TB) *Store {
	t.Helper()
	ctx := context.Background()

	conn, err := database.NewConnection(ctx, database.Config{Driver: database.DriverSQLite, SQLitePath: database.MemoryPath})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, migrations.Run(ctx, conn))

	return &Store{
		Conn:   conn,
		Repos:  persistence.NewRepositories(conn),
		UoW:    database.NewUnitOfWork(conn),
		Outbox: outbox.NewRepository(conn),
		t:      t,
	}
}

// User stores a user with role.
func (s *Store) User(role domain.Role) *domain.User {
	s.t.Helper()
	n := s.seq.Add(1)
	u := &domain.User{
		Name:  fmt.Sprintf("user-%d", n),
		Email: fmt.Sprintf("user-%d@example.edu", n),
		Role:  role,
	}
	require.NoError(s.t, s.Repos.Users.Upsert(context.Background(), u))
	return u
}

// Room stores a VACANT room.
func (s *Store) Room(name string) *domain.Room {
	s.t.Helper()
	room, err := domain.NewRoom(domain.RoomDetails{Name: name, Capacity: 40, Building: "Main", Floor: 1}, Epoch)
	require.NoError(s.t, err)
	require.NoError(s.t, s.Repos.Rooms.Create(context.Background(), room))
	return room
}

// Booking stores a booking with the given status, bypassing validation.
func (s *Store) Booking(room *domain.Room, user *domain.User, start, end time.Time, status domain.BookingStatus) *domain.Booking {
	s.t.Helper()
	b := domain.RehydrateBooking(0, room.ID(), user.ID, start.UTC(), end.UTC(), "seminar", status, Epoch, Epoch)
	require.NoError(s.t, s.Repos.Bookings.Create(context.Background(), b))
	return b
}

// Maintenance stores maintenance with the given status, bypassing validation.
func (s *Store) Maintenance(room *domain.Room, start, end time.Time, status domain.MaintenanceStatus) *domain.Maintenance {
	s.t.Helper()
	m := domain.RehydrateMaintenance(0, room.ID(), "repairs", start.UTC(), end.UTC(), status, Epoch, Epoch)
	require.NoError(s.t, s.Repos.Maintenance.Create(context.Background(), m))
	return m
}

// RoomStatus reloads a room's stored status.
func (s *Store) RoomStatus(roomID int64) domain.RoomStatus {
	s.t.Helper()
	room, err := s.Repos.Rooms.FindByID(context.Background(), roomID)
	require.NoError(s.t, err)
	return room.Status()
}

// BookingStatus reloads a booking's stored status.
func (s *Store) BookingStatus(bookingID int64) domain.BookingStatus {
	s.t.Helper()
	b, err := s.Repos.Bookings.FindByID(context.Background(), bookingID)
	require.NoError(s.t, err)
	return b.Status()
}

// RoutingKeys lists the routing keys of unpublished outbox messages in insertion order.
func (s *Store) RoutingKeys() []string {
	s.t.Helper()
	msgs, err := s.Outbox.GetUnpublished(context.Background(), 1000)
	require.NoError(s.t, err)
	keys := make([]string, 0, len(msgs))
	for _, m := range msgs {
		keys = append(keys, m.RoutingKey)
	}
	return keys
}
