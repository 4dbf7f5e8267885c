package persistence_test

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/infrastructure/persistence"
	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/database/postgres"
	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPostgres(t *testing.T) fixture {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	conn, err := database.NewConnection(ctx, database.Config{Driver: database.DriverPostgres, URL: dbURL, MaxConns: 4})
	if err != nil {
		t.Skipf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, migrations.Run(ctx, conn))

	for _, table := range []string{"outbox", "bookings", "maintenance", "rooms", "users"} {
		_, err := conn.Exec(ctx, "DELETE FROM "+table)
		require.NoError(t, err)
	}

	repos := persistence.NewRepositories(conn)
	user := &domain.User{Name: "Ada", Email: "ada@example.edu", Role: domain.RoleAdmin}
	require.NoError(t, repos.Users.Upsert(ctx, user))
	room, err := domain.NewRoom(domain.RoomDetails{Name: "LT-1", Capacity: 80, Features: []string{"projector", "hdmi"}}, epoch)
	require.NoError(t, err)
	require.NoError(t, repos.Rooms.Create(ctx, room))

	return fixture{conn: conn, repos: repos, user: user, room: room}
}

func TestPostgresRoomRepository_Features(t *testing.T) {
	f := setupPostgres(t)

	found, err := f.repos.Rooms.FindByID(context.Background(), f.room.ID())
	require.NoError(t, err)
	assert.Equal(t, []string{"projector", "hdmi"}, found.Features())
}

func TestPostgresBookingRepository_ExclusionConstraint(t *testing.T) {
	ctx := context.Background()
	f := setupPostgres(t)

	f.book(t, at(10, 0), at(11, 0), true)
	f.book(t, at(11, 0), at(12, 0), true)

	clash, err := domain.NewBooking(f.room.ID(), f.user.ID, at(10, 30), at(11, 30), "overlap", true, epoch)
	require.NoError(t, err)
	err = f.repos.Bookings.Create(ctx, clash)
	assert.ErrorIs(t, err, domain.ErrRoomAlreadyBooked)

	pending := f.book(t, at(10, 30), at(11, 30), false)
	require.NoError(t, pending.Approve(epoch))
	err = f.repos.Bookings.SaveStatus(ctx, pending)
	assert.ErrorIs(t, err, domain.ErrRoomAlreadyBooked)
}

func TestPostgresBookingRepository_Queries(t *testing.T) {
	ctx := context.Background()
	f := setupPostgres(t)

	morning := f.book(t, at(9, 0), at(10, 0), true)
	noon := f.book(t, at(12, 0), at(13, 0), true)

	next, err := f.repos.Bookings.FindNextApproved(ctx, f.room.ID(), at(10, 0))
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, noon.ID(), next.ID())

	ended, err := f.repos.Bookings.FindApprovedEndedBefore(ctx, at(10, 1))
	require.NoError(t, err)
	require.Len(t, ended, 1)
	assert.Equal(t, morning.ID(), ended[0].ID())
	assert.Equal(t, "UTC", ended[0].StartTime().Location().String())
}

func TestPostgresBookingRepository_ConcurrentOverlappingInserts(t *testing.T) {
	ctx := context.Background()
	f := setupPostgres(t)

	const attempts = 4
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := domain.NewBooking(f.room.ID(), f.user.ID, at(14, 0), at(15, 0), "race", true, epoch)
			if err != nil {
				errs <- err
				return
			}
			errs <- f.repos.Bookings.Create(ctx, b)
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrRoomAlreadyBooked)
	}
	assert.Equal(t, 1, succeeded)
}
