package app

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/commands"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/queries"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
	sharedApplication "github.com/felixgeelhaar/roomkeeper/internal/shared/application"
	"github.com/felixgeelhaar/roomkeeper/pkg/config"
	"github.com/felixgeelhaar/roomkeeper/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		AppEnv:                 "test",
		LogFormat:              "text",
		SQLitePath:             filepath.Join(t.TempDir(), "rooms.db"),
		RedisURL:               "redis://unused:6379",
		RabbitMQURL:            "amqp://unused",
		SchedulerEnabled:       true,
		StatusSweepSchedule:    "*/5 * * * *",
		LifecycleSweepSchedule: "0 * * * *",
		SweepTimezone:          "UTC",
		SweepConcurrency:       2,
		SweepRoomTimeout:       time.Second,
		BookingLockTTL:         time.Second,
		BookingLockWait:        time.Second,
		StoreBreakerFailures:   3,
		StoreBreakerTimeout:    time.Second,
		OutboxBatchSize:        50,
		OutboxMaxRetries:       3,
	}
}

func newLocal(t *testing.T, opts ...Option) *Container {
	t.Helper()
	c, err := NewLocalContainer(context.Background(), testConfig(t), slog.New(slog.DiscardHandler), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, c.Close()) })
	return c
}

func TestNewLocalContainer_WiresEverything(t *testing.T) {
	c := newLocal(t)

	assert.Equal(t, "sqlite", string(c.DB.Driver()))
	assert.Nil(t, c.RedisClient)
	assert.Nil(t, c.EventConsumer)
	assert.NotNil(t, c.Locker)
	assert.NotNil(t, c.OutboxProcessor)
	assert.NotNil(t, c.CreateBookingHandler)
	assert.NotNil(t, c.ListUserBookingsHandler)

	require.NotNil(t, c.Scheduler)
	assert.Len(t, c.Scheduler.Jobs(), 2)

	results := c.Health.Check(context.Background())
	require.Contains(t, results, "database")
	assert.Equal(t, observability.HealthStatusHealthy, results["database"].Status)
	assert.NotContains(t, results, "redis")
}

func TestNewLocalContainer_SchedulerDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.SchedulerEnabled = false
	c, err := NewLocalContainer(context.Background(), cfg, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.Scheduler)
}

func TestNewLocalContainer_InvalidSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.StatusSweepSchedule = "every five minutes"
	_, err := NewLocalContainer(context.Background(), cfg, slog.New(slog.DiscardHandler))
	assert.Error(t, err)
}

func TestContainer_BookingLifecycle(t *testing.T) {
	ctx := context.Background()
	clock := sharedApplication.NewFixedClock(epoch)
	metrics := observability.NewInMemoryMetrics()
	c := newLocal(t, WithClock(clock), WithMetrics(metrics))

	admin, err := c.UpsertUserHandler.Handle(ctx, commands.UpsertUserCommand{Name: "Ada", Email: "ADA@example.edu", Role: "ADMIN"})
	require.NoError(t, err)
	lecturer, err := c.UpsertUserHandler.Handle(ctx, commands.UpsertUserCommand{Name: "Lin", Email: "lin@example.edu", Role: "LECTURER"})
	require.NoError(t, err)

	roomID, err := c.RegisterRoomHandler.Handle(ctx, commands.RegisterRoomCommand{
		Details:     domain.RoomDetails{Name: "Lab 2", Capacity: 30},
		RequestedBy: admin.ID,
	})
	require.NoError(t, err)

	// A lecturer's request waits for a decision and leaves the room vacant.
	pending, err := c.CreateBookingHandler.Handle(ctx, commands.CreateBookingCommand{
		RoomID:    roomID,
		UserID:    lecturer.ID,
		StartTime: epoch.Add(30 * time.Minute),
		EndTime:   epoch.Add(90 * time.Minute),
		Purpose:   "Seminar",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPending, pending.Status)
	assert.Equal(t, domain.RoomStatusVacant, pending.RoomStatus)

	decided, err := c.DecideBookingHandler.Handle(ctx, commands.DecideBookingCommand{
		BookingID: pending.BookingID,
		Decision:  "approved",
		DecidedBy: admin.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoomStatusBooked, decided.RoomStatus)

	// Relaying the outbox runs the status refresh consumer in process.
	require.NoError(t, c.OutboxProcessor.ProcessOnce(ctx))
	assert.Positive(t, c.OutboxProcessor.GetStats().PublishedCount)

	status, err := c.GetRoomStatusHandler.Handle(ctx, queries.GetRoomStatusQuery{RoomID: roomID})
	require.NoError(t, err)
	assert.Equal(t, "BOOKED", status.Stored)
	assert.False(t, status.Drift)

	clock.Advance(2 * time.Hour)
	report := c.Reconciler.RunLifecycleSweep(ctx)
	require.NoError(t, report.Err())
	assert.Equal(t, 1, report.BookingsCompleted)
	assert.Equal(t, 1, report.RoomsChanged)

	bookings, err := c.ListUserBookingsHandler.Handle(ctx, queries.ListUserBookingsQuery{UserID: lecturer.ID})
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "completed", bookings[0].Status)

	status, err = c.GetRoomStatusHandler.Handle(ctx, queries.GetRoomStatusQuery{RoomID: roomID})
	require.NoError(t, err)
	assert.Equal(t, "VACANT", status.Stored)
	assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricBookingsCompleted))
}
