package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/services"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
	ft "github.com/felixgeelhaar/roomkeeper/internal/facilities/facilitiestest"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/infrastructure/locking"
	sharedApplication "github.com/felixgeelhaar/roomkeeper/internal/shared/application"
	"github.com/felixgeelhaar/roomkeeper/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyRooms fails FindByID for selected rooms.
type flakyRooms struct {
	domain.RoomRepository
	fail map[int64]error
}

func (r *flakyRooms) FindByID(ctx context.Context, id int64) (*domain.Room, error) {
	if err, ok := r.fail[id]; ok {
		return nil, err
	}
	return r.RoomRepository.FindByID(ctx, id)
}

// downRooms cannot list rooms.
type downRooms struct {
	domain.RoomRepository
}

func (downRooms) List(context.Context, domain.RoomFilter) ([]*domain.Room, error) {
	return nil, errors.New("database is locked")
}

type reconcilerHarness struct {
	store   *ft.Store
	clock   *sharedApplication.FixedClock
	metrics *observability.InMemoryMetrics
}

func newHarness(t *testing.T, now time.Time) *reconcilerHarness {
	return &reconcilerHarness{
		store:   ft.NewStore(t),
		clock:   sharedApplication.NewFixedClock(now),
		metrics: observability.NewInMemoryMetrics(),
	}
}

func (h *reconcilerHarness) reconciler(rooms domain.RoomRepository, guard *services.StoreGuard) *services.Reconciler {
	if rooms == nil {
		rooms = h.store.Repos.Rooms
	}
	return services.NewReconciler(
		rooms,
		h.store.Repos.Bookings,
		h.store.Repos.Maintenance,
		h.store.Outbox,
		h.store.UoW,
		h.clock,
		guard,
		services.ReconcilerConfig{Concurrency: 2, RoomTimeout: 5 * time.Second},
		nil,
		h.metrics,
	)
}

func TestReconciler_RunStatusSweep(t *testing.T) {
	h := newHarness(t, ft.At(10, 0))
	s := h.store
	user := s.User(domain.RoleLecturer)

	active := s.Room("active")
	s.Booking(active, user, ft.At(9, 30), ft.At(10, 30), domain.BookingApproved)
	upcoming := s.Room("upcoming")
	s.Booking(upcoming, user, ft.At(10, 45), ft.At(11, 30), domain.BookingApproved)
	repair := s.Room("repair")
	s.Maintenance(repair, ft.At(8, 0), ft.At(12, 0), domain.MaintenanceInProgress)
	idle := s.Room("idle")
	s.Booking(idle, user, ft.At(10, 0), ft.At(11, 0), domain.BookingPending)

	report := h.reconciler(nil, nil).RunStatusSweep(context.Background())

	require.NoError(t, report.Err())
	assert.Equal(t, services.SweepStatus, report.Kind)
	assert.Equal(t, 4, report.RoomsChecked)
	assert.Equal(t, 3, report.RoomsChanged)
	assert.Equal(t, domain.RoomStatusBooked, s.RoomStatus(active.ID()))
	assert.Equal(t, domain.RoomStatusBooked, s.RoomStatus(upcoming.ID()))
	assert.Equal(t, domain.RoomStatusMaintenance, s.RoomStatus(repair.ID()))
	assert.Equal(t, domain.RoomStatusVacant, s.RoomStatus(idle.ID()))

	assert.Len(t, s.RoutingKeys(), 3)
	for _, key := range s.RoutingKeys() {
		assert.Equal(t, domain.RoutingKeyRoomStatusChanged, key)
	}
	kind := observability.T("kind", "status")
	assert.Equal(t, int64(1), h.metrics.GetCounter("roomkeeper.sweep.runs", kind))
	assert.Equal(t, int64(2), h.metrics.GetCounter("roomkeeper.sweep.status_changes", observability.T("to", "BOOKED")))
}

func TestReconciler_RunStatusSweep_Idempotent(t *testing.T) {
	h := newHarness(t, ft.At(10, 0))
	s := h.store
	room := s.Room("LT-1")
	s.Booking(room, s.User(domain.RoleAdmin), ft.At(10, 0), ft.At(11, 0), domain.BookingApproved)
	r := h.reconciler(nil, nil)

	first := r.RunStatusSweep(context.Background())
	require.Equal(t, 1, first.RoomsChanged)
	events := len(s.RoutingKeys())

	second := r.RunStatusSweep(context.Background())
	assert.Zero(t, second.RoomsChanged)
	assert.Empty(t, second.Changes)
	assert.Len(t, s.RoutingKeys(), events)
}

func TestReconciler_RunStatusSweep_TracksTime(t *testing.T) {
	h := newHarness(t, ft.At(10, 0))
	s := h.store
	room := s.Room("LT-1")
	s.Booking(room, s.User(domain.RoleAdmin), ft.At(10, 0), ft.At(11, 0), domain.BookingApproved)
	r := h.reconciler(nil, nil)

	r.RunStatusSweep(context.Background())
	assert.Equal(t, domain.RoomStatusBooked, s.RoomStatus(room.ID()))

	h.clock.Set(ft.At(11, 0))
	report := r.RunStatusSweep(context.Background())
	require.Len(t, report.Changes, 1)
	assert.Equal(t, services.RoomOutcome{
		RoomID:  room.ID(),
		From:    domain.RoomStatusBooked,
		To:      domain.RoomStatusVacant,
		Changed: true,
		Cause:   domain.CauseIdle,
	}, report.Changes[0])
}

func TestReconciler_RunStatusSweep_RoomFailureDoesNotAbort(t *testing.T) {
	h := newHarness(t, ft.At(10, 0))
	s := h.store
	user := s.User(domain.RoleAdmin)
	broken := s.Room("broken")
	healthy := s.Room("healthy")
	s.Booking(broken, user, ft.At(10, 0), ft.At(11, 0), domain.BookingApproved)
	s.Booking(healthy, user, ft.At(10, 0), ft.At(11, 0), domain.BookingApproved)

	rooms := &flakyRooms{
		RoomRepository: s.Repos.Rooms,
		fail:           map[int64]error{broken.ID(): errors.New("row decode failed")},
	}
	report := h.reconciler(rooms, nil).RunStatusSweep(context.Background())

	assert.NoError(t, report.Aborted)
	assert.Equal(t, 2, report.RoomsChecked)
	assert.Equal(t, 1, report.RoomsChanged)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, broken.ID(), report.Failures[0].RoomID)
	assert.ErrorContains(t, report.Err(), "row decode failed")

	var recErr *domain.ReconciliationError
	assert.True(t, errors.As(report.Err(), &recErr))
	assert.Equal(t, domain.RoomStatusBooked, s.RoomStatus(healthy.ID()))
	assert.Equal(t, int64(1), h.metrics.GetCounter("roomkeeper.sweep.room_failures", observability.T("kind", "status")))
}

func TestReconciler_RunStatusSweep_AbortsWhenStoreUnreachable(t *testing.T) {
	h := newHarness(t, ft.At(10, 0))
	h.store.Room("LT-1")

	report := h.reconciler(downRooms{h.store.Repos.Rooms}, nil).RunStatusSweep(context.Background())

	assert.ErrorIs(t, report.Aborted, domain.ErrStoreUnavailable)
	assert.ErrorIs(t, report.Err(), domain.ErrStoreUnavailable)
	assert.Zero(t, report.RoomsChecked)
}

func TestReconciler_RunStatusSweep_AbortsWhenBreakerOpens(t *testing.T) {
	h := newHarness(t, ft.At(10, 0))
	s := h.store
	fail := map[int64]error{}
	for i := 0; i < 6; i++ {
		fail[s.Room("room").ID()] = errors.New("i/o timeout")
	}

	guard := services.NewStoreGuard(services.StoreGuardConfig{FailureThreshold: 2, Timeout: time.Minute}, nil, nil)
	r := services.NewReconciler(
		&flakyRooms{RoomRepository: s.Repos.Rooms, fail: fail},
		s.Repos.Bookings, s.Repos.Maintenance, s.Outbox, s.UoW, h.clock, guard,
		services.ReconcilerConfig{Concurrency: 1, RoomTimeout: time.Second},
		nil, nil,
	)

	report := r.RunStatusSweep(context.Background())

	assert.ErrorIs(t, report.Aborted, domain.ErrStoreUnavailable)
	assert.Less(t, report.RoomsChecked, 6)
	assert.Equal(t, "open", guard.State())
}

func TestReconciler_RunLifecycleSweep(t *testing.T) {
	h := newHarness(t, ft.At(12, 0))
	s := h.store
	user := s.User(domain.RoleLecturer)
	room := s.Room("LT-1")
	other := s.Room("LT-2")

	ended := s.Booking(room, user, ft.At(10, 0), ft.At(11, 0), domain.BookingApproved)
	endsNow := s.Booking(other, user, ft.At(11, 0), ft.At(12, 0), domain.BookingApproved)
	pending := s.Booking(room, user, ft.At(8, 0), ft.At(9, 0), domain.BookingPending)

	// Stored BOOKED from the morning sweep.
	h.clock.Set(ft.At(10, 30))
	r := h.reconciler(nil, nil)
	_, err := r.ReconcileRoom(context.Background(), room.ID())
	require.NoError(t, err)
	require.Equal(t, domain.RoomStatusBooked, s.RoomStatus(room.ID()))

	h.clock.Set(ft.At(12, 0))
	report := r.RunLifecycleSweep(context.Background())

	require.NoError(t, report.Err())
	assert.Equal(t, services.SweepLifecycle, report.Kind)
	assert.Equal(t, 1, report.BookingsCompleted)
	assert.Equal(t, domain.BookingCompleted, s.BookingStatus(ended.ID()))
	assert.Equal(t, domain.BookingApproved, s.BookingStatus(endsNow.ID()))
	assert.Equal(t, domain.BookingPending, s.BookingStatus(pending.ID()))
	assert.Equal(t, 1, report.RoomsChecked)
	assert.Equal(t, domain.RoomStatusVacant, s.RoomStatus(room.ID()))
	assert.Contains(t, s.RoutingKeys(), domain.RoutingKeyBookingCompleted)
	assert.Equal(t, int64(1), h.metrics.GetCounter("roomkeeper.bookings.completed"))

	again := r.RunLifecycleSweep(context.Background())
	assert.Zero(t, again.BookingsCompleted)
	assert.Zero(t, again.RoomsChecked)
}

func TestReconciler_ReconcileRoom(t *testing.T) {
	h := newHarness(t, ft.At(10, 0))
	s := h.store
	room := s.Room("LT-1")
	m := s.Maintenance(room, ft.At(9, 0), ft.At(11, 0), domain.MaintenanceInProgress)
	r := h.reconciler(nil, nil)

	outcome, err := r.ReconcileRoom(context.Background(), room.ID())
	require.NoError(t, err)
	assert.True(t, outcome.Changed)
	assert.Equal(t, domain.RoomStatusVacant, outcome.From)
	assert.Equal(t, domain.RoomStatusMaintenance, outcome.To)
	assert.Equal(t, domain.CauseActiveMaintenance, outcome.Cause)
	assert.NotZero(t, m.ID())

	outcome, err = r.ReconcileRoom(context.Background(), room.ID())
	require.NoError(t, err)
	assert.False(t, outcome.Changed)

	_, err = r.ReconcileRoom(context.Background(), 999)
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestReconciler_ReconcileRoom_JoinsCallerTransaction(t *testing.T) {
	h := newHarness(t, ft.At(10, 0))
	s := h.store
	room := s.Room("LT-1")
	s.Booking(room, s.User(domain.RoleAdmin), ft.At(10, 0), ft.At(11, 0), domain.BookingApproved)
	r := h.reconciler(nil, nil)

	rollback := errors.New("rollback")
	err := sharedApplication.WithUnitOfWork(context.Background(), s.UoW, func(ctx context.Context) error {
		outcome, err := r.ReconcileRoom(ctx, room.ID())
		require.NoError(t, err)
		require.True(t, outcome.Changed)
		return rollback
	})

	assert.ErrorIs(t, err, rollback)
	assert.Equal(t, domain.RoomStatusVacant, s.RoomStatus(room.ID()))
	assert.Empty(t, s.RoutingKeys())
}

func TestReconciler_RunStatusSweep_WaitsForRoomLock(t *testing.T) {
	h := newHarness(t, ft.At(10, 0))
	s := h.store
	user := s.User(domain.RoleLecturer)
	held := s.Room("held")
	s.Booking(held, user, ft.At(9, 30), ft.At(10, 30), domain.BookingApproved)
	free := s.Room("free")
	s.Booking(free, user, ft.At(9, 30), ft.At(10, 30), domain.BookingApproved)

	locker := locking.NewLocalRoomLocker()
	r := services.NewReconciler(
		s.Repos.Rooms, s.Repos.Bookings, s.Repos.Maintenance, s.Outbox, s.UoW, h.clock, nil,
		services.ReconcilerConfig{Concurrency: 2, RoomTimeout: 100 * time.Millisecond},
		nil, nil,
	).WithRoomLocker(locker)

	release, err := locker.Lock(context.Background(), held.ID())
	require.NoError(t, err)

	report := r.RunStatusSweep(context.Background())
	require.Len(t, report.Failures, 1)
	assert.Equal(t, held.ID(), report.Failures[0].RoomID)
	assert.ErrorIs(t, report.Failures[0], locking.ErrLockTimeout)
	assert.Equal(t, domain.RoomStatusVacant, s.RoomStatus(held.ID()))
	assert.Equal(t, domain.RoomStatusBooked, s.RoomStatus(free.ID()))

	require.NoError(t, release())
	report = r.RunStatusSweep(context.Background())
	require.NoError(t, report.Err())
	assert.Equal(t, domain.RoomStatusBooked, s.RoomStatus(held.ID()))
}
