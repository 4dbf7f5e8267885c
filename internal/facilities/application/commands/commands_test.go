package commands_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/commands"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/services"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
	ft "github.com/felixgeelhaar/roomkeeper/internal/facilities/facilitiestest"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/infrastructure/locking"
	sharedApplication "github.com/felixgeelhaar/roomkeeper/internal/shared/application"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	*ft.Store
	clock      *sharedApplication.FixedClock
	locker     *locking.LocalRoomLocker
	validator  *services.ConflictValidator
	reconciler *services.Reconciler

	admin    *domain.User
	lecturer *domain.User
	student  *domain.User
	room     *domain.Room
}

func newEnv(t *testing.T) *env {
	s := ft.NewStore(t)
	clock := sharedApplication.NewFixedClock(ft.At(10, 0))
	e := &env{
		Store:     s,
		clock:     clock,
		locker:    locking.NewLocalRoomLocker(),
		validator: services.NewConflictValidator(s.Repos.Bookings, s.Repos.Maintenance, nil),
		reconciler: services.NewReconciler(s.Repos.Rooms, s.Repos.Bookings, s.Repos.Maintenance, s.Outbox, s.UoW,
			clock, nil, services.DefaultReconcilerConfig(), nil, nil),
	}
	e.admin = s.User(domain.RoleAdmin)
	e.lecturer = s.User(domain.RoleLecturer)
	e.student = s.User(domain.RoleStudent)
	e.room = s.Room("LT-1")
	return e
}

func (e *env) createBooking() *commands.CreateBookingHandler {
	return commands.NewCreateBookingHandler(e.Repos.Users, e.Repos.Rooms, e.Repos.Bookings, e.validator, e.reconciler, e.locker, e.Outbox, e.UoW, e.clock)
}

func (e *env) decideBooking() *commands.DecideBookingHandler {
	return commands.NewDecideBookingHandler(e.Repos.Users, e.Repos.Rooms, e.Repos.Bookings, e.validator, e.reconciler, e.locker, e.Outbox, e.UoW, e.clock)
}

func (e *env) scheduleMaintenance() *commands.ScheduleMaintenanceHandler {
	return commands.NewScheduleMaintenanceHandler(e.Repos.Users, e.Repos.Rooms, e.Repos.Maintenance, e.reconciler, e.locker, e.Outbox, e.UoW, e.clock)
}

func (e *env) transitionMaintenance() *commands.TransitionMaintenanceHandler {
	return commands.NewTransitionMaintenanceHandler(e.Repos.Users, e.Repos.Maintenance, e.reconciler, e.locker, e.Outbox, e.UoW, e.clock)
}

func (e *env) bookingCmd(user *domain.User, start, end time.Time) commands.CreateBookingCommand {
	return commands.CreateBookingCommand{RoomID: e.room.ID(), UserID: user.ID, StartTime: start, EndTime: end, Purpose: "lecture"}
}

func TestCreateBookingHandler_LecturerRequestStaysPending(t *testing.T) {
	e := newEnv(t)

	result, err := e.createBooking().Handle(context.Background(), e.bookingCmd(e.lecturer, ft.At(10, 30), ft.At(11, 30)))

	require.NoError(t, err)
	assert.NotZero(t, result.BookingID)
	assert.Equal(t, domain.BookingPending, result.Status)
	assert.Equal(t, domain.RoomStatusVacant, result.RoomStatus)
	assert.Equal(t, domain.RoomStatusVacant, e.RoomStatus(e.room.ID()))
	assert.Equal(t, []string{domain.RoutingKeyBookingRequested}, e.RoutingKeys())
}

func TestCreateBookingHandler_AdminBookingIsApprovedAndReconciled(t *testing.T) {
	e := newEnv(t)

	result, err := e.createBooking().Handle(context.Background(), e.bookingCmd(e.admin, ft.At(10, 30), ft.At(11, 30)))

	require.NoError(t, err)
	assert.Equal(t, domain.BookingApproved, result.Status)
	assert.Equal(t, domain.RoomStatusBooked, result.RoomStatus)
	assert.Equal(t, domain.RoomStatusBooked, e.RoomStatus(e.room.ID()))
	assert.Equal(t, []string{
		domain.RoutingKeyBookingRequested,
		domain.RoutingKeyBookingApproved,
		domain.RoutingKeyRoomStatusChanged,
	}, e.RoutingKeys())
}

func TestCreateBookingHandler_Rejections(t *testing.T) {
	e := newEnv(t)
	e.Booking(e.room, e.admin, ft.At(12, 0), ft.At(13, 0), domain.BookingApproved)
	e.Maintenance(e.room, ft.At(14, 0), ft.At(16, 0), domain.MaintenanceInProgress)
	handler := e.createBooking()

	tests := []struct {
		name    string
		cmd     commands.CreateBookingCommand
		wantErr error
	}{
		{name: "student", cmd: e.bookingCmd(e.student, ft.At(10, 30), ft.At(11, 0)), wantErr: domain.ErrNotPermitted},
		{name: "unknown user", cmd: commands.CreateBookingCommand{RoomID: e.room.ID(), UserID: 999, StartTime: ft.At(10, 30), EndTime: ft.At(11, 0), Purpose: "x"}, wantErr: domain.ErrUserNotFound},
		{name: "unknown room", cmd: commands.CreateBookingCommand{RoomID: 999, UserID: e.lecturer.ID, StartTime: ft.At(10, 30), EndTime: ft.At(11, 0), Purpose: "x"}, wantErr: domain.ErrRoomNotFound},
		{name: "reversed interval", cmd: e.bookingCmd(e.lecturer, ft.At(11, 0), ft.At(10, 30)), wantErr: domain.ErrInvalidInterval},
		{name: "missing purpose", cmd: commands.CreateBookingCommand{RoomID: e.room.ID(), UserID: e.lecturer.ID, StartTime: ft.At(10, 30), EndTime: ft.At(11, 0), Purpose: "  "}, wantErr: domain.ErrPurposeRequired},
		{name: "overlaps approved", cmd: e.bookingCmd(e.lecturer, ft.At(12, 30), ft.At(13, 30)), wantErr: domain.ErrRoomAlreadyBooked},
		{name: "under maintenance", cmd: e.bookingCmd(e.lecturer, ft.At(15, 0), ft.At(15, 30)), wantErr: domain.ErrRoomUnderMaintenance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := handler.Handle(context.Background(), tt.cmd)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	bookings, err := e.Repos.Bookings.ListUpcomingByRoom(context.Background(), e.room.ID(), ft.Epoch)
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
	assert.Empty(t, e.RoutingKeys())
}

// slowValidation widens the gap between the overlap query and the insert
// so that unserialized callers all see an empty room.
type slowValidation struct {
	domain.BookingRepository
	delay time.Duration
}

func (s slowValidation) FindApprovedOverlapping(ctx context.Context, roomID int64, window domain.TimeRange) ([]*domain.Booking, error) {
	bookings, err := s.BookingRepository.FindApprovedOverlapping(ctx, roomID, window)
	time.Sleep(s.delay)
	return bookings, err
}

// autocommit runs every statement outside a transaction, leaving the room
// lock as the only thing that orders check-then-insert.
type autocommit struct{}

func (autocommit) Begin(ctx context.Context) (context.Context, error) { return ctx, nil }
func (autocommit) Commit(context.Context) error                       { return nil }
func (autocommit) Rollback(context.Context) error                     { return nil }

type unlocked struct{}

func (unlocked) Lock(context.Context, int64) (func() error, error) {
	return func() error { return nil }, nil
}

func raceOverlappingBookings(t *testing.T, e *env, locker services.RoomLocker, attempts int) (succeeded, conflicts int) {
	t.Helper()
	bookings := slowValidation{BookingRepository: e.Repos.Bookings, delay: 50 * time.Millisecond}
	validator := services.NewConflictValidator(bookings, e.Repos.Maintenance, nil)
	handler := commands.NewCreateBookingHandler(e.Repos.Users, e.Repos.Rooms, bookings, validator, e.reconciler, locker, e.Outbox, autocommit{}, e.clock)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := handler.Handle(context.Background(), e.bookingCmd(e.admin, ft.At(12, 0), ft.At(13, 0)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrRoomAlreadyBooked):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	return succeeded, conflicts
}

func TestCreateBookingHandler_ConcurrentOverlappingRequests(t *testing.T) {
	const attempts = 4

	t.Run("room lock admits one booking", func(t *testing.T) {
		e := newEnv(t)
		succeeded, conflicts := raceOverlappingBookings(t, e, e.locker, attempts)
		assert.Equal(t, 1, succeeded)
		assert.Equal(t, attempts-1, conflicts)
	})

	t.Run("without a lock overlapping bookings slip through", func(t *testing.T) {
		e := newEnv(t)
		succeeded, _ := raceOverlappingBookings(t, e, unlocked{}, attempts)
		assert.Greater(t, succeeded, 1)
	})
}

func TestCreateBookingHandler_SubMicrosecondBounds(t *testing.T) {
	e := newEnv(t)
	handler := e.createBooking()
	ctx := context.Background()

	_, err := handler.Handle(ctx, e.bookingCmd(e.admin, ft.At(12, 0), ft.At(12, 0).Add(500*time.Nanosecond)))
	assert.ErrorIs(t, err, domain.ErrInvalidInterval)

	first, err := handler.Handle(ctx, e.bookingCmd(e.admin, ft.At(11, 30), ft.At(12, 0).Add(900*time.Nanosecond)))
	require.NoError(t, err)
	second, err := handler.Handle(ctx, e.bookingCmd(e.admin, ft.At(12, 0).Add(500*time.Nanosecond), ft.At(12, 30)))
	require.NoError(t, err)

	a, err := e.Repos.Bookings.FindByID(ctx, first.BookingID)
	require.NoError(t, err)
	b, err := e.Repos.Bookings.FindByID(ctx, second.BookingID)
	require.NoError(t, err)
	assert.Equal(t, ft.At(12, 0), a.EndTime())
	assert.Equal(t, a.EndTime(), b.StartTime())

	_, err = handler.Handle(ctx, e.bookingCmd(e.admin, ft.At(11, 59), ft.At(12, 1)))
	assert.ErrorIs(t, err, domain.ErrRoomAlreadyBooked)
}

func TestDecideBookingHandler(t *testing.T) {
	e := newEnv(t)
	first := e.Booking(e.room, e.lecturer, ft.At(10, 30), ft.At(11, 30), domain.BookingPending)
	rival := e.Booking(e.room, e.lecturer, ft.At(11, 0), ft.At(12, 0), domain.BookingPending)
	handler := e.decideBooking()
	ctx := context.Background()

	_, err := handler.Handle(ctx, commands.DecideBookingCommand{BookingID: first.ID(), Decision: "approved", DecidedBy: e.lecturer.ID})
	assert.ErrorIs(t, err, domain.ErrNotPermitted)

	_, err = handler.Handle(ctx, commands.DecideBookingCommand{BookingID: first.ID(), Decision: "maybe", DecidedBy: e.admin.ID})
	assert.ErrorIs(t, err, commands.ErrInvalidDecision)

	_, err = handler.Handle(ctx, commands.DecideBookingCommand{BookingID: 999, Decision: "approved", DecidedBy: e.admin.ID})
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)

	result, err := handler.Handle(ctx, commands.DecideBookingCommand{BookingID: first.ID(), Decision: "APPROVED", DecidedBy: e.admin.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingApproved, result.Status)
	assert.Equal(t, domain.RoomStatusBooked, result.RoomStatus)
	assert.Equal(t, domain.RoomStatusBooked, e.RoomStatus(e.room.ID()))

	_, err = handler.Handle(ctx, commands.DecideBookingCommand{BookingID: rival.ID(), Decision: "approved", DecidedBy: e.admin.ID})
	assert.ErrorIs(t, err, domain.ErrRoomAlreadyBooked)
	assert.Equal(t, domain.BookingPending, e.BookingStatus(rival.ID()))

	result, err = handler.Handle(ctx, commands.DecideBookingCommand{BookingID: rival.ID(), Decision: "rejected", DecidedBy: e.admin.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingRejected, result.Status)

	_, err = handler.Handle(ctx, commands.DecideBookingCommand{BookingID: rival.ID(), Decision: "approved", DecidedBy: e.admin.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	assert.Equal(t, []string{
		domain.RoutingKeyBookingApproved,
		domain.RoutingKeyRoomStatusChanged,
		domain.RoutingKeyBookingRejected,
	}, e.RoutingKeys())
}

func TestScheduleMaintenanceHandler(t *testing.T) {
	e := newEnv(t)
	handler := e.scheduleMaintenance()
	ctx := context.Background()

	future, err := handler.Handle(ctx, commands.ScheduleMaintenanceCommand{
		RoomID: e.room.ID(), Description: "repaint", StartDate: ft.At(12, 0), EndDate: ft.At(14, 0), RequestedBy: e.admin.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MaintenanceScheduled, future.Status)
	assert.Equal(t, domain.RoomStatusVacant, future.RoomStatus)

	started, err := handler.Handle(ctx, commands.ScheduleMaintenanceCommand{
		RoomID: e.room.ID(), Description: "burst pipe", StartDate: ft.At(9, 0), EndDate: ft.At(11, 0), RequestedBy: e.admin.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MaintenanceInProgress, started.Status)
	assert.Equal(t, domain.RoomStatusMaintenance, started.RoomStatus)
	assert.Equal(t, domain.RoomStatusMaintenance, e.RoomStatus(e.room.ID()))

	_, err = handler.Handle(ctx, commands.ScheduleMaintenanceCommand{
		RoomID: e.room.ID(), Description: "x", StartDate: ft.At(12, 0), EndDate: ft.At(13, 0), RequestedBy: e.lecturer.ID,
	})
	assert.ErrorIs(t, err, domain.ErrNotPermitted)

	_, err = handler.Handle(ctx, commands.ScheduleMaintenanceCommand{
		RoomID: e.room.ID(), StartDate: ft.At(12, 0), EndDate: ft.At(13, 0), RequestedBy: e.admin.ID,
	})
	assert.ErrorIs(t, err, domain.ErrDescriptionRequired)

	_, err = handler.Handle(ctx, commands.ScheduleMaintenanceCommand{
		RoomID: e.room.ID(), Description: "x", StartDate: ft.At(13, 0), EndDate: ft.At(12, 0), RequestedBy: e.admin.ID,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInterval)

	_, err = handler.Handle(ctx, commands.ScheduleMaintenanceCommand{
		RoomID: 999, Description: "x", StartDate: ft.At(12, 0), EndDate: ft.At(13, 0), RequestedBy: e.admin.ID,
	})
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestTransitionMaintenanceHandler(t *testing.T) {
	e := newEnv(t)
	m := e.Maintenance(e.room, ft.At(9, 0), ft.At(12, 0), domain.MaintenanceScheduled)
	handler := e.transitionMaintenance()
	ctx := context.Background()

	_, err := handler.Handle(ctx, commands.TransitionMaintenanceCommand{MaintenanceID: m.ID(), Action: "explode", RequestedBy: e.admin.ID})
	assert.ErrorIs(t, err, commands.ErrInvalidAction)

	_, err = handler.Handle(ctx, commands.TransitionMaintenanceCommand{MaintenanceID: m.ID(), Action: "start", RequestedBy: e.student.ID})
	assert.ErrorIs(t, err, domain.ErrNotPermitted)

	result, err := handler.Handle(ctx, commands.TransitionMaintenanceCommand{MaintenanceID: m.ID(), Action: "start", RequestedBy: e.admin.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.MaintenanceInProgress, result.Status)
	assert.Equal(t, domain.RoomStatusMaintenance, result.RoomStatus)

	result, err = handler.Handle(ctx, commands.TransitionMaintenanceCommand{MaintenanceID: m.ID(), Action: "complete", RequestedBy: e.admin.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.MaintenanceCompleted, result.Status)
	assert.Equal(t, domain.RoomStatusVacant, result.RoomStatus)

	_, err = handler.Handle(ctx, commands.TransitionMaintenanceCommand{MaintenanceID: m.ID(), Action: "cancel", RequestedBy: e.admin.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = handler.Handle(ctx, commands.TransitionMaintenanceCommand{MaintenanceID: 999, Action: "cancel", RequestedBy: e.admin.ID})
	assert.ErrorIs(t, err, domain.ErrMaintenanceNotFound)
}

func TestReconcileRoomHandler(t *testing.T) {
	e := newEnv(t)
	e.Booking(e.room, e.lecturer, ft.At(9, 0), ft.At(11, 0), domain.BookingApproved)
	handler := commands.NewReconcileRoomHandler(e.Repos.Users, e.reconciler)

	_, err := handler.Handle(context.Background(), commands.ReconcileRoomCommand{RoomID: e.room.ID(), RequestedBy: e.lecturer.ID})
	assert.ErrorIs(t, err, domain.ErrNotPermitted)

	outcome, err := handler.Handle(context.Background(), commands.ReconcileRoomCommand{RoomID: e.room.ID(), RequestedBy: e.admin.ID})
	require.NoError(t, err)
	assert.True(t, outcome.Changed)
	assert.Equal(t, domain.RoomStatusBooked, outcome.To)
	assert.Equal(t, domain.CauseActiveBooking, outcome.Cause)
}

func TestRegisterRoomHandler(t *testing.T) {
	e := newEnv(t)
	handler := commands.NewRegisterRoomHandler(e.Repos.Users, e.Repos.Rooms, e.clock)

	id, err := handler.Handle(context.Background(), commands.RegisterRoomCommand{
		Details:     domain.RoomDetails{Name: "Studio", Capacity: 12, Features: []string{"mirror"}},
		RequestedBy: e.admin.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoomStatusVacant, e.RoomStatus(id))

	_, err = handler.Handle(context.Background(), commands.RegisterRoomCommand{Details: domain.RoomDetails{Name: "X"}, RequestedBy: e.lecturer.ID})
	assert.ErrorIs(t, err, domain.ErrNotPermitted)

	_, err = handler.Handle(context.Background(), commands.RegisterRoomCommand{Details: domain.RoomDetails{Name: " "}, RequestedBy: e.admin.ID})
	assert.ErrorIs(t, err, domain.ErrRoomNameRequired)
}

func TestUpsertUserHandler(t *testing.T) {
	e := newEnv(t)
	handler := commands.NewUpsertUserHandler(e.Repos.Users)

	user, err := handler.Handle(context.Background(), commands.UpsertUserCommand{Name: " Grace ", Email: "Grace@Example.EDU", Role: "class_rep"})
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "grace@example.edu", user.Email)

	updated, err := handler.Handle(context.Background(), commands.UpsertUserCommand{ID: user.ID, Name: "Grace", Email: user.Email, Role: "lecturer"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, updated.ID)

	stored, err := e.Repos.Users.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleLecturer, stored.Role)

	_, err = handler.Handle(context.Background(), commands.UpsertUserCommand{Name: "x", Email: "x@example.edu", Role: "janitor"})
	assert.ErrorIs(t, err, domain.ErrUnknownRole)
}
