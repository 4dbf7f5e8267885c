package queries_test

import (
	"context"
	"testing"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/queries"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/services"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
	ft "github.com/felixgeelhaar/roomkeeper/internal/facilities/facilitiestest"
	sharedApplication "github.com/felixgeelhaar/roomkeeper/internal/shared/application"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRoomStatusHandler_ReportsDriftWithoutWriting(t *testing.T) {
	s := ft.NewStore(t)
	room := s.Room("LT-1")
	b := s.Booking(room, s.User(domain.RoleLecturer), ft.At(10, 0), ft.At(11, 0), domain.BookingApproved)
	handler := queries.NewGetRoomStatusHandler(s.Repos.Rooms,
		services.NewStatusDeriver(s.Repos.Bookings, s.Repos.Maintenance),
		sharedApplication.NewFixedClock(ft.At(10, 15)))

	dto, err := handler.Handle(context.Background(), queries.GetRoomStatusQuery{RoomID: room.ID()})

	require.NoError(t, err)
	assert.Equal(t, "VACANT", dto.Stored)
	assert.Equal(t, "BOOKED", dto.Derived)
	assert.Equal(t, string(domain.CauseActiveBooking), dto.Cause)
	assert.Equal(t, b.ID(), dto.SourceID)
	assert.True(t, dto.Drift)
	assert.Equal(t, domain.RoomStatusVacant, s.RoomStatus(room.ID()))

	_, err = handler.Handle(context.Background(), queries.GetRoomStatusQuery{RoomID: 404})
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestGetRoomScheduleHandler(t *testing.T) {
	s := ft.NewStore(t)
	room := s.Room("LT-1")
	user := s.User(domain.RoleLecturer)
	s.Booking(room, user, ft.At(8, 0), ft.At(9, 0), domain.BookingApproved)
	later := s.Booking(room, user, ft.At(14, 0), ft.At(15, 0), domain.BookingPending)
	sooner := s.Booking(room, user, ft.At(10, 0), ft.At(11, 0), domain.BookingApproved)
	s.Booking(room, user, ft.At(12, 0), ft.At(13, 0), domain.BookingRejected)
	open := s.Maintenance(room, ft.At(16, 0), ft.At(17, 0), domain.MaintenanceScheduled)
	s.Maintenance(room, ft.At(18, 0), ft.At(19, 0), domain.MaintenanceCancelled)

	handler := queries.NewGetRoomScheduleHandler(s.Repos.Rooms, s.Repos.Bookings, s.Repos.Maintenance,
		sharedApplication.NewFixedClock(ft.At(9, 30)))
	dto, err := handler.Handle(context.Background(), queries.GetRoomScheduleQuery{RoomID: room.ID()})

	require.NoError(t, err)
	assert.Equal(t, "LT-1", dto.Room.Name)
	require.Len(t, dto.Bookings, 2)
	assert.Equal(t, sooner.ID(), dto.Bookings[0].ID)
	assert.Equal(t, later.ID(), dto.Bookings[1].ID)
	assert.Equal(t, "pending", dto.Bookings[1].Status)
	require.Len(t, dto.Maintenance, 1)
	assert.Equal(t, open.ID(), dto.Maintenance[0].ID)
}

func TestListRoomsHandler(t *testing.T) {
	s := ft.NewStore(t)
	a := s.Room("A")
	s.Room("B")
	s.Booking(a, s.User(domain.RoleAdmin), ft.At(10, 0), ft.At(11, 0), domain.BookingApproved)
	reconciler := services.NewReconciler(s.Repos.Rooms, s.Repos.Bookings, s.Repos.Maintenance, s.Outbox, s.UoW,
		sharedApplication.NewFixedClock(ft.At(10, 0)), nil, services.DefaultReconcilerConfig(), nil, nil)
	_, err := reconciler.ReconcileRoom(context.Background(), a.ID())
	require.NoError(t, err)

	handler := queries.NewListRoomsHandler(s.Repos.Rooms)

	all, err := handler.Handle(context.Background(), queries.ListRoomsQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	booked, err := handler.Handle(context.Background(), queries.ListRoomsQuery{Status: "booked"})
	require.NoError(t, err)
	require.Len(t, booked, 1)
	assert.Equal(t, a.ID(), booked[0].ID)

	_, err = handler.Handle(context.Background(), queries.ListRoomsQuery{Status: "occupied"})
	assert.ErrorIs(t, err, domain.ErrUnknownStatus)
}

func TestListUserBookingsHandler(t *testing.T) {
	s := ft.NewStore(t)
	room := s.Room("A")
	user := s.User(domain.RoleClassRep)
	other := s.User(domain.RoleClassRep)
	s.Booking(room, user, ft.At(10, 0), ft.At(11, 0), domain.BookingPending)
	s.Booking(room, other, ft.At(12, 0), ft.At(13, 0), domain.BookingPending)

	handler := queries.NewListUserBookingsHandler(s.Repos.Users, s.Repos.Bookings)

	bookings, err := handler.Handle(context.Background(), queries.ListUserBookingsQuery{UserID: user.ID})
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, user.ID, bookings[0].UserID)

	_, err = handler.Handle(context.Background(), queries.ListUserBookingsQuery{UserID: 404})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
