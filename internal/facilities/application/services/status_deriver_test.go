package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/services"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
	ft "github.com/felixgeelhaar/roomkeeper/internal/facilities/facilitiestest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusDeriver_Derive(t *testing.T) {
	type seed func(s *ft.Store, room *domain.Room, user *domain.User)

	tests := []struct {
		name      string
		seed      seed
		now       time.Time
		want      domain.RoomStatus
		wantCause domain.StatusCause
	}{
		{
			name:      "nothing scheduled",
			seed:      func(*ft.Store, *domain.Room, *domain.User) {},
			now:       ft.At(10, 0),
			want:      domain.RoomStatusVacant,
			wantCause: domain.CauseIdle,
		},
		{
			name: "maintenance wins over active booking",
			seed: func(s *ft.Store, room *domain.Room, user *domain.User) {
				s.Booking(room, user, ft.At(9, 0), ft.At(11, 0), domain.BookingApproved)
				s.Maintenance(room, ft.At(9, 30), ft.At(10, 30), domain.MaintenanceInProgress)
			},
			now:       ft.At(10, 0),
			want:      domain.RoomStatusMaintenance,
			wantCause: domain.CauseActiveMaintenance,
		},
		{
			name: "scheduled maintenance is ignored",
			seed: func(s *ft.Store, room *domain.Room, _ *domain.User) {
				s.Maintenance(room, ft.At(9, 0), ft.At(11, 0), domain.MaintenanceScheduled)
			},
			now:       ft.At(10, 0),
			want:      domain.RoomStatusVacant,
			wantCause: domain.CauseIdle,
		},
		{
			name: "active approved booking",
			seed: func(s *ft.Store, room *domain.Room, user *domain.User) {
				s.Booking(room, user, ft.At(10, 0), ft.At(11, 0), domain.BookingApproved)
			},
			now:       ft.At(10, 0),
			want:      domain.RoomStatusBooked,
			wantCause: domain.CauseActiveBooking,
		},
		{
			name: "booking ended exactly now",
			seed: func(s *ft.Store, room *domain.Room, user *domain.User) {
				s.Booking(room, user, ft.At(9, 0), ft.At(10, 0), domain.BookingApproved)
			},
			now:       ft.At(10, 0),
			want:      domain.RoomStatusVacant,
			wantCause: domain.CauseIdle,
		},
		{
			name: "approved booking starting in exactly an hour",
			seed: func(s *ft.Store, room *domain.Room, user *domain.User) {
				s.Booking(room, user, ft.At(11, 0), ft.At(12, 0), domain.BookingApproved)
			},
			now:       ft.At(10, 0),
			want:      domain.RoomStatusBooked,
			wantCause: domain.CauseUpcomingBooking,
		},
		{
			name: "approved booking starting after the look-ahead",
			seed: func(s *ft.Store, room *domain.Room, user *domain.User) {
				s.Booking(room, user, ft.At(11, 1), ft.At(12, 0), domain.BookingApproved)
			},
			now:       ft.At(10, 0),
			want:      domain.RoomStatusVacant,
			wantCause: domain.CauseIdle,
		},
		{
			name: "pending booking is ignored",
			seed: func(s *ft.Store, room *domain.Room, user *domain.User) {
				s.Booking(room, user, ft.At(10, 0), ft.At(11, 0), domain.BookingPending)
			},
			now:       ft.At(10, 30),
			want:      domain.RoomStatusVacant,
			wantCause: domain.CauseIdle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ft.NewStore(t)
			room := s.Room("LT-1")
			tt.seed(s, room, s.User(domain.RoleLecturer))

			deriver := services.NewStatusDeriver(s.Repos.Bookings, s.Repos.Maintenance)
			d, err := deriver.Derive(context.Background(), room.ID(), tt.now)

			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Status())
			assert.Equal(t, tt.wantCause, d.Cause())
			assert.Equal(t, room.ID(), d.RoomID())
		})
	}
}

func TestStatusDeriver_DoesNotWrite(t *testing.T) {
	s := ft.NewStore(t)
	room := s.Room("LT-1")
	s.Booking(room, s.User(domain.RoleAdmin), ft.At(10, 0), ft.At(11, 0), domain.BookingApproved)

	deriver := services.NewStatusDeriver(s.Repos.Bookings, s.Repos.Maintenance)
	for i := 0; i < 2; i++ {
		d, err := deriver.Derive(context.Background(), room.ID(), ft.At(10, 15))
		require.NoError(t, err)
		assert.Equal(t, domain.RoomStatusBooked, d.Status())
	}

	assert.Equal(t, domain.RoomStatusVacant, s.RoomStatus(room.ID()))
	assert.Empty(t, s.RoutingKeys())
}
