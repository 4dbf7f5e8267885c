package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoom(t *testing.T) {
	room, err := NewRoom(RoomDetails{
		Name:     " LT-101 ",
		Capacity: 120,
		Building: "Main",
		Features: []string{"projector", " projector", "", "whiteboard"},
	}, at(8, 0))
	require.NoError(t, err)

	assert.Equal(t, "LT-101", room.Name())
	assert.Equal(t, RoomStatusVacant, room.Status())
	assert.Equal(t, []string{"projector", "whiteboard"}, room.Features())

	_, err = NewRoom(RoomDetails{Name: ""}, at(8, 0))
	assert.ErrorIs(t, err, ErrRoomNameRequired)

	_, err = NewRoom(RoomDetails{Name: "x", Capacity: -1}, at(8, 0))
	assert.ErrorIs(t, err, ErrInvalidCapacity)
}

func TestRoom_ApplyDerivation(t *testing.T) {
	room := RehydrateRoom(5, RoomDetails{Name: "LT-101"}, RoomStatusVacant, at(8, 0), at(8, 0))
	booked := DeriveStatus(5, at(10, 45), Snapshot{
		Bookings: []*Booking{approvedBooking(7, 5, at(10, 30), at(11, 0))},
	})

	changed, err := room.ApplyDerivation(booked)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, RoomStatusBooked, room.Status())
	assert.Equal(t, at(10, 45), room.UpdatedAt())

	require.Len(t, room.DomainEvents(), 1)
	event := room.DomainEvents()[0].(*RoomStatusChanged)
	assert.Equal(t, RoomStatusVacant, event.From)
	assert.Equal(t, RoomStatusBooked, event.To)
	assert.Equal(t, CauseActiveBooking, event.Cause)
	assert.Equal(t, int64(7), event.SourceID)

	t.Run("same status is a no-op", func(t *testing.T) {
		room.ClearDomainEvents()
		changed, err := room.ApplyDerivation(booked)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Empty(t, room.DomainEvents())
	})

	t.Run("derivation for another room is refused", func(t *testing.T) {
		other := DeriveStatus(6, at(10, 45), Snapshot{})
		_, err := room.ApplyDerivation(other)
		assert.ErrorIs(t, err, ErrDerivationMismatch)
	})
}
