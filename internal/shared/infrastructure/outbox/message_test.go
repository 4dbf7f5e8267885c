package outbox

import (
	"testing"
	"time"

	"github.com/felixgeelhaar/roomkeeper/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roomFlipped struct {
	domain.BaseEvent
	To string `json:"to"`
}

func newRoomFlipped(roomID int64, to string) *roomFlipped {
	return &roomFlipped{
		BaseEvent: domain.NewBaseEvent(roomID, "Room", "facilities.room.status_changed",
			time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)),
		To: to,
	}
}

func TestNewMessage(t *testing.T) {
	t.Run("copies event envelope", func(t *testing.T) {
		event := newRoomFlipped(7, "BOOKED")

		msg, err := NewMessage(event)

		require.NoError(t, err)
		assert.Equal(t, event.EventID(), msg.EventID)
		assert.Equal(t, "Room", msg.AggregateType)
		assert.Equal(t, int64(7), msg.AggregateID)
		assert.Equal(t, "facilities.room.status_changed", msg.EventType)
		assert.Equal(t, "facilities.room.status_changed", msg.RoutingKey)
		assert.Equal(t, event.OccurredAt(), msg.CreatedAt)
		assert.Equal(t, int64(0), msg.ID)
		assert.Nil(t, msg.PublishedAt)
		assert.Zero(t, msg.RetryCount)
	})

	t.Run("serializes payload and metadata", func(t *testing.T) {
		event := newRoomFlipped(7, "MAINTENANCE")
		correlation := uuid.New()
		event.SetMetadata(domain.EventMetadata{CorrelationID: correlation, CausationID: uuid.New(), UserID: 3})

		msg, err := NewMessage(event)

		require.NoError(t, err)
		assert.JSONEq(t, `{"to":"MAINTENANCE"}`, string(msg.Payload))
		assert.Contains(t, string(msg.Metadata), correlation.String())
		assert.Contains(t, string(msg.Metadata), `"user_id":3`)
	})
}

func TestMessagesFromEvents_PreservesOrder(t *testing.T) {
	events := []domain.DomainEvent{newRoomFlipped(1, "BOOKED"), newRoomFlipped(2, "VACANT")}

	msgs, err := MessagesFromEvents(events)

	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, int64(1), msgs[0].AggregateID)
	assert.Equal(t, int64(2), msgs[1].AggregateID)
}

func TestMessage_CanRetry(t *testing.T) {
	tests := []struct {
		name       string
		retryCount int
		maxRetries int
		want       bool
	}{
		{"below max", 2, 5, true},
		{"fresh message", 0, 3, true},
		{"at max", 5, 5, false},
		{"beyond max", 10, 5, false},
		{"retries disabled", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &Message{RetryCount: tt.retryCount}
			assert.Equal(t, tt.want, msg.CanRetry(tt.maxRetries))
		})
	}
}

func TestMessage_IsPublished(t *testing.T) {
	msg := &Message{}
	assert.False(t, msg.IsPublished())

	now := time.Now()
	msg.PublishedAt = &now
	assert.True(t, msg.IsPublished())
}
