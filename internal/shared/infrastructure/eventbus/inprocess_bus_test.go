package eventbus_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/eventbus"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envelope(t *testing.T, routingKey string, body any) []byte {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	raw, err := json.Marshal(eventbus.ConsumedEvent{
		EventID:       uuid.New(),
		AggregateID:   12,
		AggregateType: "Booking",
		RoutingKey:    routingKey,
		OccurredAt:    time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		Payload:       payload,
		Metadata:      eventbus.EventMetadata{UserID: 5, CorrelationID: "corr"},
	})
	require.NoError(t, err)
	return raw
}

func TestInProcessEventBus_Publish(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(nil)
	consumer := &recordingConsumer{eventTypes: []string{"facilities.booking.approved"}}
	bus.RegisterConsumer(consumer)

	err := bus.Publish(context.Background(), "facilities.booking.approved",
		envelope(t, "facilities.booking.approved", map[string]int64{"room_id": 3}))

	require.NoError(t, err)
	require.Equal(t, 1, consumer.received())
	got := consumer.events[0]
	assert.Equal(t, int64(12), got.AggregateID)
	assert.Equal(t, int64(5), got.Metadata.UserID)

	var body struct {
		RoomID int64 `json:"room_id"`
	}
	require.NoError(t, got.DecodePayload(&body))
	assert.Equal(t, int64(3), body.RoomID)
}

func TestInProcessEventBus_ConsumerErrorIsReturned(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(nil)
	boom := errors.New("reconcile failed")
	bus.RegisterConsumer(&recordingConsumer{eventTypes: []string{"facilities.booking.completed"}, err: boom})

	err := bus.Publish(context.Background(), "facilities.booking.completed", envelope(t, "facilities.booking.completed", struct{}{}))

	assert.ErrorIs(t, err, boom)
}

func TestInProcessEventBus_UndecodableEnvelopeIsDropped(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(nil)
	consumer := &recordingConsumer{eventTypes: []string{"x"}}
	bus.RegisterConsumer(consumer)

	assert.NoError(t, bus.Publish(context.Background(), "x", []byte("not json")))
	assert.Zero(t, consumer.received())
	assert.NoError(t, bus.Close())
	assert.Equal(t, 1, bus.Registry().ConsumerCount())
}
