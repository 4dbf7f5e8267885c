package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/services"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/roomkeeper/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockReconciler struct {
	mock.Mock
}

func (m *mockReconciler) ReconcileRoom(ctx context.Context, roomID int64) (services.RoomOutcome, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).(services.RoomOutcome), args.Error(1)
}

func event(t *testing.T, key string, payload any) *eventbus.ConsumedEvent {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return &eventbus.ConsumedEvent{RoutingKey: key, Payload: body}
}

func TestStatusRefreshConsumer_ReconcilesRoomFromPayload(t *testing.T) {
	reconciler := new(mockReconciler)
	reconciler.On("ReconcileRoom", mock.Anything, int64(7)).
		Return(services.RoomOutcome{RoomID: 7, To: domain.RoomStatusBooked, Changed: true}, nil)
	consumer := NewStatusRefreshConsumer(reconciler, nil)

	evt := event(t, domain.RoutingKeyBookingApproved, map[string]any{"booking_id": 3, "room_id": 7})
	evt.Metadata.CorrelationID = "corr-1"

	require.NoError(t, consumer.Handle(context.Background(), evt))
	reconciler.AssertExpectations(t)

	ctx := reconciler.Calls[0].Arguments.Get(0).(context.Context)
	assert.Equal(t, "corr-1", observability.CorrelationIDFromContext(ctx))
}

func TestStatusRefreshConsumer_Failures(t *testing.T) {
	reconciler := new(mockReconciler)
	reconciler.On("ReconcileRoom", mock.Anything, int64(9)).
		Return(services.RoomOutcome{}, domain.ErrStoreUnavailable)
	consumer := NewStatusRefreshConsumer(reconciler, nil)

	err := consumer.Handle(context.Background(), event(t, domain.RoutingKeyMaintenanceScheduled, map[string]any{"room_id": 9}))
	var recErr *domain.ReconciliationError
	require.True(t, errors.As(err, &recErr))
	assert.Equal(t, int64(9), recErr.RoomID)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	bad := &eventbus.ConsumedEvent{RoutingKey: domain.RoutingKeyBookingApproved, Payload: json.RawMessage(`[`)}
	assert.Error(t, consumer.Handle(context.Background(), bad))

	assert.NoError(t, consumer.Handle(context.Background(), event(t, domain.RoutingKeyBookingApproved, map[string]any{})))
	reconciler.AssertNumberOfCalls(t, "ReconcileRoom", 1)
}

func TestStatusRefreshConsumer_DoesNotConsumeStatusChanges(t *testing.T) {
	consumer := NewStatusRefreshConsumer(new(mockReconciler), nil)

	assert.NotContains(t, consumer.EventTypes(), domain.RoutingKeyRoomStatusChanged)

	registry := eventbus.NewConsumerRegistry(nil)
	registry.Register(consumer)
	assert.Empty(t, registry.GetConsumers(domain.RoutingKeyRoomStatusChanged))
	assert.Len(t, registry.GetConsumers(domain.RoutingKeyBookingCompleted), 1)
}
