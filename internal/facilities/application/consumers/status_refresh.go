// Package consumers reacts to facilities events relayed from the outbox.
package consumers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/services"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/roomkeeper/pkg/observability"
)

// RoomReconciler re-derives a single room.
type RoomReconciler interface {
	ReconcileRoom(ctx context.Context, roomID int64) (services.RoomOutcome, error)
}

// StatusRefreshConsumer re-derives a room whenever a booking or maintenance
// event for it is delivered. Room status events are not consumed, so a
// refresh never triggers another refresh.
type StatusRefreshConsumer struct {
	reconciler RoomReconciler
	logger     *slog.Logger
}

// NewStatusRefreshConsumer creates a StatusRefreshConsumer.
func NewStatusRefreshConsumer(reconciler RoomReconciler, logger *slog.Logger) *StatusRefreshConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusRefreshConsumer{reconciler: reconciler, logger: logger}
}

// EventTypes implements eventbus.EventConsumer.
func (c *StatusRefreshConsumer) EventTypes() []string {
	return []string{
		domain.RoutingKeyBookingApproved,
		domain.RoutingKeyBookingCompleted,
		domain.RoutingKeyMaintenanceScheduled,
		domain.RoutingKeyMaintenanceStatusChanged,
	}
}

type roomRef struct {
	RoomID int64 `json:"room_id"`
}

// Handle implements eventbus.EventConsumer.
func (c *StatusRefreshConsumer) Handle(ctx context.Context, event *eventbus.ConsumedEvent) error {
	var ref roomRef
	if err := event.DecodePayload(&ref); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.RoutingKey, err)
	}
	if ref.RoomID == 0 {
		c.logger.WarnContext(ctx, "event without room id", "routing_key", event.RoutingKey, "event_id", event.EventID)
		return nil
	}

	if event.Metadata.CorrelationID != "" {
		ctx = observability.WithCorrelationID(ctx, event.Metadata.CorrelationID)
	}
	outcome, err := c.reconciler.ReconcileRoom(ctx, ref.RoomID)
	if err != nil {
		return &domain.ReconciliationError{RoomID: ref.RoomID, Cause: err}
	}

	c.logger.DebugContext(ctx, "room status refreshed",
		"room_id", ref.RoomID,
		"routing_key", event.RoutingKey,
		"status", outcome.To,
		"changed", outcome.Changed,
	)
	return nil
}
