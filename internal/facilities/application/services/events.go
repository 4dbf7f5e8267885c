package services

import (
	"context"

	sharedApplication "github.com/felixgeelhaar/roomkeeper/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/roomkeeper/internal/shared/domain"
	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/roomkeeper/pkg/observability"
	"github.com/google/uuid"
)

// MetadataFromContext builds event metadata for userID, continuing the
// request's correlation chain when the context carries one.
func MetadataFromContext(ctx context.Context, userID int64) sharedDomain.EventMetadata {
	correlationID, err := uuid.Parse(observability.CorrelationIDFromContext(ctx))
	if err != nil {
		correlationID = uuid.Nil
	}
	return sharedApplication.NewEventMetadata(userID, correlationID)
}

// RecordEvents writes the aggregates' pending events to the outbox in the
// caller's unit of work and clears them.
func RecordEvents(ctx context.Context, repo outbox.Repository, meta sharedDomain.EventMetadata, aggregates ...sharedDomain.AggregateRoot) error {
	var events []sharedDomain.DomainEvent
	for _, agg := range aggregates {
		events = append(events, agg.DomainEvents()...)
	}
	if len(events) == 0 {
		return nil
	}

	sharedApplication.ApplyEventMetadata(events, meta)
	msgs, err := outbox.MessagesFromEvents(events)
	if err != nil {
		return err
	}
	if err := repo.SaveBatch(ctx, msgs); err != nil {
		return err
	}

	for _, agg := range aggregates {
		agg.ClearDomainEvents()
	}
	return nil
}
