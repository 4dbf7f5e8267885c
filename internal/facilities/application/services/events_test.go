package services_test

import (
	"context"
	"testing"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/services"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
	ft "github.com/felixgeelhaar/roomkeeper/internal/facilities/facilitiestest"
	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/roomkeeper/pkg/observability"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataFromContext(t *testing.T) {
	corr := uuid.New()
	ctx := observability.WithCorrelationID(context.Background(), corr.String())

	meta := services.MetadataFromContext(ctx, 7)
	assert.Equal(t, int64(7), meta.UserID)
	assert.Equal(t, corr, meta.CorrelationID)

	meta = services.MetadataFromContext(context.Background(), 7)
	assert.NotEqual(t, corr, meta.CorrelationID)
}

func TestRecordEvents(t *testing.T) {
	repo := outbox.NewInMemoryRepository()

	b, err := domain.NewBooking(1, 2, ft.At(10, 0), ft.At(11, 0), "exam", true, ft.Epoch)
	require.NoError(t, err)
	b.AssignID(5)
	b.RecordCreated()

	require.NoError(t, services.RecordEvents(context.Background(), repo, services.MetadataFromContext(context.Background(), 2), b))

	assert.Equal(t, []string{domain.RoutingKeyBookingRequested, domain.RoutingKeyBookingApproved}, repo.RoutingKeys())
	assert.Empty(t, b.DomainEvents())
	require.NoError(t, services.RecordEvents(context.Background(), repo, services.MetadataFromContext(context.Background(), 2), b))
	assert.Len(t, repo.Messages(), 2)
}
