package commands

import (
	"context"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/services"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
)

// ReconcileRoomCommand asks for one room's status to be re-derived now.
type ReconcileRoomCommand struct {
	RoomID      int64
	RequestedBy int64
}

// ReconcileRoomHandler handles the ReconcileRoomCommand.
type ReconcileRoomHandler struct {
	users      domain.UserDirectory
	reconciler *services.Reconciler
}

// NewReconcileRoomHandler creates a new ReconcileRoomHandler.
func NewReconcileRoomHandler(users domain.UserDirectory, reconciler *services.Reconciler) *ReconcileRoomHandler {
	return &ReconcileRoomHandler{users: users, reconciler: reconciler}
}

// Handle executes the ReconcileRoomCommand.
func (h *ReconcileRoomHandler) Handle(ctx context.Context, cmd ReconcileRoomCommand) (*services.RoomOutcome, error) {
	if _, err := authorize(ctx, h.users, cmd.RequestedBy, canManageRooms); err != nil {
		return nil, err
	}
	outcome, err := h.reconciler.ReconcileRoom(ctx, cmd.RoomID)
	if err != nil {
		return nil, err
	}
	return &outcome, nil
}
