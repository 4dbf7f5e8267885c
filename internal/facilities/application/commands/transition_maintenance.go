package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/services"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
	sharedApplication "github.com/felixgeelhaar/roomkeeper/internal/shared/application"
	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/outbox"
)

// MaintenanceAction names a maintenance transition.
type MaintenanceAction string

const (
	MaintenanceActionStart    MaintenanceAction = "start"
	MaintenanceActionComplete MaintenanceAction = "complete"
	MaintenanceActionCancel   MaintenanceAction = "cancel"
)

// ErrInvalidAction is returned for unknown maintenance actions.
var ErrInvalidAction = errors.New("action must be start, complete or cancel")

// TransitionMaintenanceCommand moves maintenance through its lifecycle.
type TransitionMaintenanceCommand struct {
	MaintenanceID int64
	Action        string
	RequestedBy   int64
}

// TransitionMaintenanceHandler handles the TransitionMaintenanceCommand.
type TransitionMaintenanceHandler struct {
	users       domain.UserDirectory
	maintenance domain.MaintenanceRepository
	reconciler  *services.Reconciler
	locker      services.RoomLocker
	outboxRepo  outbox.Repository
	uow         sharedApplication.UnitOfWork
	clock       sharedApplication.Clock
}

// NewTransitionMaintenanceHandler creates a new TransitionMaintenanceHandler.
func NewTransitionMaintenanceHandler(
	users domain.UserDirectory,
	maintenance domain.MaintenanceRepository,
	reconciler *services.Reconciler,
	locker services.RoomLocker,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	clock sharedApplication.Clock,
) *TransitionMaintenanceHandler {
	return &TransitionMaintenanceHandler{
		users:       users,
		maintenance: maintenance,
		reconciler:  reconciler,
		locker:      locker,
		outboxRepo:  outboxRepo,
		uow:         uow,
		clock:       clock,
	}
}

// Handle executes the TransitionMaintenanceCommand and re-derives the room.
func (h *TransitionMaintenanceHandler) Handle(ctx context.Context, cmd TransitionMaintenanceCommand) (*MaintenanceResult, error) {
	action := MaintenanceAction(strings.ToLower(strings.TrimSpace(cmd.Action)))
	switch action {
	case MaintenanceActionStart, MaintenanceActionComplete, MaintenanceActionCancel:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, cmd.Action)
	}

	requester, err := authorize(ctx, h.users, cmd.RequestedBy, canManageRooms)
	if err != nil {
		return nil, err
	}

	current, err := h.maintenance.FindByID(ctx, cmd.MaintenanceID)
	if err != nil {
		return nil, err
	}
	roomID := current.RoomID()

	var result *MaintenanceResult
	err = withRoomLock(ctx, h.locker, roomID, func() error {
		return sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
			m, err := h.maintenance.FindByID(txCtx, cmd.MaintenanceID)
			if err != nil {
				return err
			}

			now := h.clock.Now()
			switch action {
			case MaintenanceActionStart:
				err = m.Start(now)
			case MaintenanceActionComplete:
				err = m.Complete(now)
			case MaintenanceActionCancel:
				err = m.Cancel(now)
			}
			if err != nil {
				return err
			}

			if err := h.maintenance.SaveStatus(txCtx, m); err != nil {
				return err
			}
			if err := services.RecordEvents(txCtx, h.outboxRepo, services.MetadataFromContext(txCtx, requester.ID), m); err != nil {
				return err
			}

			outcome, err := h.reconciler.ReconcileRoom(txCtx, roomID)
			if err != nil {
				return err
			}
			result = &MaintenanceResult{MaintenanceID: m.ID(), Status: m.Status(), RoomStatus: outcome.To}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
