package commands

import (
	"context"
	"time"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/services"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
	sharedApplication "github.com/felixgeelhaar/roomkeeper/internal/shared/application"
	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/outbox"
)

// ScheduleMaintenanceCommand takes a room out of service for a window.
type ScheduleMaintenanceCommand struct {
	RoomID      int64
	Description string
	StartDate   time.Time
	EndDate     time.Time
	RequestedBy int64
}

// MaintenanceResult contains the maintenance state and the room's status afterwards.
type MaintenanceResult struct {
	MaintenanceID int64
	Status        domain.MaintenanceStatus
	RoomStatus    domain.RoomStatus
}

// ScheduleMaintenanceHandler handles the ScheduleMaintenanceCommand.
type ScheduleMaintenanceHandler struct {
	users       domain.UserDirectory
	rooms       domain.RoomRepository
	maintenance domain.MaintenanceRepository
	reconciler  *services.Reconciler
	locker      services.RoomLocker
	outboxRepo  outbox.Repository
	uow         sharedApplication.UnitOfWork
	clock       sharedApplication.Clock
}

// NewScheduleMaintenanceHandler creates a new ScheduleMaintenanceHandler.
func NewScheduleMaintenanceHandler(
	users domain.UserDirectory,
	rooms domain.RoomRepository,
	maintenance domain.MaintenanceRepository,
	reconciler *services.Reconciler,
	locker services.RoomLocker,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	clock sharedApplication.Clock,
) *ScheduleMaintenanceHandler {
	return &ScheduleMaintenanceHandler{
		users:       users,
		rooms:       rooms,
		maintenance: maintenance,
		reconciler:  reconciler,
		locker:      locker,
		outboxRepo:  outboxRepo,
		uow:         uow,
		clock:       clock,
	}
}

// Handle executes the ScheduleMaintenanceCommand. A window that has already
// started is stored in-progress and the room turns MAINTENANCE immediately.
func (h *ScheduleMaintenanceHandler) Handle(ctx context.Context, cmd ScheduleMaintenanceCommand) (*MaintenanceResult, error) {
	requester, err := authorize(ctx, h.users, cmd.RequestedBy, canManageRooms)
	if err != nil {
		return nil, err
	}

	m, err := domain.NewMaintenance(cmd.RoomID, cmd.Description, cmd.StartDate, cmd.EndDate, h.clock.Now())
	if err != nil {
		return nil, err
	}
	if _, err := h.rooms.FindByID(ctx, cmd.RoomID); err != nil {
		return nil, err
	}

	var result *MaintenanceResult
	err = withRoomLock(ctx, h.locker, cmd.RoomID, func() error {
		return sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
			if err := h.maintenance.Create(txCtx, m); err != nil {
				return err
			}
			m.RecordCreated()
			if err := services.RecordEvents(txCtx, h.outboxRepo, services.MetadataFromContext(txCtx, requester.ID), m); err != nil {
				return err
			}

			outcome, err := h.reconciler.ReconcileRoom(txCtx, cmd.RoomID)
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
