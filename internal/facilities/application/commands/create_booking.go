package commands

import (
	"context"
	"time"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/services"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
	sharedApplication "github.com/felixgeelhaar/roomkeeper/internal/shared/application"
	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/outbox"
)

// CreateBookingCommand contains the data needed to request a room.
type CreateBookingCommand struct {
	RoomID    int64
	UserID    int64
	StartTime time.Time
	EndTime   time.Time
	Purpose   string
}

// CreateBookingResult contains the stored booking and the room's status afterwards.
type CreateBookingResult struct {
	BookingID  int64
	Status     domain.BookingStatus
	RoomStatus domain.RoomStatus
}

// CreateBookingHandler handles the CreateBookingCommand.
type CreateBookingHandler struct {
	users      domain.UserDirectory
	rooms      domain.RoomRepository
	bookings   domain.BookingRepository
	validator  *services.ConflictValidator
	reconciler *services.Reconciler
	locker     services.RoomLocker
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
	clock      sharedApplication.Clock
}

// NewCreateBookingHandler creates a new CreateBookingHandler.
func NewCreateBookingHandler(
	users domain.UserDirectory,
	rooms domain.RoomRepository,
	bookings domain.BookingRepository,
	validator *services.ConflictValidator,
	reconciler *services.Reconciler,
	locker services.RoomLocker,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	clock sharedApplication.Clock,
) *CreateBookingHandler {
	return &CreateBookingHandler{
		users:      users,
		rooms:      rooms,
		bookings:   bookings,
		validator:  validator,
		reconciler: reconciler,
		locker:     locker,
		outboxRepo: outboxRepo,
		uow:        uow,
		clock:      clock,
	}
}

// Handle executes the CreateBookingCommand. Bookings by users whose role
// auto-approves are stored approved and the room is re-derived right away.
func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*CreateBookingResult, error) {
	user, err := authorize(ctx, h.users, cmd.UserID, func(c domain.Capabilities) bool { return c.CanBook })
	if err != nil {
		return nil, err
	}

	booking, err := domain.NewBooking(cmd.RoomID, user.ID, cmd.StartTime, cmd.EndTime, cmd.Purpose, user.Capabilities().AutoApprove, h.clock.Now())
	if err != nil {
		return nil, err
	}

	room, err := h.rooms.FindByID(ctx, cmd.RoomID)
	if err != nil {
		return nil, err
	}

	result := &CreateBookingResult{RoomStatus: room.Status()}
	err = withRoomLock(ctx, h.locker, cmd.RoomID, func() error {
		return sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
			if err := h.validator.ValidateWindow(txCtx, cmd.RoomID, booking.Window(), 0); err != nil {
				return err
			}
			if err := h.bookings.Create(txCtx, booking); err != nil {
				return err
			}
			booking.RecordCreated()
			if err := services.RecordEvents(txCtx, h.outboxRepo, services.MetadataFromContext(txCtx, user.ID), booking); err != nil {
				return err
			}

			if booking.IsApproved() {
				outcome, err := h.reconciler.ReconcileRoom(txCtx, cmd.RoomID)
				if err != nil {
					return err
				}
				result.RoomStatus = outcome.To
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	result.BookingID = booking.ID()
	result.Status = booking.Status()
	return result, nil
}
