package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/services"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
	sharedApplication "github.com/felixgeelhaar/roomkeeper/internal/shared/application"
	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/outbox"
)

// ErrInvalidDecision is returned for decisions other than approved or rejected.
var ErrInvalidDecision = errors.New("decision must be approved or rejected")

// DecideBookingCommand approves or rejects a pending booking.
type DecideBookingCommand struct {
	BookingID int64
	Decision  string
	DecidedBy int64
}

// DecideBookingResult contains the booking's new status and the room's status afterwards.
type DecideBookingResult struct {
	BookingID  int64
	Status     domain.BookingStatus
	RoomStatus domain.RoomStatus
}

// DecideBookingHandler handles the DecideBookingCommand.
type DecideBookingHandler struct {
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

// NewDecideBookingHandler creates a new DecideBookingHandler.
func NewDecideBookingHandler(
	users domain.UserDirectory,
	rooms domain.RoomRepository,
	bookings domain.BookingRepository,
	validator *services.ConflictValidator,
	reconciler *services.Reconciler,
	locker services.RoomLocker,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	clock sharedApplication.Clock,
) *DecideBookingHandler {
	return &DecideBookingHandler{
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

// Handle executes the DecideBookingCommand. Approval re-checks conflicts
// under the room lock, so two overlapping pending requests cannot both be approved.
func (h *DecideBookingHandler) Handle(ctx context.Context, cmd DecideBookingCommand) (*DecideBookingResult, error) {
	decision, err := domain.ParseBookingStatus(cmd.Decision)
	if err != nil || (decision != domain.BookingApproved && decision != domain.BookingRejected) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDecision, cmd.Decision)
	}

	decider, err := authorize(ctx, h.users, cmd.DecidedBy, func(c domain.Capabilities) bool { return c.CanDecide })
	if err != nil {
		return nil, err
	}

	current, err := h.bookings.FindByID(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	roomID := current.RoomID()

	var result *DecideBookingResult
	err = withRoomLock(ctx, h.locker, roomID, func() error {
		return sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
			booking, err := h.bookings.FindByID(txCtx, cmd.BookingID)
			if err != nil {
				return err
			}

			now := h.clock.Now()
			if decision == domain.BookingApproved {
				if booking.Status() == domain.BookingPending {
					if err := h.validator.ValidateWindow(txCtx, roomID, booking.Window(), booking.ID()); err != nil {
						return err
					}
				}
				err = booking.Approve(now)
			} else {
				err = booking.Reject(now)
			}
			if err != nil {
				return err
			}

			if err := h.bookings.SaveStatus(txCtx, booking); err != nil {
				return err
			}
			if err := services.RecordEvents(txCtx, h.outboxRepo, services.MetadataFromContext(txCtx, decider.ID), booking); err != nil {
				return err
			}

			room, err := h.rooms.FindByID(txCtx, roomID)
			if err != nil {
				return err
			}
			result = &DecideBookingResult{BookingID: booking.ID(), Status: booking.Status(), RoomStatus: room.Status()}

			if booking.IsApproved() {
				outcome, err := h.reconciler.ReconcileRoom(txCtx, roomID)
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
	return result, nil
}
