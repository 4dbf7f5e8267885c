package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
	sharedApplication "github.com/felixgeelhaar/roomkeeper/internal/shared/application"
	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/roomkeeper/pkg/observability"
	"golang.org/x/sync/errgroup"
)

// SweepKind identifies which sweep produced a report.
type SweepKind string

const (
	SweepStatus    SweepKind = "status"
	SweepLifecycle SweepKind = "lifecycle"
)

// RoomOutcome is the result of reconciling one room.
type RoomOutcome struct {
	RoomID  int64              `json:"room_id"`
	From    domain.RoomStatus  `json:"from"`
	To      domain.RoomStatus  `json:"to"`
	Changed bool               `json:"changed"`
	Cause   domain.StatusCause `json:"cause"`
}

// SweepReport summarizes one sweep. Failures never stop a sweep; Aborted is
// set only when the store could not be reached at all.
type SweepReport struct {
	Kind              SweepKind                     `json:"kind"`
	StartedAt         time.Time                     `json:"started_at"`
	FinishedAt        time.Time                     `json:"finished_at"`
	RoomsChecked      int                           `json:"rooms_checked"`
	RoomsChanged      int                           `json:"rooms_changed"`
	BookingsCompleted int                           `json:"bookings_completed"`
	Changes           []RoomOutcome                 `json:"changes,omitempty"`
	Failures          []*domain.ReconciliationError `json:"-"`
	Aborted           error                         `json:"-"`
}

// Duration returns how long the sweep ran.
func (r *SweepReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Err joins the abort cause and every per-room failure.
func (r *SweepReport) Err() error {
	errs := make([]error, 0, len(r.Failures)+1)
	if r.Aborted != nil {
		errs = append(errs, r.Aborted)
	}
	for _, f := range r.Failures {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

// FailureMessages renders failures for transports that cannot carry errors.
func (r *SweepReport) FailureMessages() []string {
	out := make([]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		out = append(out, f.Error())
	}
	return out
}

func (r *SweepReport) record(mu *sync.Mutex, outcome RoomOutcome, err error) {
	mu.Lock()
	defer mu.Unlock()
	r.RoomsChecked++
	if err != nil {
		r.Failures = append(r.Failures, &domain.ReconciliationError{RoomID: outcome.RoomID, Cause: err})
		return
	}
	if outcome.Changed {
		r.RoomsChanged++
		r.Changes = append(r.Changes, outcome)
	}
}

// ReconcilerConfig bounds sweep parallelism and per-room work.
type ReconcilerConfig struct {
	Concurrency int
	RoomTimeout time.Duration
}

// DefaultReconcilerConfig returns the sweep defaults.
func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{Concurrency: 4, RoomTimeout: 10 * time.Second}
}

// Reconciler brings stored room statuses in line with their bookings and
// maintenance, and closes bookings whose windows have ended.
type Reconciler struct {
	rooms      domain.RoomRepository
	bookings   domain.BookingRepository
	deriver    *StatusDeriver
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
	clock      sharedApplication.Clock
	guard      *StoreGuard
	locker     RoomLocker
	config     ReconcilerConfig
	logger     *slog.Logger
	metrics    observability.Metrics
}

// NewReconciler creates a Reconciler. guard may be nil.
func NewReconciler(
	rooms domain.RoomRepository,
	bookings domain.BookingRepository,
	maintenance domain.MaintenanceRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
	clock sharedApplication.Clock,
	guard *StoreGuard,
	config ReconcilerConfig,
	logger *slog.Logger,
	metrics observability.Metrics,
) *Reconciler {
	if clock == nil {
		clock = sharedApplication.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	defaults := DefaultReconcilerConfig()
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}
	if config.RoomTimeout <= 0 {
		config.RoomTimeout = defaults.RoomTimeout
	}

	return &Reconciler{
		rooms:      rooms,
		bookings:   bookings,
		deriver:    NewStatusDeriver(bookings, maintenance),
		outboxRepo: outboxRepo,
		uow:        uow,
		clock:      clock,
		guard:      guard,
		config:     config,
		logger:     logger,
		metrics:    metrics,
	}
}

// WithRoomLocker makes sweeps hold each room's lock while they reconcile it,
// so a sweep cannot overwrite a status written by a concurrent command.
// ReconcileRoom never locks; commands call it with the lock already held.
func (r *Reconciler) WithRoomLocker(locker RoomLocker) *Reconciler {
	r.locker = locker
	return r
}

// Deriver returns the deriver the reconciler writes through.
func (r *Reconciler) Deriver() *StatusDeriver {
	return r.deriver
}

// ReconcileRoom re-derives one room and persists the status when it differs
// from the stored one. It joins a unit of work already present in ctx.
func (r *Reconciler) ReconcileRoom(ctx context.Context, roomID int64) (RoomOutcome, error) {
	return r.reconcileAt(ctx, roomID, r.clock.Now())
}

func (r *Reconciler) reconcileAt(ctx context.Context, roomID int64, now time.Time) (RoomOutcome, error) {
	outcome := RoomOutcome{RoomID: roomID}

	err := r.guard.Do(ctx, func(ctx context.Context) error {
		return sharedApplication.WithUnitOfWork(ctx, r.uow, func(txCtx context.Context) error {
			room, err := r.rooms.FindByID(txCtx, roomID)
			if err != nil {
				return err
			}
			derivation, err := r.deriver.Derive(txCtx, roomID, now)
			if err != nil {
				return err
			}

			outcome.From = room.Status()
			outcome.To = derivation.Status()
			outcome.Cause = derivation.Cause()

			changed, err := room.ApplyDerivation(derivation)
			if err != nil || !changed {
				return err
			}
			if err := r.rooms.SaveStatus(txCtx, room); err != nil {
				return err
			}
			if err := RecordEvents(txCtx, r.outboxRepo, MetadataFromContext(txCtx, 0), room); err != nil {
				return err
			}
			outcome.Changed = true
			return nil
		})
	})
	if err != nil {
		return RoomOutcome{RoomID: roomID}, err
	}

	if outcome.Changed {
		r.metrics.Counter(observability.MetricRoomStatusChanges, 1, observability.T("to", string(outcome.To)))
		r.logger.InfoContext(ctx, "room status changed",
			"room_id", roomID,
			"from", outcome.From,
			"to", outcome.To,
			"cause", outcome.Cause,
		)
	}
	return outcome, nil
}

// RunStatusSweep reconciles every room.
func (r *Reconciler) RunStatusSweep(ctx context.Context) *SweepReport {
	report := r.begin(SweepStatus)
	defer r.finish(ctx, report)

	rooms, err := r.listRooms(ctx, domain.RoomFilter{})
	if err != nil {
		report.Aborted = err
		return report
	}
	r.reconcileAll(ctx, report, roomIDs(rooms), report.StartedAt)
	return report
}

// RunLifecycleSweep completes approved bookings that have ended, then
// re-derives every room still stored as BOOKED.
func (r *Reconciler) RunLifecycleSweep(ctx context.Context) *SweepReport {
	report := r.begin(SweepLifecycle)
	defer r.finish(ctx, report)
	now := report.StartedAt

	var ended []*domain.Booking
	err := r.guard.Do(ctx, func(ctx context.Context) error {
		var err error
		ended, err = r.bookings.FindApprovedEndedBefore(ctx, now)
		return err
	})
	if err != nil {
		report.Aborted = storeUnavailable(err)
		return report
	}
	if !r.completeAll(ctx, report, ended, now) {
		return report
	}

	booked := domain.RoomStatusBooked
	rooms, err := r.listRooms(ctx, domain.RoomFilter{Status: &booked})
	if err != nil {
		report.Aborted = err
		return report
	}
	r.reconcileAll(ctx, report, roomIDs(rooms), now)
	return report
}

func (r *Reconciler) listRooms(ctx context.Context, filter domain.RoomFilter) ([]*domain.Room, error) {
	var rooms []*domain.Room
	err := r.guard.Do(ctx, func(ctx context.Context) error {
		var err error
		rooms, err = r.rooms.List(ctx, filter)
		return err
	})
	if err != nil {
		return nil, storeUnavailable(fmt.Errorf("list rooms: %w", err))
	}
	return rooms, nil
}

// reconcileAll fans rooms out over a bounded pool. It returns false when the
// breaker rejected a call and the sweep was cut short.
func (r *Reconciler) reconcileAll(ctx context.Context, report *SweepReport, ids []int64, now time.Time) bool {
	var mu sync.Mutex
	return r.fanOut(ctx, report, len(ids), func(ctx context.Context, i int) error {
		outcome, err := r.reconcileLocked(ctx, ids[i], now)
		if err != nil {
			r.logger.WarnContext(ctx, "room reconciliation failed", "room_id", ids[i], "error", err)
		}
		report.record(&mu, outcome, err)
		return err
	})
}

func (r *Reconciler) reconcileLocked(ctx context.Context, roomID int64, now time.Time) (outcome RoomOutcome, err error) {
	if r.locker == nil {
		return r.reconcileAt(ctx, roomID, now)
	}
	release, err := r.locker.Lock(ctx, roomID)
	if err != nil {
		return RoomOutcome{RoomID: roomID}, fmt.Errorf("lock room %d: %w", roomID, err)
	}
	defer func() {
		err = errors.Join(err, release())
	}()
	return r.reconcileAt(ctx, roomID, now)
}

func (r *Reconciler) completeAll(ctx context.Context, report *SweepReport, bookings []*domain.Booking, now time.Time) bool {
	var mu sync.Mutex
	return r.fanOut(ctx, report, len(bookings), func(ctx context.Context, i int) error {
		b := bookings[i]
		err := r.completeBooking(ctx, b, now)

		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			r.logger.WarnContext(ctx, "booking completion failed", "booking_id", b.ID(), "room_id", b.RoomID(), "error", err)
			report.Failures = append(report.Failures, &domain.ReconciliationError{
				RoomID: b.RoomID(),
				Cause:  fmt.Errorf("complete booking %d: %w", b.ID(), err),
			})
			return err
		}
		report.BookingsCompleted++
		return nil
	})
}

func (r *Reconciler) completeBooking(ctx context.Context, b *domain.Booking, now time.Time) error {
	return r.guard.Do(ctx, func(ctx context.Context) error {
		return sharedApplication.WithUnitOfWork(ctx, r.uow, func(txCtx context.Context) error {
			if err := b.Complete(now); err != nil {
				return err
			}
			if err := r.bookings.SaveStatus(txCtx, b); err != nil {
				return err
			}
			return RecordEvents(txCtx, r.outboxRepo, MetadataFromContext(txCtx, 0), b)
		})
	})
}

// fanOut runs fn for indexes [0, n) with at most Concurrency in flight and
// each call bounded by RoomTimeout. Only a breaker rejection stops the
// remaining work; it is stored on the report as the abort cause.
func (r *Reconciler) fanOut(ctx context.Context, report *SweepReport, n int, fn func(ctx context.Context, i int) error) bool {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Concurrency)

	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			itemCtx, cancel := context.WithTimeout(gctx, r.config.RoomTimeout)
			defer cancel()

			err := fn(itemCtx, i)
			if err != nil && breakerRejected(err) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		report.Aborted = storeUnavailable(err)
		return false
	}
	if err := ctx.Err(); err != nil {
		report.Aborted = err
		return false
	}
	return true
}

func (r *Reconciler) begin(kind SweepKind) *SweepReport {
	return &SweepReport{Kind: kind, StartedAt: r.clock.Now()}
}

func (r *Reconciler) finish(ctx context.Context, report *SweepReport) {
	report.FinishedAt = r.clock.Now()
	kind := observability.T("kind", string(report.Kind))

	r.metrics.Counter(observability.MetricSweepRuns, 1, kind)
	r.metrics.Timing(observability.MetricSweepDuration, report.Duration(), kind)
	if n := len(report.Failures); n > 0 {
		r.metrics.Counter(observability.MetricSweepRoomFailures, int64(n), kind)
	}
	if report.BookingsCompleted > 0 {
		r.metrics.Counter(observability.MetricBookingsCompleted, int64(report.BookingsCompleted))
	}

	attrs := []any{
		"kind", report.Kind,
		"rooms", report.RoomsChecked,
		"changed", report.RoomsChanged,
		"failed", len(report.Failures),
		"bookings_completed", report.BookingsCompleted,
		"duration_ms", report.Duration().Milliseconds(),
	}
	if report.Aborted != nil {
		r.logger.ErrorContext(ctx, "sweep aborted", append(attrs, "error", report.Aborted)...)
		return
	}
	r.logger.InfoContext(ctx, "sweep finished", attrs...)
}

func roomIDs(rooms []*domain.Room) []int64 {
	ids := make([]int64, len(rooms))
	for i, room := range rooms {
		ids[i] = room.ID()
	}
	return ids
}
