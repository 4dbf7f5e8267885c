package cli

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/roomkeeper/internal/app"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/commands"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/queries"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/services"
	"github.com/felixgeelhaar/roomkeeper/pkg/observability"
)

// ErrNotInitialized is returned when a command runs without a wired App.
var ErrNotInitialized = errors.New("roomctl is not connected to a store; check DATABASE_URL or SQLITE_PATH")

// ErrNoActingUser is returned by write commands when no user was selected.
var ErrNoActingUser = errors.New("no acting user: pass --as <user-id> or set ROOMCTL_USER_ID")

// Sweeper runs the reconciliation sweeps.
type Sweeper interface {
	RunStatusSweep(ctx context.Context) *services.SweepReport
	RunLifecycleSweep(ctx context.Context) *services.SweepReport
}

// App holds the CLI application dependencies.
type App struct {
	// Booking
	CreateBookingHandler    *commands.CreateBookingHandler
	DecideBookingHandler    *commands.DecideBookingHandler
	ListUserBookingsHandler *queries.ListUserBookingsHandler

	// Maintenance
	ScheduleMaintenanceHandler   *commands.ScheduleMaintenanceHandler
	TransitionMaintenanceHandler *commands.TransitionMaintenanceHandler

	// Rooms
	RegisterRoomHandler    *commands.RegisterRoomHandler
	ReconcileRoomHandler   *commands.ReconcileRoomHandler
	ListRoomsHandler       *queries.ListRoomsHandler
	GetRoomStatusHandler   *queries.GetRoomStatusHandler
	GetRoomScheduleHandler *queries.GetRoomScheduleHandler

	// Users
	UpsertUserHandler *commands.UpsertUserHandler

	Sweeper Sweeper
	Health  *observability.HealthRegistry

	// CurrentUserID is the user writes are performed as.
	CurrentUserID int64
}

// NewApp creates the CLI application from a wired container.
func NewApp(c *app.Container) *App {
	return &App{
		CreateBookingHandler:         c.CreateBookingHandler,
		DecideBookingHandler:         c.DecideBookingHandler,
		ListUserBookingsHandler:      c.ListUserBookingsHandler,
		ScheduleMaintenanceHandler:   c.ScheduleMaintenanceHandler,
		TransitionMaintenanceHandler: c.TransitionMaintenanceHandler,
		RegisterRoomHandler:          c.RegisterRoomHandler,
		ReconcileRoomHandler:         c.ReconcileRoomHandler,
		ListRoomsHandler:             c.ListRoomsHandler,
		GetRoomStatusHandler:         c.GetRoomStatusHandler,
		GetRoomScheduleHandler:       c.GetRoomScheduleHandler,
		UpsertUserHandler:            c.UpsertUserHandler,
		Sweeper:                      c.Reconciler,
		Health:                       c.Health,
	}
}

// SetCurrentUserID updates the current user ID.
func (a *App) SetCurrentUserID(id int64) {
	a.CurrentUserID = id
}

// ActingUser returns the current user or ErrNoActingUser.
func (a *App) ActingUser() (int64, error) {
	if a.CurrentUserID <= 0 {
		return 0, ErrNoActingUser
	}
	return a.CurrentUserID, nil
}

// current is the global CLI application instance
var current *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	current = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return current
}

// RequireApp returns the global App or ErrNotInitialized.
func RequireApp() (*App, error) {
	if current == nil {
		return nil, ErrNotInitialized
	}
	return current, nil
}
