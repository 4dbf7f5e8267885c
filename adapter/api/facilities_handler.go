package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/commands"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/queries"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/services"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
	"github.com/felixgeelhaar/roomkeeper/pkg/observability"
	"github.com/gin-gonic/gin"
)

// Sweeper runs the reconciliation sweeps on demand.
type Sweeper interface {
	RunStatusSweep(ctx context.Context) *services.SweepReport
	RunLifecycleSweep(ctx context.Context) *services.SweepReport
}

// FacilitiesHandler serves the booking, maintenance and room routes.
type FacilitiesHandler struct {
	createBooking         *commands.CreateBookingHandler
	decideBooking         *commands.DecideBookingHandler
	scheduleMaintenance   *commands.ScheduleMaintenanceHandler
	transitionMaintenance *commands.TransitionMaintenanceHandler
	reconcileRoom         *commands.ReconcileRoomHandler
	registerRoom          *commands.RegisterRoomHandler
	listRooms             *queries.ListRoomsHandler
	getRoomStatus         *queries.GetRoomStatusHandler
	getRoomSchedule       *queries.GetRoomScheduleHandler
	listUserBookings      *queries.ListUserBookingsHandler
	sweeper               Sweeper
	logger                *slog.Logger
	metrics               observability.Metrics
}

// FacilitiesHandlerConfig holds dependencies for the facilities handler.
type FacilitiesHandlerConfig struct {
	CreateBooking         *commands.CreateBookingHandler
	DecideBooking         *commands.DecideBookingHandler
	ScheduleMaintenance   *commands.ScheduleMaintenanceHandler
	TransitionMaintenance *commands.TransitionMaintenanceHandler
	ReconcileRoom         *commands.ReconcileRoomHandler
	RegisterRoom          *commands.RegisterRoomHandler
	ListRooms             *queries.ListRoomsHandler
	GetRoomStatus         *queries.GetRoomStatusHandler
	GetRoomSchedule       *queries.GetRoomScheduleHandler
	ListUserBookings      *queries.ListUserBookingsHandler
	Sweeper               Sweeper
	Logger                *slog.Logger
	Metrics               observability.Metrics
}

// NewFacilitiesHandler creates a new facilities handler.
func NewFacilitiesHandler(cfg FacilitiesHandlerConfig) *FacilitiesHandler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NoopMetrics{}
	}
	return &FacilitiesHandler{
		createBooking:         cfg.CreateBooking,
		decideBooking:         cfg.DecideBooking,
		scheduleMaintenance:   cfg.ScheduleMaintenance,
		transitionMaintenance: cfg.TransitionMaintenance,
		reconcileRoom:         cfg.ReconcileRoom,
		registerRoom:          cfg.RegisterRoom,
		listRooms:             cfg.ListRooms,
		getRoomStatus:         cfg.GetRoomStatus,
		getRoomSchedule:       cfg.GetRoomSchedule,
		listUserBookings:      cfg.ListUserBookings,
		sweeper:               cfg.Sweeper,
		logger:                cfg.Logger,
		metrics:               cfg.Metrics,
	}
}

type createBookingRequest struct {
	RoomID    int64     `json:"room_id" binding:"required"`
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
	Purpose   string    `json:"purpose" binding:"required"`
}

// BookingResponse is returned by the booking write routes.
type BookingResponse struct {
	BookingID  int64  `json:"booking_id"`
	Status     string `json:"status"`
	RoomStatus string `json:"room_status"`
}

// CreateBooking handles POST /api/v1/bookings
func (h *FacilitiesHandler) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "room_id, start_time, end_time and purpose are required")
		return
	}

	result, err := observability.TimeOperationResult(c.Request.Context(), h.logger, h.metrics, "create_booking",
		func() (*commands.CreateBookingResult, error) {
			return h.createBooking.Handle(c.Request.Context(), commands.CreateBookingCommand{
				RoomID:    req.RoomID,
				UserID:    callerID(c),
				StartTime: req.StartTime,
				EndTime:   req.EndTime,
				Purpose:   req.Purpose,
			})
		})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, BookingResponse{
		BookingID:  result.BookingID,
		Status:     string(result.Status),
		RoomStatus: string(result.RoomStatus),
	})
}

type decideBookingRequest struct {
	Status string `json:"status" binding:"required"`
}

// DecideBooking handles PATCH /api/v1/bookings/:id
func (h *FacilitiesHandler) DecideBooking(c *gin.Context) {
	bookingID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req decideBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "status is required")
		return
	}

	result, err := observability.TimeOperationResult(c.Request.Context(), h.logger, h.metrics, "decide_booking",
		func() (*commands.DecideBookingResult, error) {
			return h.decideBooking.Handle(c.Request.Context(), commands.DecideBookingCommand{
				BookingID: bookingID,
				Decision:  req.Status,
				DecidedBy: callerID(c),
			})
		})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, BookingResponse{
		BookingID:  result.BookingID,
		Status:     string(result.Status),
		RoomStatus: string(result.RoomStatus),
	})
}

type scheduleMaintenanceRequest struct {
	Description string    `json:"description" binding:"required"`
	StartDate   time.Time `json:"start_date" binding:"required"`
	EndDate     time.Time `json:"end_date" binding:"required"`
}

// MaintenanceResponse is returned by the maintenance write routes.
type MaintenanceResponse struct {
	MaintenanceID int64  `json:"maintenance_id"`
	Status        string `json:"status"`
	RoomStatus    string `json:"room_status"`
}

func toMaintenanceResponse(r *commands.MaintenanceResult) MaintenanceResponse {
	return MaintenanceResponse{
		MaintenanceID: r.MaintenanceID,
		Status:        string(r.Status),
		RoomStatus:    string(r.RoomStatus),
	}
}

// ScheduleMaintenance handles POST /api/v1/rooms/:id/maintenance
func (h *FacilitiesHandler) ScheduleMaintenance(c *gin.Context) {
	roomID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req scheduleMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "description, start_date and end_date are required")
		return
	}

	result, err := observability.TimeOperationResult(c.Request.Context(), h.logger, h.metrics, "schedule_maintenance",
		func() (*commands.MaintenanceResult, error) {
			return h.scheduleMaintenance.Handle(c.Request.Context(), commands.ScheduleMaintenanceCommand{
				RoomID:      roomID,
				Description: req.Description,
				StartDate:   req.StartDate,
				EndDate:     req.EndDate,
				RequestedBy: callerID(c),
			})
		})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, toMaintenanceResponse(result))
}

type transitionMaintenanceRequest struct {
	Action string `json:"action" binding:"required"`
}

// TransitionMaintenance handles PATCH /api/v1/maintenance/:id
func (h *FacilitiesHandler) TransitionMaintenance(c *gin.Context) {
	maintenanceID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req transitionMaintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "action is required")
		return
	}

	result, err := observability.TimeOperationResult(c.Request.Context(), h.logger, h.metrics, "transition_maintenance",
		func() (*commands.MaintenanceResult, error) {
			return h.transitionMaintenance.Handle(c.Request.Context(), commands.TransitionMaintenanceCommand{
				MaintenanceID: maintenanceID,
				Action:        req.Action,
				RequestedBy:   callerID(c),
			})
		})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toMaintenanceResponse(result))
}

type registerRoomRequest struct {
	Name       string   `json:"name" binding:"required"`
	CategoryID int64    `json:"category_id"`
	Capacity   int      `json:"capacity"`
	Building   string   `json:"building"`
	Floor      int      `json:"floor"`
	Features   []string `json:"features"`
}

// RegisterRoom handles POST /api/v1/rooms
func (h *FacilitiesHandler) RegisterRoom(c *gin.Context) {
	var req registerRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "name is required")
		return
	}

	id, err := h.registerRoom.Handle(c.Request.Context(), commands.RegisterRoomCommand{
		Details: domain.RoomDetails{
			Name:       req.Name,
			CategoryID: req.CategoryID,
			Capacity:   req.Capacity,
			Building:   req.Building,
			Floor:      req.Floor,
			Features:   req.Features,
		},
		RequestedBy: callerID(c),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"room_id": id, "status": string(domain.RoomStatusVacant)})
}

// ListRooms handles GET /api/v1/rooms
func (h *FacilitiesHandler) ListRooms(c *gin.Context) {
	query := queries.ListRoomsQuery{Status: c.Query("status")}
	if raw := c.Query("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondBadRequest(c, "category_id must be an integer")
			return
		}
		query.CategoryID = id
	}

	rooms, err := h.listRooms.Handle(c.Request.Context(), query)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms, "total": len(rooms)})
}

// GetRoomStatus handles GET /api/v1/rooms/:id/status
func (h *FacilitiesHandler) GetRoomStatus(c *gin.Context) {
	roomID, ok := pathID(c, "id")
	if !ok {
		return
	}
	status, err := h.getRoomStatus.Handle(c.Request.Context(), queries.GetRoomStatusQuery{RoomID: roomID})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// GetRoomSchedule handles GET /api/v1/rooms/:id/schedule
func (h *FacilitiesHandler) GetRoomSchedule(c *gin.Context) {
	roomID, ok := pathID(c, "id")
	if !ok {
		return
	}
	schedule, err := h.getRoomSchedule.Handle(c.Request.Context(), queries.GetRoomScheduleQuery{RoomID: roomID})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, schedule)
}

// ReconcileRoom handles POST /api/v1/rooms/:id/reconcile
func (h *FacilitiesHandler) ReconcileRoom(c *gin.Context) {
	roomID, ok := pathID(c, "id")
	if !ok {
		return
	}
	outcome, err := observability.TimeOperationResult(c.Request.Context(), h.logger, h.metrics, "reconcile_room",
		func() (*services.RoomOutcome, error) {
			return h.reconcileRoom.Handle(c.Request.Context(), commands.ReconcileRoomCommand{
				RoomID:      roomID,
				RequestedBy: callerID(c),
			})
		})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// ListUserBookings handles GET /api/v1/users/:id/bookings. Callers may only
// list their own bookings.
func (h *FacilitiesHandler) ListUserBookings(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if userID != callerID(c) {
		respondError(c, h.logger, domain.ErrNotPermitted)
		return
	}
	bookings, err := h.listUserBookings.Handle(c.Request.Context(), queries.ListUserBookingsQuery{UserID: userID})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "total": len(bookings)})
}

// SweepResponse is the JSON form of a sweep report.
type SweepResponse struct {
	*services.SweepReport
	DurationMS int64    `json:"duration_ms"`
	Failures   []string `json:"failures"`
	Aborted    string   `json:"aborted,omitempty"`
}

func toSweepResponse(report *services.SweepReport) SweepResponse {
	resp := SweepResponse{
		SweepReport: report,
		DurationMS:  report.Duration().Milliseconds(),
		Failures:    report.FailureMessages(),
	}
	if report.Aborted != nil {
		resp.Aborted = report.Aborted.Error()
	}
	return resp
}

// MonitorBookings handles GET /api/v1/cron/monitor-bookings by running a
// status sweep. An aborted sweep answers 503.
func (h *FacilitiesHandler) MonitorBookings(c *gin.Context) {
	h.respondSweep(c, h.sweeper.RunStatusSweep(c.Request.Context()))
}

// CompleteBookings handles GET /api/v1/cron/complete-bookings by running a
// lifecycle sweep.
func (h *FacilitiesHandler) CompleteBookings(c *gin.Context) {
	h.respondSweep(c, h.sweeper.RunLifecycleSweep(c.Request.Context()))
}

func (h *FacilitiesHandler) respondSweep(c *gin.Context, report *services.SweepReport) {
	status := http.StatusOK
	if report.Aborted != nil {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, toSweepResponse(report))
}
