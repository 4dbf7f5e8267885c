// Package api exposes roomkeeper over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/roomkeeper/pkg/observability"
	"github.com/gin-gonic/gin"
)

// Server is the roomkeeper HTTP API server.
type Server struct {
	engine  *gin.Engine
	server  *http.Server
	logger  *slog.Logger
	handler *FacilitiesHandler
	health  *observability.HealthRegistry
	config  ServerConfig
}

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// CronSecret guards the cron trigger routes; empty leaves them open.
	CronSecret string
	// ReadinessCacheTTL lets /readyz answer from recent check results.
	ReadinessCacheTTL time.Duration
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:              "0.0.0.0:8080",
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadinessCacheTTL: 5 * time.Second,
	}
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// NewServer creates a new API server. health may be nil.
func NewServer(cfg ServerConfig, handler *FacilitiesHandler, health *observability.HealthRegistry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if health == nil {
		health = observability.NewHealthRegistry()
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestContext(), requestLogger(logger))

	s := &Server{
		engine:  engine,
		logger:  logger,
		handler: handler,
		health:  health,
		config:  cfg,
	}
	s.registerRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.engine.GET("/healthz", s.handleLiveness)
	s.engine.GET("/readyz", s.handleReadiness)

	v1 := s.engine.Group("/api/v1")
	v1.GET("/rooms", s.handler.ListRooms)
	v1.GET("/rooms/:id/status", s.handler.GetRoomStatus)
	v1.GET("/rooms/:id/schedule", s.handler.GetRoomSchedule)

	cron := v1.Group("/cron", requireCronSecret(s.config.CronSecret))
	cron.GET("/monitor-bookings", s.handler.MonitorBookings)
	cron.GET("/complete-bookings", s.handler.CompleteBookings)

	authed := v1.Group("", requireCaller())
	authed.POST("/bookings", s.handler.CreateBooking)
	authed.PATCH("/bookings/:id", s.handler.DecideBooking)
	authed.POST("/rooms", s.handler.RegisterRoom)
	authed.POST("/rooms/:id/maintenance", s.handler.ScheduleMaintenance)
	authed.POST("/rooms/:id/reconcile", s.handler.ReconcileRoom)
	authed.PATCH("/maintenance/:id", s.handler.TransitionMaintenance)
	authed.GET("/users/:id/bookings", s.handler.ListUserBookings)
}

func (s *Server) handleLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReadiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	health := s.health.CachedOverallHealth(ctx, s.config.ReadinessCacheTTL)
	status := http.StatusOK
	if health.Status == observability.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, health)
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting API server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.server.Shutdown(ctx)
}
