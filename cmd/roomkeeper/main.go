package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felixgeelhaar/roomkeeper/adapter/api"
	"github.com/felixgeelhaar/roomkeeper/adapter/grpchealth"
	"github.com/felixgeelhaar/roomkeeper/internal/app"
	"github.com/felixgeelhaar/roomkeeper/pkg/config"
	"github.com/felixgeelhaar/roomkeeper/pkg/observability"
	"google.golang.org/grpc"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("roomkeeper stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting roomkeeper", "env", cfg.AppEnv, "driver", cfg.DatabaseDriver)

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := container.Close(); err != nil {
			logger.Error("failed to close container", "error", err)
		}
	}()

	if cfg.OutboxProcessorEnabled {
		if err := container.OutboxProcessor.Start(ctx); err != nil {
			return err
		}
		go cleanupOutbox(ctx, container, cfg, logger)
	} else {
		logger.Info("outbox processor disabled")
	}

	if container.EventConsumer != nil {
		go func() {
			if err := container.EventConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("event consumer stopped", "error", err)
			}
		}()
	}

	if container.Scheduler != nil {
		container.Scheduler.Start()
	}

	serverCfg := api.DefaultServerConfig()
	serverCfg.Addr = cfg.APIAddr
	serverCfg.CronSecret = cfg.CronSecret
	handler := api.NewFacilitiesHandler(api.FacilitiesHandlerConfig{
		CreateBooking:         container.CreateBookingHandler,
		DecideBooking:         container.DecideBookingHandler,
		ScheduleMaintenance:   container.ScheduleMaintenanceHandler,
		TransitionMaintenance: container.TransitionMaintenanceHandler,
		RegisterRoom:          container.RegisterRoomHandler,
		ReconcileRoom:         container.ReconcileRoomHandler,
		ListRooms:             container.ListRoomsHandler,
		GetRoomStatus:         container.GetRoomStatusHandler,
		GetRoomSchedule:       container.GetRoomScheduleHandler,
		ListUserBookings:      container.ListUserBookingsHandler,
		Sweeper:               container.Reconciler,
		Metrics:               container.Metrics,
		Logger:                logger,
	})
	server := api.NewServer(serverCfg, handler, container.Health, logger)

	errCh := make(chan error, 2)
	go func() { errCh <- server.Start() }()

	var healthServer *grpchealth.Server
	if cfg.GRPCHealthAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCHealthAddr)
		if err != nil {
			return err
		}
		healthServer = grpchealth.NewServer(container.Health, 10*time.Second, logger)
		go func() {
			if err := healthServer.Serve(ctx, lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var errs []error
	if container.Scheduler != nil {
		errs = append(errs, container.Scheduler.Stop(shutdownCtx))
	}
	errs = append(errs, server.Shutdown(shutdownCtx))
	if healthServer != nil {
		healthServer.Stop()
	}
	logger.Info("roomkeeper stopped")
	return errors.Join(errs...)
}

// cleanupOutbox drops published outbox rows past their retention.
func cleanupOutbox(ctx context.Context, container *app.Container, cfg *config.Config, logger *slog.Logger) {
	if cfg.OutboxCleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(cfg.OutboxCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := container.OutboxRepo.DeleteOld(ctx, cfg.OutboxRetentionDays)
			if err != nil {
				logger.Error("outbox cleanup failed", "error", err)
				continue
			}
			if deleted > 0 {
				logger.Info("outbox cleanup completed", "deleted", deleted, "retention_days", cfg.OutboxRetentionDays)
			}
		}
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	logCfg := observability.DefaultLogConfig()
	if cfg.IsProduction() {
		logCfg = observability.ProductionLogConfig()
	}
	logCfg.Level = observability.LogLevel(cfg.LogLevel)
	logCfg.Format = observability.LogFormat(cfg.LogFormat)
	if v := os.Getenv("ROOMKEEPER_VERSION"); v != "" {
		logCfg.ServiceVersion = v
	}
	return observability.NewLogger(logCfg)
}
