package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/felixgeelhaar/roomkeeper/adapter/cli"
	"github.com/felixgeelhaar/roomkeeper/adapter/cli/booking"
	"github.com/felixgeelhaar/roomkeeper/adapter/cli/maintenance"
	"github.com/felixgeelhaar/roomkeeper/adapter/cli/room"
	"github.com/felixgeelhaar/roomkeeper/adapter/cli/sweep"
	"github.com/felixgeelhaar/roomkeeper/adapter/cli/user"
	"github.com/felixgeelhaar/roomkeeper/internal/app"
	"github.com/felixgeelhaar/roomkeeper/pkg/config"
	"github.com/felixgeelhaar/roomkeeper/pkg/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := observability.LoggerFromEnv()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.IsDevelopment() {
		logCfg := observability.DefaultLogConfig()
		logCfg.Level = observability.LogLevelDebug
		logger = observability.NewLogger(logCfg)
	}
	cli.SetLogger(logger)

	// One-shot commands run their own sweeps; background jobs belong to roomkeeper.
	cfg.SchedulerEnabled = false

	var container *app.Container
	if cfg.LocalMode || cfg.DatabaseURL == "" {
		container, err = app.NewLocalContainer(ctx, cfg, logger)
	} else {
		container, err = app.NewContainer(ctx, cfg, logger)
	}
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}

	cliApp := cli.NewApp(container)
	if raw := os.Getenv("ROOMCTL_USER_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			logger.Error("invalid ROOMCTL_USER_ID", "error", err)
			os.Exit(1)
		}
		cliApp.SetCurrentUserID(id)
	}
	cli.SetApp(cliApp)

	cli.AddCommand(booking.Cmd)
	cli.AddCommand(maintenance.Cmd)
	cli.AddCommand(room.Cmd)
	cli.AddCommand(sweep.Cmd)
	cli.AddCommand(user.Cmd)

	code := cli.Execute(ctx)
	// Flush events recorded by this command before exiting.
	if err := container.OutboxProcessor.ProcessOnce(ctx); err != nil {
		logger.Warn("failed to relay events", "error", err)
	}
	if err := container.Close(); err != nil {
		slog.Warn("failed to close", "error", err)
	}
	os.Exit(code)
}
