// Package app wires roomkeeper's stores, services and handlers together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/commands"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/consumers"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/queries"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/services"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/workers"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/infrastructure/locking"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/infrastructure/persistence"
	sharedApplication "github.com/felixgeelhaar/roomkeeper/internal/shared/application"
	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/convert"
	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/database/postgres"
	_ "github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/roomkeeper/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/roomkeeper/pkg/config"
	"github.com/felixgeelhaar/roomkeeper/pkg/observability"
	"github.com/redis/go-redis/v9"
)

// StatusRefreshQueue is the RabbitMQ queue feeding the status refresh consumer.
const StatusRefreshQueue = "roomkeeper.status-refresh"

// Container holds all application dependencies.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics observability.Metrics
	Clock   sharedApplication.Clock

	// Infrastructure
	DB          database.Connection
	RedisClient *redis.Client
	Health      *observability.HealthRegistry

	// Stores
	Repos      persistence.Repositories
	OutboxRepo outbox.Repository
	UnitOfWork *database.GenericUnitOfWork

	// Services
	StoreGuard *services.StoreGuard
	Validator  *services.ConflictValidator
	Deriver    *services.StatusDeriver
	Reconciler *services.Reconciler
	Locker     locking.Locker

	// Events
	EventPublisher  eventbus.Publisher
	EventConsumer   *eventbus.RabbitMQConsumer
	OutboxProcessor *outbox.Processor

	// Sweep scheduler; nil when SCHEDULER_ENABLED is false.
	Scheduler *workers.SweepScheduler

	// Command handlers
	CreateBookingHandler         *commands.CreateBookingHandler
	DecideBookingHandler         *commands.DecideBookingHandler
	ScheduleMaintenanceHandler   *commands.ScheduleMaintenanceHandler
	TransitionMaintenanceHandler *commands.TransitionMaintenanceHandler
	ReconcileRoomHandler         *commands.ReconcileRoomHandler
	RegisterRoomHandler          *commands.RegisterRoomHandler
	UpsertUserHandler            *commands.UpsertUserHandler

	// Query handlers
	ListRoomsHandler        *queries.ListRoomsHandler
	GetRoomStatusHandler    *queries.GetRoomStatusHandler
	GetRoomScheduleHandler  *queries.GetRoomScheduleHandler
	ListUserBookingsHandler *queries.ListUserBookingsHandler
}

// Option customizes container construction.
type Option func(*Container)

// WithClock replaces the system clock.
func WithClock(clock sharedApplication.Clock) Option {
	return func(c *Container) { c.Clock = clock }
}

// WithMetrics sets the metrics sink shared by the reconciler, breaker and outbox relay.
func WithMetrics(m observability.Metrics) Option {
	return func(c *Container) { c.Metrics = m }
}

// NewContainer connects to the configured store, applies migrations and
// builds every handler. Redis and RabbitMQ are optional: without a URL the
// in-process locker and event bus are used, and in development an
// unreachable broker falls back the same way.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NoopMetrics{},
		Clock:   sharedApplication.SystemClock{},
		Health:  observability.NewHealthRegistry(),
	}
	for _, opt := range opts {
		opt(c)
	}

	conn, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	c.DB = conn
	c.Health.Register("database", observability.DatabaseHealthChecker(conn.Ping))

	c.initStores()
	if err := c.initLocker(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	c.initServices()
	if err := c.initEvents(); err != nil {
		_ = c.Close()
		return nil, err
	}
	c.initHandlers()

	if cfg.SchedulerEnabled {
		scheduler, err := workers.NewSweepScheduler(c.Reconciler, workers.SchedulerConfig{
			StatusSchedule:    cfg.StatusSweepSchedule,
			LifecycleSchedule: cfg.LifecycleSweepSchedule,
			Location:          cfg.SweepLocation(),
		}, logger)
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		c.Scheduler = scheduler
	}

	return c, nil
}

// NewLocalContainer builds a container on SQLite with the in-process locker
// and event bus, ignoring any Redis or RabbitMQ settings.
func NewLocalContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Container, error) {
	local := *cfg
	local.LocalMode = true
	local.DatabaseDriver = string(database.DriverSQLite)
	local.RedisURL = ""
	local.RabbitMQURL = ""
	return NewContainer(ctx, &local, logger, opts...)
}

func openDatabase(ctx context.Context, cfg *config.Config, logger *slog.Logger) (database.Connection, error) {
	dbCfg := database.Config{
		Driver:     database.Driver(cfg.DatabaseDriver),
		URL:        cfg.DatabaseURL,
		SQLitePath: cfg.SQLitePath,
		MaxConns:   cfg.DBMaxConns,
	}
	if cfg.LocalMode {
		dbCfg.Driver = database.DriverSQLite
	}

	conn, err := database.NewConnection(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logger.Info("connected to database", "driver", conn.Driver())

	if err := migrations.Run(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return conn, nil
}

func (c *Container) initStores() {
	c.Repos = persistence.NewRepositories(c.DB)
	c.OutboxRepo = outbox.NewRepository(c.DB)
	c.UnitOfWork = database.NewUnitOfWork(c.DB)
}

func (c *Container) initLocker(ctx context.Context) error {
	cfg := c.Config
	var locker locking.Locker = locking.NewLocalRoomLocker()

	if cfg.RedisURL != "" {
		client, err := connectRedis(ctx, cfg.RedisURL)
		switch {
		case err == nil:
			c.RedisClient = client
			lockCfg := locking.DefaultRedisLockConfig()
			lockCfg.TTL = cfg.BookingLockTTL
			locker = locking.NewRedisRoomLocker(client, lockCfg, c.Logger)
			c.Health.Register("redis", observability.RedisHealthChecker(func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			}))
			c.Logger.Info("connected to Redis, room locks are distributed")
		case cfg.IsDevelopment():
			c.Logger.Warn("Redis not available, using in-process room locks", "error", err)
		default:
			return err
		}
	}

	c.Locker = locking.WithWait(locker, cfg.BookingLockWait)
	return nil
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func (c *Container) initServices() {
	cfg := c.Config
	repos := c.Repos

	guardCfg := services.DefaultStoreGuardConfig()
	guardCfg.FailureThreshold = convert.IntToUint32Clamped(cfg.StoreBreakerFailures)
	if cfg.StoreBreakerTimeout > 0 {
		guardCfg.Timeout = cfg.StoreBreakerTimeout
	}
	c.StoreGuard = services.NewStoreGuard(guardCfg, c.Logger, c.Metrics)

	c.Validator = services.NewConflictValidator(repos.Bookings, repos.Maintenance, c.StoreGuard)
	c.Reconciler = services.NewReconciler(
		repos.Rooms,
		repos.Bookings,
		repos.Maintenance,
		c.OutboxRepo,
		c.UnitOfWork,
		c.Clock,
		c.StoreGuard,
		services.ReconcilerConfig{
			Concurrency: cfg.SweepConcurrency,
			RoomTimeout: cfg.SweepRoomTimeout,
		},
		c.Logger,
		c.Metrics,
	).WithRoomLocker(c.Locker)
	c.Deriver = c.Reconciler.Deriver()
}

// initEvents picks the relay target for outbox messages. The status refresh
// consumer is registered on whichever bus is in use.
func (c *Container) initEvents() error {
	cfg := c.Config
	refresh := consumers.NewStatusRefreshConsumer(c.Reconciler, c.Logger)

	if cfg.RabbitMQURL != "" {
		publisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, c.Logger)
		switch {
		case err == nil:
			registry := eventbus.NewConsumerRegistry(c.Logger)
			consumer, err := eventbus.NewRabbitMQConsumer(eventbus.RabbitMQConsumerConfig{
				URL:       cfg.RabbitMQURL,
				QueueName: StatusRefreshQueue,
				Exchange:  eventbus.ExchangeName,
				Prefetch:  cfg.SweepConcurrency,
				Logger:    c.Logger,
			}, registry)
			if err != nil {
				_ = publisher.Close()
				return fmt.Errorf("failed to start RabbitMQ consumer: %w", err)
			}
			consumer.RegisterConsumer(refresh)
			c.EventPublisher = publisher
			c.EventConsumer = consumer
			c.Health.Register("rabbitmq", observability.RabbitMQHealthChecker(publisher.Ping))
		case cfg.IsDevelopment():
			c.Logger.Warn("RabbitMQ not available, relaying events in process", "error", err)
		default:
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
	}

	if c.EventPublisher == nil {
		bus := eventbus.NewInProcessEventBus(c.Logger)
		bus.RegisterConsumer(refresh)
		c.EventPublisher = bus
	}

	processorCfg := outbox.DefaultProcessorConfig()
	if cfg.OutboxPollInterval > 0 {
		processorCfg.PollInterval = cfg.OutboxPollInterval
	}
	if cfg.OutboxBatchSize > 0 {
		processorCfg.BatchSize = cfg.OutboxBatchSize
	}
	if cfg.OutboxMaxRetries > 0 {
		processorCfg.MaxRetries = cfg.OutboxMaxRetries
	}
	c.OutboxProcessor = outbox.NewProcessor(c.OutboxRepo, c.EventPublisher, processorCfg, c.Logger).
		WithMetrics(c.Metrics)
	return nil
}

func (c *Container) initHandlers() {
	repos := c.Repos

	c.CreateBookingHandler = commands.NewCreateBookingHandler(
		repos.Users, repos.Rooms, repos.Bookings, c.Validator, c.Reconciler, c.Locker, c.OutboxRepo, c.UnitOfWork, c.Clock,
	)
	c.DecideBookingHandler = commands.NewDecideBookingHandler(
		repos.Users, repos.Rooms, repos.Bookings, c.Validator, c.Reconciler, c.Locker, c.OutboxRepo, c.UnitOfWork, c.Clock,
	)
	c.ScheduleMaintenanceHandler = commands.NewScheduleMaintenanceHandler(
		repos.Users, repos.Rooms, repos.Maintenance, c.Reconciler, c.Locker, c.OutboxRepo, c.UnitOfWork, c.Clock,
	)
	c.TransitionMaintenanceHandler = commands.NewTransitionMaintenanceHandler(
		repos.Users, repos.Maintenance, c.Reconciler, c.Locker, c.OutboxRepo, c.UnitOfWork, c.Clock,
	)
	c.ReconcileRoomHandler = commands.NewReconcileRoomHandler(repos.Users, c.Reconciler)
	c.RegisterRoomHandler = commands.NewRegisterRoomHandler(repos.Users, repos.Rooms, c.Clock)
	c.UpsertUserHandler = commands.NewUpsertUserHandler(repos.Users)

	c.ListRoomsHandler = queries.NewListRoomsHandler(repos.Rooms)
	c.GetRoomStatusHandler = queries.NewGetRoomStatusHandler(repos.Rooms, c.Deriver, c.Clock)
	c.GetRoomScheduleHandler = queries.NewGetRoomScheduleHandler(repos.Rooms, repos.Bookings, repos.Maintenance, c.Clock)
	c.ListUserBookingsHandler = queries.NewListUserBookingsHandler(repos.Users, repos.Bookings)
}

// Close releases every resource in reverse construction order.
func (c *Container) Close() error {
	var errs []error

	if c.OutboxProcessor != nil {
		c.OutboxProcessor.Stop()
	}
	if c.EventConsumer != nil {
		if err := c.EventConsumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close event consumer: %w", err))
		}
	}
	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close event publisher: %w", err))
		}
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close Redis: %w", err))
		} else {
			c.Logger.Info("Redis connection closed")
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.Logger.Info("database connection closed", "driver", c.DB.Driver())
		}
	}
	return errors.Join(errs...)
}
