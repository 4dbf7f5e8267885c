// Package workers runs the reconciliation sweeps on a schedule.
package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/services"
	"github.com/felixgeelhaar/roomkeeper/pkg/observability"
	"github.com/robfig/cron/v3"
)

const (
	DefaultStatusSchedule    = "*/5 * * * *"
	DefaultLifecycleSchedule = "0 * * * *"
)

// Sweeper runs the two sweeps.
type Sweeper interface {
	RunStatusSweep(ctx context.Context) *services.SweepReport
	RunLifecycleSweep(ctx context.Context) *services.SweepReport
}

// SchedulerConfig holds the cron expressions for each sweep.
type SchedulerConfig struct {
	StatusSchedule    string
	LifecycleSchedule string
	Location          *time.Location
}

// ScheduledJob describes a registered sweep.
type ScheduledJob struct {
	Kind services.SweepKind
	Spec string
	Next time.Time
}

// SweepScheduler triggers sweeps from cron expressions. A run that is still
// going when its next tick fires causes that tick to be skipped.
type SweepScheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	logger  *slog.Logger
	jobs    map[cron.EntryID]ScheduledJob

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSweepScheduler registers both sweeps. It fails on an invalid expression.
func NewSweepScheduler(sweeper Sweeper, cfg SchedulerConfig, logger *slog.Logger) (*SweepScheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.StatusSchedule == "" {
		cfg.StatusSchedule = DefaultStatusSchedule
	}
	if cfg.LifecycleSchedule == "" {
		cfg.LifecycleSchedule = DefaultLifecycleSchedule
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	cronLogger := cronLog{logger: logger.With("component", "sweep-scheduler")}
	s := &SweepScheduler{
		cron: cron.New(
			cron.WithLocation(cfg.Location),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		sweeper: sweeper,
		logger:  logger,
		jobs:    make(map[cron.EntryID]ScheduledJob),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	if err := s.add(services.SweepStatus, cfg.StatusSchedule, sweeper.RunStatusSweep); err != nil {
		return nil, err
	}
	if err := s.add(services.SweepLifecycle, cfg.LifecycleSchedule, sweeper.RunLifecycleSweep); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SweepScheduler) add(kind services.SweepKind, spec string, run func(context.Context) *services.SweepReport) error {
	id, err := s.cron.AddFunc(spec, func() {
		ctx := observability.WithOperation(observability.NewRequestContext(s.ctx, ""), "sweep."+string(kind))
		report := run(ctx)
		if report.Aborted != nil {
			s.logger.WarnContext(ctx, "sweep will retry on next tick", "kind", kind, "error", report.Aborted)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid %s sweep schedule %q: %w", kind, spec, err)
	}
	s.jobs[id] = ScheduledJob{Kind: kind, Spec: spec}
	return nil
}

// Start begins firing sweeps in the background.
func (s *SweepScheduler) Start() {
	s.cron.Start()
	s.logger.Info("sweep scheduler started", "jobs", len(s.jobs))
}

// Stop prevents new runs and waits for running sweeps, or until ctx ends,
// in which case in-flight sweeps are cancelled.
func (s *SweepScheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}

// Jobs returns the registered sweeps with their next fire time.
func (s *SweepScheduler) Jobs() []ScheduledJob {
	entries := s.cron.Entries()
	out := make([]ScheduledJob, 0, len(entries))
	for _, e := range entries {
		job := s.jobs[e.ID]
		job.Next = e.Next
		out = append(out, job)
	}
	return out
}

// cronLog routes cron's logging through slog.
type cronLog struct {
	logger *slog.Logger
}

func (l cronLog) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLog) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
