package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
	"github.com/felixgeelhaar/roomkeeper/pkg/observability"
	"github.com/sony/gobreaker/v2"
)

// StoreGuardConfig tunes the store circuit breaker.
type StoreGuardConfig struct {
	FailureThreshold uint32
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
}

// DefaultStoreGuardConfig returns the breaker defaults.
func DefaultStoreGuardConfig() StoreGuardConfig {
	return StoreGuardConfig{
		FailureThreshold: 5,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
	}
}

// StoreGuard trips after consecutive store failures so sweeps stop hammering
// an unreachable database. A nil *StoreGuard runs calls unguarded.
type StoreGuard struct {
	breaker *gobreaker.CircuitBreaker[any]
}

// NewStoreGuard creates a guard around the booking store.
func NewStoreGuard(cfg StoreGuardConfig, logger *slog.Logger, metrics observability.Metrics) *StoreGuard {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = DefaultStoreGuardConfig().FailureThreshold
	}

	settings := gobreaker.Settings{
		Name:        "booking-store",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isBusinessOutcome(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("store circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
			metrics.Counter(observability.MetricBreakerTransitions, 1, observability.T("to", to.String()))
		},
	}
	return &StoreGuard{breaker: gobreaker.NewCircuitBreaker[any](settings)}
}

// Do runs fn through the breaker. An open breaker yields ErrStoreUnavailable
// without calling fn.
func (g *StoreGuard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if g == nil {
		return fn(ctx)
	}
	_, err := g.breaker.Execute(func() (any, error) {
		return nil, fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return err
}

// State reports the breaker state for health checks.
func (g *StoreGuard) State() string {
	if g == nil {
		return gobreaker.StateClosed.String()
	}
	return g.breaker.State().String()
}

// isBusinessOutcome reports errors that prove the store answered.
func isBusinessOutcome(err error) bool {
	for _, target := range []error{
		domain.ErrRoomNotFound,
		domain.ErrBookingNotFound,
		domain.ErrMaintenanceNotFound,
		domain.ErrUserNotFound,
		domain.ErrRoomAlreadyBooked,
		domain.ErrRoomUnderMaintenance,
		domain.ErrInvalidTransition,
		domain.ErrDerivationMismatch,
		domain.ErrNotPermitted,
		domain.ErrInvalidInterval,
		context.Canceled,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isStoreUnavailable(err error) bool {
	return errors.Is(err, domain.ErrStoreUnavailable)
}

// breakerRejected reports whether err came from an open or saturated breaker
// rather than from the store itself.
func breakerRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
