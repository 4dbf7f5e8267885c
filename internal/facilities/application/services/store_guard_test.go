package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
	"github.com/felixgeelhaar/roomkeeper/pkg/observability"
	"github.com/stretchr/testify/assert"
)

func TestStoreGuard_TripsAfterConsecutiveFailures(t *testing.T) {
	metrics := observability.NewInMemoryMetrics()
	guard := NewStoreGuard(StoreGuardConfig{FailureThreshold: 2, Timeout: time.Minute}, nil, metrics)
	boom := errors.New("dial tcp: connection refused")
	fail := func(context.Context) error { return boom }

	assert.ErrorIs(t, guard.Do(context.Background(), fail), boom)
	assert.ErrorIs(t, guard.Do(context.Background(), fail), boom)
	assert.Equal(t, "open", guard.State())

	calls := 0
	err := guard.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.True(t, breakerRejected(err))
	assert.Zero(t, calls)
	assert.Equal(t, int64(1), metrics.GetCounter("roomkeeper.store.breaker_transitions", observability.T("to", "open")))
}

func TestStoreGuard_BusinessErrorsKeepBreakerClosed(t *testing.T) {
	guard := NewStoreGuard(StoreGuardConfig{FailureThreshold: 1, Timeout: time.Minute}, nil, nil)

	for _, err := range []error{
		domain.ErrRoomNotFound,
		&domain.ConflictError{Reason: domain.ConflictAlreadyBooked},
		context.Canceled,
	} {
		got := guard.Do(context.Background(), func(context.Context) error { return err })
		assert.ErrorIs(t, got, err)
	}
	assert.Equal(t, "closed", guard.State())
}

func TestStoreGuard_NilRunsUnguarded(t *testing.T) {
	var guard *StoreGuard
	boom := errors.New("boom")

	assert.ErrorIs(t, guard.Do(context.Background(), func(context.Context) error { return boom }), boom)
	assert.Equal(t, "closed", guard.State())
}
