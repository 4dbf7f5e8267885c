// Package clitest wires a roomctl App against a throwaway sqlite store.
package clitest

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/felixgeelhaar/roomkeeper/adapter/cli"
	internalApp "github.com/felixgeelhaar/roomkeeper/internal/app"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/commands"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
	sharedApplication "github.com/felixgeelhaar/roomkeeper/internal/shared/application"
	"github.com/felixgeelhaar/roomkeeper/pkg/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// Seeded user ids.
const (
	AdminID    int64 = 1
	LecturerID int64 = 2
	StudentID  int64 = 3
)

// Epoch is the instant the test clock starts at.
var Epoch = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

// Env is a wired CLI app plus handles for assertions.
type Env struct {
	App       *cli.App
	Container *internalApp.Container
	Clock     *sharedApplication.FixedClock
	RoomID    int64
}

// New installs a fresh App as the global CLI app, acting as the admin. One
// room is registered.
func New(t *testing.T) *Env {
	t.Helper()

	cfg := &config.Config{
		AppEnv:                 "test",
		LogFormat:              "text",
		SQLitePath:             filepath.Join(t.TempDir(), "rooms.db"),
		StatusSweepSchedule:    "*/5 * * * *",
		LifecycleSweepSchedule: "0 * * * *",
		SweepTimezone:          "UTC",
		SweepConcurrency:       2,
		SweepRoomTimeout:       time.Second,
		BookingLockTTL:         time.Second,
		BookingLockWait:        time.Second,
		StoreBreakerFailures:   3,
		StoreBreakerTimeout:    time.Second,
		OutboxBatchSize:        50,
		OutboxMaxRetries:       3,
	}
	clock := sharedApplication.NewFixedClock(Epoch)

	ctx := context.Background()
	c, err := internalApp.NewLocalContainer(ctx, cfg, slog.New(slog.DiscardHandler), internalApp.WithClock(clock))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	for _, u := range []commands.UpsertUserCommand{
		{ID: AdminID, Name: "Ada Admin", Email: "ada@campus.test", Role: "ADMIN"},
		{ID: LecturerID, Name: "Lee Lecturer", Email: "lee@campus.test", Role: "LECTURER"},
		{ID: StudentID, Name: "Sam Student", Email: "sam@campus.test", Role: "STUDENT"},
	} {
		_, err := c.UpsertUserHandler.Handle(ctx, u)
		require.NoError(t, err)
	}

	roomID, err := c.RegisterRoomHandler.Handle(ctx, commands.RegisterRoomCommand{
		Details:     domain.RoomDetails{Name: "Lecture Hall A", Capacity: 120, Building: "Main", Floor: 1},
		RequestedBy: AdminID,
	})
	require.NoError(t, err)

	a := cli.NewApp(c)
	a.SetCurrentUserID(AdminID)
	cli.SetApp(a)
	cli.SetJSONOutput(false)
	t.Cleanup(func() { cli.SetApp(nil) })

	return &Env{App: a, Container: c, Clock: clock, RoomID: roomID}
}

// At returns Epoch's date at hh:mm UTC.
func At(hh, mm int) time.Time {
	return time.Date(Epoch.Year(), Epoch.Month(), Epoch.Day(), hh, mm, 0, 0, time.UTC)
}

// Run executes cmd.RunE with args and returns what it printed.
func Run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())
	t.Cleanup(func() { cmd.SetOut(nil) })
	err := cmd.RunE(cmd, args)
	return out.String(), err
}

// SetFlags sets each name/value pair on cmd and resets them when the test ends.
func SetFlags(t *testing.T, cmd *cobra.Command, pairs ...string) {
	t.Helper()
	require.Zero(t, len(pairs)%2, "flag pairs must be even")
	for i := 0; i < len(pairs); i += 2 {
		f := cmd.Flags().Lookup(pairs[i])
		require.NotNil(t, f, "unknown flag %s", pairs[i])
		prev := f.Value.String()
		require.NoError(t, cmd.Flags().Set(pairs[i], pairs[i+1]))
		t.Cleanup(func() { resetFlag(f, prev) })
	}
}
