// Package sweep implements the roomctl sweep commands, the manual
// counterpart of the scheduled reconciliation jobs.
package sweep

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/roomkeeper/adapter/cli"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/services"
	"github.com/spf13/cobra"
)

// Cmd is the sweep command group
var Cmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a reconciliation sweep now",
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Re-derive every room's status and repair drift",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, s cli.Sweeper) *services.SweepReport {
			return s.RunStatusSweep(ctx)
		})
	},
}

var lifecycleCmd = &cobra.Command{
	Use:   "lifecycle",
	Short: "Complete finished bookings, then re-derive their rooms",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, func(ctx context.Context, s cli.Sweeper) *services.SweepReport {
			return s.RunLifecycleSweep(ctx)
		})
	},
}

func init() {
	Cmd.AddCommand(statusCmd)
	Cmd.AddCommand(lifecycleCmd)
}

func run(cmd *cobra.Command, sweep func(context.Context, cli.Sweeper) *services.SweepReport) error {
	app, err := cli.RequireApp()
	if err != nil {
		return err
	}

	report := sweep(cmd.Context(), app.Sweeper)
	if report.Aborted != nil {
		return fmt.Errorf("%s sweep aborted: %w", report.Kind, report.Aborted)
	}

	out := cmd.OutOrStdout()
	if cli.JSONOutput() {
		if err := cli.PrintJSON(out, report); err != nil {
			return err
		}
	} else {
		printReport(cmd, report)
	}
	if len(report.Failures) > 0 {
		return fmt.Errorf("%s sweep: %d room(s) failed: %w", report.Kind, len(report.Failures), report.Err())
	}
	return nil
}

func printReport(cmd *cobra.Command, report *services.SweepReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s sweep finished in %s\n", report.Kind, report.Duration())
	cli.Rule(out)
	fmt.Fprintf(out, "  Rooms checked:      %d\n", report.RoomsChecked)
	fmt.Fprintf(out, "  Rooms changed:      %d\n", report.RoomsChanged)
	if report.Kind == services.SweepLifecycle {
		fmt.Fprintf(out, "  Bookings completed: %d\n", report.BookingsCompleted)
	}
	for _, c := range report.Changes {
		fmt.Fprintf(out, "  room %d: %s -> %s (%s)\n", c.RoomID, c.From, c.To, c.Cause)
	}
	for _, f := range report.FailureMessages() {
		fmt.Fprintf(out, "  failed: %s\n", f)
	}
}
