package room

import (
	"fmt"

	"github.com/felixgeelhaar/roomkeeper/adapter/cli"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/commands"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/queries"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <room-id>",
	Short: "Compare a room's stored status with what its schedule implies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		id, err := parseRoomID(args[0])
		if err != nil {
			return err
		}

		status, err := app.GetRoomStatusHandler.Handle(cmd.Context(), queries.GetRoomStatusQuery{RoomID: id})
		if err != nil {
			return fmt.Errorf("failed to get room status: %w", err)
		}

		out := cmd.OutOrStdout()
		if cli.JSONOutput() {
			return cli.PrintJSON(out, status)
		}
		fmt.Fprintf(out, "%s (room %d)\n", status.Name, status.RoomID)
		cli.Rule(out)
		fmt.Fprintf(out, "  Stored:  %s\n", status.Stored)
		fmt.Fprintf(out, "  Derived: %s (%s)\n", status.Derived, status.Cause)
		if status.Drift {
			fmt.Fprintln(out, "  Drift:   yes, run `roomctl room reconcile` to repair")
		}
		return nil
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <room-id>",
	Short: "Re-derive and store a room's status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		userID, err := app.ActingUser()
		if err != nil {
			return err
		}
		id, err := parseRoomID(args[0])
		if err != nil {
			return err
		}

		outcome, err := app.ReconcileRoomHandler.Handle(cmd.Context(), commands.ReconcileRoomCommand{
			RoomID:      id,
			RequestedBy: userID,
		})
		if err != nil {
			return fmt.Errorf("failed to reconcile room: %w", err)
		}

		out := cmd.OutOrStdout()
		if cli.JSONOutput() {
			return cli.PrintJSON(out, outcome)
		}
		if outcome.Changed {
			fmt.Fprintf(out, "Room %d: %s -> %s (%s)\n", outcome.RoomID, outcome.From, outcome.To, outcome.Cause)
		} else {
			fmt.Fprintf(out, "Room %d unchanged: %s (%s)\n", outcome.RoomID, outcome.To, outcome.Cause)
		}
		return nil
	},
}
