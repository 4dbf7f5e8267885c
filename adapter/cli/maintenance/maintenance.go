// Package maintenance implements the roomctl maintenance commands.
package maintenance

import (
	"fmt"
	"strconv"

	"github.com/felixgeelhaar/roomkeeper/adapter/cli"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/commands"
	"github.com/spf13/cobra"
)

// Cmd is the maintenance command group
var Cmd = &cobra.Command{
	Use:     "maintenance",
	Short:   "Schedule and progress room maintenance",
	Aliases: []string{"mnt"},
}

func init() {
	Cmd.AddCommand(scheduleCmd)
	Cmd.AddCommand(transitionCmd(commands.MaintenanceActionStart, "Start scheduled maintenance; the room goes to MAINTENANCE"))
	Cmd.AddCommand(transitionCmd(commands.MaintenanceActionComplete, "Complete in-progress maintenance"))
	Cmd.AddCommand(transitionCmd(commands.MaintenanceActionCancel, "Cancel scheduled or in-progress maintenance"))
}

func transitionCmd(action commands.MaintenanceAction, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(action) + " <maintenance-id>",
		Short: short,
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
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid maintenance ID: %w", err)
			}

			result, err := app.TransitionMaintenanceHandler.Handle(cmd.Context(), commands.TransitionMaintenanceCommand{
				MaintenanceID: id,
				Action:        string(action),
				RequestedBy:   userID,
			})
			if err != nil {
				return fmt.Errorf("failed to %s maintenance: %w", action, err)
			}
			return printResult(cmd, result)
		},
	}
}

func printResult(cmd *cobra.Command, result *commands.MaintenanceResult) error {
	out := cmd.OutOrStdout()
	if cli.JSONOutput() {
		return cli.PrintJSON(out, result)
	}
	fmt.Fprintf(out, "Maintenance %d is %s; room is %s\n", result.MaintenanceID, result.Status, result.RoomStatus)
	return nil
}
