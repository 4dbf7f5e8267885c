package room

import (
	"fmt"

	"github.com/felixgeelhaar/roomkeeper/adapter/cli"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/queries"
	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule <room-id>",
	Short: "Show a room's bookings and maintenance",
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

		schedule, err := app.GetRoomScheduleHandler.Handle(cmd.Context(), queries.GetRoomScheduleQuery{RoomID: id})
		if err != nil {
			return fmt.Errorf("failed to get room schedule: %w", err)
		}

		out := cmd.OutOrStdout()
		if cli.JSONOutput() {
			return cli.PrintJSON(out, schedule)
		}
		fmt.Fprintf(out, "%s (%s)\n", schedule.Room.Name, schedule.Room.Status)
		cli.Rule(out)
		fmt.Fprintln(out, "Bookings:")
		if len(schedule.Bookings) == 0 {
			fmt.Fprintln(out, "  none")
		}
		for _, b := range schedule.Bookings {
			fmt.Fprintf(out, "  %s - %s  %-9s %s\n", cli.FormatTime(b.StartTime), cli.FormatTime(b.EndTime), b.Status, b.Purpose)
		}
		fmt.Fprintln(out, "Maintenance:")
		if len(schedule.Maintenance) == 0 {
			fmt.Fprintln(out, "  none")
		}
		for _, m := range schedule.Maintenance {
			fmt.Fprintf(out, "  %s - %s  %-11s %s\n", cli.FormatTime(m.StartDate), cli.FormatTime(m.EndDate), m.Status, m.Description)
		}
		return nil
	},
}
