package booking

import (
	"fmt"

	"github.com/felixgeelhaar/roomkeeper/adapter/cli"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/queries"
	"github.com/spf13/cobra"
)

var listUserID int64

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List a user's bookings",
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		userID := listUserID
		if userID == 0 {
			if userID, err = app.ActingUser(); err != nil {
				return err
			}
		}

		bookings, err := app.ListUserBookingsHandler.Handle(cmd.Context(), queries.ListUserBookingsQuery{UserID: userID})
		if err != nil {
			return fmt.Errorf("failed to list bookings: %w", err)
		}

		out := cmd.OutOrStdout()
		if cli.JSONOutput() {
			return cli.PrintJSON(out, bookings)
		}
		if len(bookings) == 0 {
			fmt.Fprintln(out, "No bookings.")
			return nil
		}
		for _, b := range bookings {
			fmt.Fprintf(out, "%6d  room %-4d %s - %s  %-9s %s\n",
				b.ID, b.RoomID, cli.FormatTime(b.StartTime), cli.FormatTime(b.EndTime), b.Status, b.Purpose)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().Int64Var(&listUserID, "user", 0, "user whose bookings to list (defaults to --as)")
}
