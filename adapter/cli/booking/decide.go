package booking

import (
	"fmt"
	"strconv"

	"github.com/felixgeelhaar/roomkeeper/adapter/cli"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/commands"
	"github.com/spf13/cobra"
)

var decideCmd = &cobra.Command{
	Use:   "decide <booking-id> <approved|rejected>",
	Short: "Approve or reject a pending booking",
	Long: `Approve or reject a booking. Approval re-checks the window against
approved bookings and in-progress maintenance, then re-derives the room.

Examples:
  roomctl booking decide 42 approved --as 1`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		userID, err := app.ActingUser()
		if err != nil {
			return err
		}
		bookingID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid booking ID: %w", err)
		}

		result, err := app.DecideBookingHandler.Handle(cmd.Context(), commands.DecideBookingCommand{
			BookingID: bookingID,
			Decision:  args[1],
			DecidedBy: userID,
		})
		if err != nil {
			return fmt.Errorf("failed to decide booking: %w", err)
		}

		out := cmd.OutOrStdout()
		if cli.JSONOutput() {
			return cli.PrintJSON(out, result)
		}
		fmt.Fprintf(out, "Booking %d is %s; room is %s\n", result.BookingID, result.Status, result.RoomStatus)
		return nil
	},
}
