package booking

import (
	"fmt"

	"github.com/felixgeelhaar/roomkeeper/adapter/cli"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/commands"
	"github.com/spf13/cobra"
)

var (
	roomID  int64
	start   string
	end     string
	purpose string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Request a booking",
	Long: `Request a room for a time window. Requests by administrators are
approved immediately; everyone else's wait for a decision.

Examples:
  roomctl booking create --room 3 --start 2024-05-02T09:00 --end 2024-05-02T11:00 --purpose "Thesis defence"`,
	Aliases: []string{"book"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		userID, err := app.ActingUser()
		if err != nil {
			return err
		}
		startTime, err := cli.ParseTime("start", start)
		if err != nil {
			return err
		}
		endTime, err := cli.ParseTime("end", end)
		if err != nil {
			return err
		}

		result, err := app.CreateBookingHandler.Handle(cmd.Context(), commands.CreateBookingCommand{
			RoomID:    roomID,
			UserID:    userID,
			StartTime: startTime,
			EndTime:   endTime,
			Purpose:   purpose,
		})
		if err != nil {
			return fmt.Errorf("failed to create booking: %w", err)
		}

		out := cmd.OutOrStdout()
		if cli.JSONOutput() {
			return cli.PrintJSON(out, result)
		}
		fmt.Fprintf(out, "Booking %d is %s\n", result.BookingID, result.Status)
		cli.Rule(out)
		fmt.Fprintf(out, "  Room:   %d (%s)\n", roomID, result.RoomStatus)
		fmt.Fprintf(out, "  Window: %s - %s\n", cli.FormatTime(startTime), cli.FormatTime(endTime))
		return nil
	},
}

func init() {
	createCmd.Flags().Int64Var(&roomID, "room", 0, "room id")
	createCmd.Flags().StringVar(&start, "start", "", "start time")
	createCmd.Flags().StringVar(&end, "end", "", "end time")
	createCmd.Flags().StringVarP(&purpose, "purpose", "p", "", "purpose of the booking")
	_ = createCmd.MarkFlagRequired("room")
	_ = createCmd.MarkFlagRequired("start")
	_ = createCmd.MarkFlagRequired("end")
	_ = createCmd.MarkFlagRequired("purpose")
}
