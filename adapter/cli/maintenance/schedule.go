package maintenance

import (
	"fmt"

	"github.com/felixgeelhaar/roomkeeper/adapter/cli"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/commands"
	"github.com/spf13/cobra"
)

var (
	roomID      int64
	description string
	start       string
	end         string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Schedule maintenance for a room",
	Long: `Schedule maintenance. A window that has already begun starts in
progress and takes the room out of service immediately.

Examples:
  roomctl maintenance schedule --room 3 --description "Projector repair" \
    --start 2024-05-02T08:00 --end 2024-05-02T12:00`,
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

		result, err := app.ScheduleMaintenanceHandler.Handle(cmd.Context(), commands.ScheduleMaintenanceCommand{
			RoomID:      roomID,
			Description: description,
			StartDate:   startTime,
			EndDate:     endTime,
			RequestedBy: userID,
		})
		if err != nil {
			return fmt.Errorf("failed to schedule maintenance: %w", err)
		}
		return printResult(cmd, result)
	},
}

func init() {
	scheduleCmd.Flags().Int64Var(&roomID, "room", 0, "room id")
	scheduleCmd.Flags().StringVarP(&description, "description", "d", "", "what is being done")
	scheduleCmd.Flags().StringVar(&start, "start", "", "start time")
	scheduleCmd.Flags().StringVar(&end, "end", "", "end time")
	_ = scheduleCmd.MarkFlagRequired("room")
	_ = scheduleCmd.MarkFlagRequired("description")
	_ = scheduleCmd.MarkFlagRequired("start")
	_ = scheduleCmd.MarkFlagRequired("end")
}
