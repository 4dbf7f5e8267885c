package room

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/roomkeeper/adapter/cli"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/queries"
	"github.com/spf13/cobra"
)

var (
	listStatus     string
	listCategoryID int64
)

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List rooms with their stored status",
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}

		rooms, err := app.ListRoomsHandler.Handle(cmd.Context(), queries.ListRoomsQuery{
			Status:     listStatus,
			CategoryID: listCategoryID,
		})
		if err != nil {
			return fmt.Errorf("failed to list rooms: %w", err)
		}

		out := cmd.OutOrStdout()
		if cli.JSONOutput() {
			return cli.PrintJSON(out, rooms)
		}
		if len(rooms) == 0 {
			fmt.Fprintln(out, "No rooms.")
			return nil
		}
		for _, r := range rooms {
			fmt.Fprintf(out, "%4d  %-24s %-11s %4d seats  %s\n",
				r.ID, r.Name, r.Status, r.Capacity, strings.Join(r.Features, ","))
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringVarP(&listStatus, "status", "s", "", "filter by status (VACANT, BOOKED, MAINTENANCE)")
	listCmd.Flags().Int64Var(&listCategoryID, "category", 0, "filter by category id")
}
