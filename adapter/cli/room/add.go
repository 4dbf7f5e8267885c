package room

import (
	"fmt"

	"github.com/felixgeelhaar/roomkeeper/adapter/cli"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/commands"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/domain"
	"github.com/spf13/cobra"
)

var (
	addName       string
	addCategoryID int64
	addCapacity   int
	addBuilding   string
	addFloor      int
	addFeatures   []string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a room",
	Long: `Register a room. New rooms start VACANT.

Examples:
  roomctl room add --name "Lecture Hall B" --capacity 80 --building Main --floor 2 --feature projector`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		userID, err := app.ActingUser()
		if err != nil {
			return err
		}

		id, err := app.RegisterRoomHandler.Handle(cmd.Context(), commands.RegisterRoomCommand{
			Details: domain.RoomDetails{
				Name:       addName,
				CategoryID: addCategoryID,
				Capacity:   addCapacity,
				Building:   addBuilding,
				Floor:      addFloor,
				Features:   addFeatures,
			},
			RequestedBy: userID,
		})
		if err != nil {
			return fmt.Errorf("failed to register room: %w", err)
		}

		out := cmd.OutOrStdout()
		if cli.JSONOutput() {
			return cli.PrintJSON(out, map[string]int64{"room_id": id})
		}
		fmt.Fprintf(out, "Registered room %d (%s)\n", id, addName)
		return nil
	},
}

func init() {
	addCmd.Flags().StringVarP(&addName, "name", "n", "", "room name")
	addCmd.Flags().Int64Var(&addCategoryID, "category", 0, "category id")
	addCmd.Flags().IntVarP(&addCapacity, "capacity", "c", 0, "seats")
	addCmd.Flags().StringVar(&addBuilding, "building", "", "building")
	addCmd.Flags().IntVar(&addFloor, "floor", 0, "floor")
	addCmd.Flags().StringSliceVar(&addFeatures, "feature", nil, "feature, repeatable")
	_ = addCmd.MarkFlagRequired("name")
	_ = addCmd.MarkFlagRequired("capacity")
}
