// Package room implements the roomctl room commands.
package room

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// Cmd is the room command group
var Cmd = &cobra.Command{
	Use:   "room",
	Short: "Register rooms and inspect their status",
}

func init() {
	Cmd.AddCommand(addCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(statusCmd)
	Cmd.AddCommand(scheduleCmd)
	Cmd.AddCommand(reconcileCmd)
}

func parseRoomID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid room ID: %w", err)
	}
	return id, nil
}
