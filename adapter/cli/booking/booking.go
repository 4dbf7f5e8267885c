// Package booking implements the roomctl booking commands.
package booking

import (
	"github.com/spf13/cobra"
)

// Cmd is the booking command group
var Cmd = &cobra.Command{
	Use:   "booking",
	Short: "Request, decide and list bookings",
}

func init() {
	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(decideCmd)
	Cmd.AddCommand(listCmd)
}
