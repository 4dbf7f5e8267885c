// Package user implements the roomctl user commands. Users are mirrored from
// the campus identity provider; roomctl only records who may do what.
package user

import (
	"fmt"

	"github.com/felixgeelhaar/roomkeeper/adapter/cli"
	"github.com/felixgeelhaar/roomkeeper/internal/facilities/application/commands"
	"github.com/spf13/cobra"
)

// Cmd is the user command group
var Cmd = &cobra.Command{
	Use:   "user",
	Short: "Manage the user directory",
}

var (
	upsertID    int64
	upsertName  string
	upsertEmail string
	upsertRole  string
)

var upsertCmd = &cobra.Command{
	Use:   "upsert",
	Short: "Create or update a user and their role",
	Long: `Create or update a user. Roles are ADMIN, LECTURER, CLASS_REP and STUDENT.

Examples:
  roomctl user upsert --id 7 --name "Grace Hopper" --email grace@campus.edu --role lecturer`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}

		u, err := app.UpsertUserHandler.Handle(cmd.Context(), commands.UpsertUserCommand{
			ID:    upsertID,
			Name:  upsertName,
			Email: upsertEmail,
			Role:  upsertRole,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert user: %w", err)
		}

		out := cmd.OutOrStdout()
		if cli.JSONOutput() {
			return cli.PrintJSON(out, map[string]any{
				"id":    u.ID,
				"name":  u.Name,
				"email": u.Email,
				"role":  u.Role,
			})
		}
		fmt.Fprintf(out, "User %d (%s) is %s\n", u.ID, u.Email, u.Role)
		return nil
	},
}

func init() {
	upsertCmd.Flags().Int64Var(&upsertID, "id", 0, "user id")
	upsertCmd.Flags().StringVar(&upsertName, "name", "", "display name")
	upsertCmd.Flags().StringVar(&upsertEmail, "email", "", "email address")
	upsertCmd.Flags().StringVar(&upsertRole, "role", "", "ADMIN, LECTURER, CLASS_REP or STUDENT")
	_ = upsertCmd.MarkFlagRequired("id")
	_ = upsertCmd.MarkFlagRequired("role")

	Cmd.AddCommand(upsertCmd)
}
