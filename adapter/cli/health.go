package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/felixgeelhaar/roomkeeper/pkg/observability"
	"github.com/spf13/cobra"
)

var healthCheckName string

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check store and broker connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := RequireApp()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()

		var health observability.OverallHealth
		if healthCheckName != "" {
			result, ok := a.Health.CheckOne(ctx, healthCheckName)
			if !ok {
				return fmt.Errorf("no health check named %q", healthCheckName)
			}
			health = observability.OverallHealth{
				Status:    result.Status,
				Timestamp: result.Timestamp,
				Checks:    map[string]observability.HealthCheckResult{healthCheckName: result},
			}
		} else {
			health = a.Health.GetOverallHealth(ctx)
		}

		out := cmd.OutOrStdout()
		if JSONOutput() {
			if err := PrintJSON(out, health); err != nil {
				return err
			}
		} else {
			names := make([]string, 0, len(health.Checks))
			for name := range health.Checks {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				check := health.Checks[name]
				fmt.Fprintf(out, "  %-10s %s %s\n", name, check.Status, check.Message)
			}
			fmt.Fprintf(out, "overall: %s\n", health.Status)
		}

		if health.Status == observability.HealthStatusUnhealthy {
			return fmt.Errorf("unhealthy")
		}
		return nil
	},
}

func init() {
	healthCmd.Flags().StringVar(&healthCheckName, "check", "", "run only the named check")
	rootCmd.AddCommand(healthCmd)
}
