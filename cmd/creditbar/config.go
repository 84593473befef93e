package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/j-veylop/creditbar/internal/models"
	"github.com/j-veylop/creditbar/internal/store"
)

// configFlags holds the values given to `config set`.
type configFlags struct {
	pollingSeconds int
	low            int64
	critical       int64
	notifications  bool
	sound          bool
	theme          string
	retentionDays  int
}

var setFlags configFlags

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the backend settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the settings (secrets omitted)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
			c, err := st.LoadConfig(ctx)
			if err != nil {
				return fmt.Errorf("failed to load settings: %w", err)
			}
			return printConfig(cmd.OutOrStdout(), c)
		})
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change one or more settings",
	Example: `  creditbar config set --low 1000 --critical 200
  creditbar config set --interval 120 --notifications=false`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
			current, err := st.LoadConfig(ctx)
			if err != nil {
				return fmt.Errorf("failed to load settings: %w", err)
			}
			updated := applyConfigFlags(current, setFlags, cmd.Flags().Changed)
			if err := st.UpdateConfig(ctx, updated); err != nil {
				return fmt.Errorf("failed to save settings: %w", err)
			}
			return printConfig(cmd.OutOrStdout(), st.Snapshot().Config)
		})
	},
}

func init() {
	f := configSetCmd.Flags()
	f.IntVar(&setFlags.pollingSeconds, "interval", 0, "Polling interval in seconds")
	f.Int64Var(&setFlags.low, "low", 0, "Low balance threshold")
	f.Int64Var(&setFlags.critical, "critical", 0, "Critical balance threshold")
	f.BoolVar(&setFlags.notifications, "notifications", true, "Desktop notifications")
	f.BoolVar(&setFlags.sound, "sound", false, "Sound alerts")
	f.StringVar(&setFlags.theme, "theme", "", "Theme: Light, Dark or System")
	f.IntVar(&setFlags.retentionDays, "retention", 0, "Days of balance history to keep")

	configCmd.AddCommand(configShowCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}

// applyConfigFlags overlays the flags the user actually passed onto c.
func applyConfigFlags(c models.AppConfig, f configFlags, changed func(string) bool) models.AppConfig {
	if changed("interval") {
		c.PollingIntervalSeconds = f.pollingSeconds
	}
	if changed("low") {
		c.LowBalanceThreshold = f.low
	}
	if changed("critical") {
		c.CriticalBalanceThreshold = f.critical
	}
	if changed("notifications") {
		c.EnableNotifications = f.notifications
	}
	if changed("sound") {
		c.EnableSoundAlerts = f.sound
	}
	if changed("theme") {
		c.Theme = models.Theme(f.theme)
	}
	if changed("retention") {
		c.DataRetentionDays = f.retentionDays
	}
	return c
}

func printConfig(w io.Writer, c models.AppConfig) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(c.Redacted())
}
