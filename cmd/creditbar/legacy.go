package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/j-veylop/creditbar/internal/store"
)

var legacyCmd = &cobra.Command{
	Use:   "legacy",
	Short: "Manage the legacy Orb billing portal",
}

var legacySetURLCmd = &cobra.Command{
	Use:   "set-url <portal-url>",
	Short: "Configure the portal from its customer URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
			lc, err := st.SetPortalURL(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to configure portal: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Portal configured for customer %s (pricing unit %s)\n", lc.CustomerID, lc.PricingUnitID)
			return nil
		})
	},
}

var legacyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the portal settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withStore(cmd.Context(), func(ctx context.Context, st *store.Store) error {
			lc, err := st.LoadLegacyConfig(ctx)
			if err != nil {
				return fmt.Errorf("failed to load portal settings: %w", err)
			}
			if !lc.IsConfigured {
				fmt.Fprintln(cmd.OutOrStdout(), "Portal not configured")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Customer:     %s\nPricing unit: %s\nToken stored: %t\n",
				lc.CustomerID, lc.PricingUnitID, lc.HasToken)
			return nil
		})
	},
}

var legacyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the portal settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		b, err := openBackend(cfg, false)
		if err != nil {
			return err
		}
		defer b.Close()

		if err := b.client.ClearLegacyConfig(cmd.Context()); err != nil {
			return fmt.Errorf("failed to clear portal settings: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Portal settings cleared")
		return nil
	},
}

func init() {
	legacyCmd.AddCommand(legacySetURLCmd, legacyShowCmd, legacyClearCmd)
	rootCmd.AddCommand(legacyCmd)
}
