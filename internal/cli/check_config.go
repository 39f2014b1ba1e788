package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCheckConfigCommand creates the check-config command
func NewCheckConfigCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Validate the configuration and print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts.ConfigPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "narsim:   %s (read timeout %s, partial bound %d bytes)\n",
				cfg.Narsim.Address(), cfg.Narsim.ReadTimeout(), cfg.Narsim.MaxPartialBytes)
			fmt.Fprintf(out, "bridge:   every %s, stale after %s, pending updates %s\n",
				cfg.Bridge.CycleInterval(), cfg.Bridge.StaleTimeout(), cfg.Bridge.PendingUpdates)
			fmt.Fprintf(out, "proxy:    %s, model %q, call timeout %s\n",
				cfg.Proxy.Mode, cfg.Proxy.DefaultModel, cfg.Proxy.CallTimeout())
			journal := "disabled"
			if cfg.Storage.SQLitePath != "" {
				journal = cfg.Storage.SQLitePath
			}
			fmt.Fprintf(out, "journal:  %s\n", journal)
			if cfg.Server.Enabled {
				fmt.Fprintf(out, "api:      http://%s/api/v1\n", cfg.Server.Addr)
			} else {
				fmt.Fprintln(out, "api:      disabled")
			}
			if cfg.Feeder.Enabled {
				fmt.Fprintf(out, "feeder:   %s every %s\n", cfg.Feeder.Callsign, cfg.Feeder.Interval())
			} else {
				fmt.Fprintln(out, "feeder:   disabled")
			}
			fmt.Fprintln(out, "config OK")
			return nil
		},
	}
}
