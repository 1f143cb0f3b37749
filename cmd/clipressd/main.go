// Command clipressd runs the clipress compression daemon in the foreground.
// It is equivalent to `clipress daemon` and suits service managers that
// expect a dedicated binary.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"clipress/internal/config"
	"clipress/internal/daemonrun"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "clipressd:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string
	var opts daemonrun.Options

	cmd := &cobra.Command{
		Use:           "clipressd",
		Short:         "Run the clipress compression daemon",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return daemonrun.Run(cmd.Context(), cfg, opts)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Configuration file path")
	cmd.Flags().BoolVar(&opts.Paused, "paused", false, "Accept jobs but leave the engine stopped")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
	return cmd
}
