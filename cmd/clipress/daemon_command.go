package main

import (
	"github.com/spf13/cobra"

	"clipress/internal/daemonrun"
)

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	var paused bool
	var logLevel string
	cmd := &cobra.Command{
		Use:    "daemon",
		Short:  "Run the clipress daemon in the foreground (internal)",
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{LogLevel: logLevel, Paused: paused})
		},
	}
	cmd.Flags().BoolVar(&paused, "paused", false, "Leave the engine stopped after boot")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level")
	return cmd
}
