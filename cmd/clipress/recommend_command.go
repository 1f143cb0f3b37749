package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"clipress/internal/api"
	"clipress/internal/config"
	"clipress/internal/media/ffprobe"
	"clipress/internal/settings"
	"clipress/internal/textutil"
	"clipress/internal/workflow"
)

func newRecommendCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "recommend <file>",
		Short: "Probe a file locally and suggest compression settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}

			prober := ffprobe.NewProber(cfg.Compression.FFprobeBinary)
			prober.Timeout = cfg.ProbeTimeout()
			info, err := prober.Probe(cmd.Context(), path)
			if err != nil {
				return err
			}
			suggested := settings.Recommend(info)
			rec := api.FromRecommendation(workflow.Recommendation{
				Info:            info,
				Settings:        suggested,
				EstimateSeconds: settings.EstimateSeconds(info.SizeBytes, suggested.Preset),
			})

			if ctx.JSONMode() {
				return writeJSON(cmd, rec)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "File:        %s\n", path)
			fmt.Fprintf(out, "Size:        %s\n", textutil.FormatBytes(rec.Info.SizeBytes))
			fmt.Fprintf(out, "Duration:    %s\n", textutil.FormatDuration(time.Duration(rec.Info.DurationSeconds*float64(time.Second))))
			if rec.Info.Width > 0 && rec.Info.Height > 0 {
				fmt.Fprintf(out, "Video:       %s %dx%d\n", orDash(rec.Info.VideoCodec), rec.Info.Width, rec.Info.Height)
			}
			fmt.Fprintf(out, "Audio:       %s\n", orDash(rec.Info.AudioCodec))
			fmt.Fprintf(out, "Suggested:   %s\n", formatSettings(rec.Settings))
			fmt.Fprintf(out, "Estimate:    %s\n", formatEstimate(rec.EstimateSeconds))
			return nil
		},
	}
}
