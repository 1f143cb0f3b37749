package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"clipress/internal/api"
	"clipress/internal/config"
	"clipress/internal/ipc"
	"clipress/internal/queueaccess"
)

// settingsFlags are the per-job overrides shared by submit and defaults set.
type settingsFlags struct {
	preset       string
	resolution   string
	audioBitrate string
	videoBitrate string
	removeAudio  bool
	noThumbnail  bool
}

func (f *settingsFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.preset, "preset", "", "Encoder preset (ultra_fast, fast, medium, slow, veryslow)")
	cmd.Flags().StringVar(&f.resolution, "resolution", "", "Output resolution (keep, 240p, 360p, 480p, 720p, 1080p)")
	cmd.Flags().StringVar(&f.audioBitrate, "audio-bitrate", "", "Audio bitrate (32k-320k, or none)")
	cmd.Flags().StringVar(&f.videoBitrate, "video-bitrate", "", "Video bitrate (100k-8000k, or auto)")
	cmd.Flags().BoolVar(&f.removeAudio, "remove-audio", false, "Drop the audio track")
	cmd.Flags().BoolVar(&f.noThumbnail, "no-thumbnail", false, "Skip thumbnail generation")
}

// changed reports whether any settings flag was given explicitly.
func (f *settingsFlags) changed(cmd *cobra.Command) bool {
	for _, name := range []string{"preset", "resolution", "audio-bitrate", "video-bitrate", "remove-audio", "no-thumbnail"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

// settings returns the given flags. Flags left off stay unset so the
// daemon fills them from the user's defaults.
func (f *settingsFlags) settings(cmd *cobra.Command) api.Settings {
	out := api.Settings{
		Preset:       f.preset,
		Resolution:   f.resolution,
		AudioBitrate: f.audioBitrate,
		VideoBitrate: f.videoBitrate,
	}
	if cmd.Flags().Changed("remove-audio") {
		removeAudio := f.removeAudio
		out.RemoveAudio = &removeAudio
	}
	if cmd.Flags().Changed("no-thumbnail") {
		thumbnail := !f.noThumbnail
		out.GenerateThumbnail = &thumbnail
	}
	return out
}

func defaultUserID() string {
	if user := strings.TrimSpace(os.Getenv("USER")); user != "" {
		return user
	}
	return "local"
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var userID string
	var name string
	var watch bool
	var flags settingsFlags

	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Queue a media file for compression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := config.ExpandPath(strings.TrimSpace(args[0]))
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			if abs, absErr := filepath.Abs(source); absErr == nil {
				source = abs
			}

			req := ipc.SubmitRequest{
				UserID:     strings.TrimSpace(userID),
				SourcePath: source,
				SourceName: strings.TrimSpace(name),
			}
			if flags.changed(cmd) {
				s := flags.settings(cmd)
				req.Settings = &s
			}

			var resp *ipc.SubmitResponse
			err = ctx.withClient(func(client *ipc.Client) error {
				var callErr error
				resp, callErr = client.Submit(req)
				return callErr
			})
			if err != nil {
				return err
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, resp)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Queued job %s\n", resp.JobID)
			if resp.QueuePosition > 0 {
				fmt.Fprintf(out, "Queue position: %d\n", resp.QueuePosition)
			}
			fmt.Fprintf(out, "Estimated compression time: %s\n", formatEstimate(resp.EstimateSeconds))
			if watch {
				return runWatch(cmd, ctx, resp.JobID)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", defaultUserID(), "Submitting user id")
	cmd.Flags().StringVar(&name, "name", "", "Display name (defaults to the file name)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Follow the job until it finishes")
	flags.register(cmd)
	return cmd
}

func newCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a queued or running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Cancel(strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, resp.Job)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %s is %s\n", resp.Job.ID, strings.ToLower(formatStatusLabel(resp.Job.Status)))
				return nil
			})
		},
	}
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job, its queue position, and its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueueAccess(cmd, func(access queueaccess.Access) error {
				job, err := access.Describe(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					if queueaccess.IsNotFound(err) {
						return fmt.Errorf("job %s not found", args[0])
					}
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, job)
				}
				renderJobDetail(cmd.OutOrStdout(), *job)
				return nil
			})
		},
	}
}
