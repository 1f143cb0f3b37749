package main

import (
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"clipress/internal/api"
	"clipress/internal/ipc"
)

const watchInterval = 500 * time.Millisecond

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "watch [job-id]",
		Short: "Follow compression progress",
		Long:  "Follow a single job until it finishes, or every active job until the queue drains.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID := ""
			if len(args) == 1 {
				jobID = args[0]
			}
			if plain {
				return watchPlain(cmd, ctx, jobID, watchInterval)
			}
			return runWatch(cmd, ctx, jobID)
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "Print progress lines instead of the interactive view")
	return cmd
}

// runWatch shows the interactive view on a terminal and falls back to
// line output otherwise.
func runWatch(cmd *cobra.Command, ctx *commandContext, jobID string) error {
	if ctx.JSONMode() || !shouldColorize(cmd.OutOrStdout()) {
		return watchPlain(cmd, ctx, jobID, watchInterval)
	}

	client, err := ctx.dialClient()
	if err != nil {
		return err
	}
	defer client.Close()

	model := newWatchModel(clientJobSource(client, jobID), jobID, watchInterval)
	final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	m, ok := final.(watchModel)
	if !ok {
		return nil
	}
	if m.err != nil {
		return m.err
	}
	// The alt screen is gone after exit; leave a summary behind.
	if m.done {
		writeWatchSummary(cmd.OutOrStdout(), m.jobs)
	}
	return nil
}

func clientJobSource(client *ipc.Client, jobID string) jobSource {
	if jobID != "" {
		return func() ([]api.Job, error) {
			resp, err := client.JobShow(jobID)
			if err != nil {
				return nil, err
			}
			return []api.Job{resp.Job}, nil
		}
	}
	return func() ([]api.Job, error) {
		resp, err := client.JobList([]string{"queued", "processing"}, "")
		if err != nil {
			return nil, err
		}
		return resp.Jobs, nil
	}
}

// watchPlain prints a line whenever a job's status or progress changes.
func watchPlain(cmd *cobra.Command, ctx *commandContext, jobID string, interval time.Duration) error {
	client, err := ctx.dialClient()
	if err != nil {
		return err
	}
	defer client.Close()

	source := clientJobSource(client, jobID)
	out := cmd.OutOrStdout()
	seen := make(map[string]string)
	var last []api.Job
	for {
		jobs, err := source()
		if err != nil {
			return err
		}
		for _, job := range jobs {
			line := plainJobLine(job)
			if seen[job.ID] == line {
				continue
			}
			seen[job.ID] = line
			if ctx.JSONMode() {
				if err := writeJSON(cmd, job); err != nil {
					return err
				}
				continue
			}
			fmt.Fprintln(out, line)
		}
		if len(jobs) > 0 {
			last = jobs
		}
		if watchFinished(jobID, jobs) {
			if jobID == "" && len(last) == 0 && !ctx.JSONMode() {
				fmt.Fprintln(out, "No active jobs")
			}
			return nil
		}
		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-time.After(interval):
		}
	}
}

func plainJobLine(job api.Job) string {
	return fmt.Sprintf("%s  %-10s %s  %s", shortJobID(job.ID), job.Status, progressCell(job), displayName(job))
}

func writeWatchSummary(out io.Writer, jobs []api.Job) {
	for _, job := range jobs {
		fmt.Fprintln(out, plainJobLine(job))
	}
}
