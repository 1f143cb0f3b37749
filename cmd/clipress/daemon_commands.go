package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"clipress/internal/daemonctl"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var startPaused bool
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the clipress daemon and begin compressing queued jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			result, err := daemonctl.EnsureStarted(ctx.socketPath(), exe, daemonLaunchOptions(ctx, startPaused), 10*time.Second)
			if err != nil {
				return err
			}
			printStartResult(cmd.OutOrStdout(), result, "Daemon started")
			return nil
		},
	}
	startCmd.Flags().BoolVar(&startPaused, "paused", false, "Launch the daemon without starting the engine")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the clipress daemon (running jobs are marked interrupted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(ctx.socketPath(), ctx.configValue(), 10*time.Second)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill && result.PID > 0 {
				fmt.Fprintf(stdout, "Daemon did not exit in time; killed pid %d\n", result.PID)
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}

	pauseCmd := &cobra.Command{
		Use:   "pause",
		Short: "Stop compressing without exiting the daemon; submissions keep queueing",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := daemonctl.Pause(ctx.socketPath())
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(cmd.OutOrStdout(), "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Engine paused")
			return nil
		},
	}

	restartCmd := &cobra.Command{
		Use:   "restart",
		Short: "Restart the clipress daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonExecutable()
			if err != nil {
				return err
			}
			result, err := daemonctl.Restart(
				ctx.socketPath(),
				ctx.configValue(),
				exe,
				daemonLaunchOptions(ctx, false),
				10*time.Second,
				10*time.Second,
			)
			if err != nil {
				return err
			}
			if result.WasRunning {
				fmt.Fprintln(stdout, "Daemon stopped")
			}
			printStartResult(stdout, result.Start, "Daemon restarted")
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dependency, and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), ctx.configValue())
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, snap.Status)
			}
			renderStatus(cmd.OutOrStdout(), snap, shouldColorize(cmd.OutOrStdout()))
			return nil
		},
	}

	return []*cobra.Command{startCmd, stopCmd, pauseCmd, restartCmd, statusCmd}
}

func printStartResult(out io.Writer, result daemonctl.StartResult, startedMessage string) {
	if result.Launched {
		fmt.Fprintln(out, "Daemon not running, launching...")
	}
	switch result.State {
	case daemonctl.StartStateStarted:
		fmt.Fprintln(out, startedMessage)
	case daemonctl.StartStateAlreadyRunning:
		fmt.Fprintln(out, "Daemon already running")
	default:
		if message := strings.TrimSpace(result.Message); message != "" {
			fmt.Fprintln(out, message)
			return
		}
		fmt.Fprintln(out, "Start request sent")
	}
}

func renderStatus(out io.Writer, snap *daemonctl.Snapshot, colorize bool) {
	status := snap.Status
	section := func(title string) {
		for _, line := range renderSectionHeader(title, colorize) {
			fmt.Fprintln(out, line)
		}
	}

	section("System Status")
	switch {
	case !snap.Reachable:
		fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, "Not running (run `clipress start`)", colorize))
	case status.Running:
		fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, "Running (pid "+strconv.Itoa(status.PID)+")", colorize))
	default:
		fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, "Paused (run `clipress start`)", colorize))
	}
	if snap.Reachable {
		slots := fmt.Sprintf("%d/%d busy, %d queued", len(status.Workflow.Active), status.Workflow.Slots, status.Workflow.Pending)
		fmt.Fprintln(out, renderStatusLine("Slots", statusInfo, slots, colorize))
		if status.APIBind != "" {
			fmt.Fprintln(out, renderStatusLine("HTTP API", statusOK, status.APIBind, colorize))
		} else {
			fmt.Fprintln(out, renderStatusLine("HTTP API", statusInfo, "Disabled", colorize))
		}
		if status.Workflow.LastError != "" {
			fmt.Fprintln(out, renderStatusLine("Last error", statusWarn, status.Workflow.LastError, colorize))
		}
	}
	fmt.Fprintln(out, renderStatusLine("Delivery", statusInfo, orDash(status.Delivery), colorize))
	fmt.Fprintln(out, renderStatusLine("Database", statusInfo, status.QueueDBPath, colorize))
	fmt.Fprintln(out)

	section("Dependencies")
	for _, line := range dependencyLines(status.Dependencies, snap.DependencySummary, colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out)

	if snap.Reachable {
		section("Event Sinks")
		for _, line := range eventSinkLines(status.EventSinks, colorize) {
			fmt.Fprintln(out, line)
		}
		fmt.Fprintln(out)
	}

	section("Queue Status")
	rows := buildQueueStatusRows(status.Workflow.QueueStats)
	if len(rows) == 0 {
		fmt.Fprintln(out, "Queue is empty")
		return
	}
	fmt.Fprint(out, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
}

func daemonExecutable() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable: %w", err)
	}
	return exe, nil
}

func daemonLaunchOptions(ctx *commandContext, paused bool) daemonctl.LaunchOptions {
	return daemonctl.LaunchOptions{Paused: paused, ConfigPath: ctx.configPath()}
}
