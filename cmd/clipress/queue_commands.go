package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"clipress/internal/ipc"
	"clipress/internal/queueaccess"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the job queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var userID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueueAccess(cmd, func(access queueaccess.Access) error {
				jobs, err := access.List(cmd.Context(), statuses, strings.TrimSpace(userID))
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, jobs)
				}
				renderJobList(cmd.OutOrStdout(), jobs)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "Only list jobs of this user")
	return cmd
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove finished jobs (completed, failed, cancelled)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueClear(all)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, resp)
				}
				noun := "finished jobs"
				if all {
					noun = "jobs"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d %s\n", resp.Removed, noun)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Remove every job (daemon must be paused)")
	return cmd
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	var database bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show queue counts, or database diagnostics with --db",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if database {
					return printDatabaseHealth(cmd, ctx, client)
				}
				resp, err := client.QueueHealth()
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, resp)
				}
				rows := [][]string{
					{"Queued", fmt.Sprint(resp.Queued)},
					{"Processing", fmt.Sprint(resp.Processing)},
					{"Completed", fmt.Sprint(resp.Completed)},
					{"Failed", fmt.Sprint(resp.Failed)},
					{"Cancelled", fmt.Sprint(resp.Cancelled)},
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Status", "Count"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
					"Total", fmt.Sprint(resp.Total),
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&database, "db", false, "Check schema, columns, and integrity of the queue database")
	return cmd
}

func printDatabaseHealth(cmd *cobra.Command, ctx *commandContext, client *ipc.Client) error {
	resp, err := client.DatabaseHealth()
	if err != nil {
		return err
	}
	if ctx.JSONMode() {
		return writeJSON(cmd, resp)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Database path: %s\n", resp.DBPath)
	fmt.Fprintf(out, "Database exists: %s\n", yesNo(resp.DatabaseExists))
	fmt.Fprintf(out, "Readable: %s\n", yesNo(resp.DatabaseReadable))
	fmt.Fprintf(out, "Schema version: %d\n", resp.SchemaVersion)
	fmt.Fprintf(out, "jobs table present: %s\n", yesNo(resp.TableExists))
	if len(resp.ColumnsPresent) > 0 {
		cols := append([]string(nil), resp.ColumnsPresent...)
		sort.Strings(cols)
		fmt.Fprintf(out, "Columns: %s\n", strings.Join(cols, ", "))
	}
	if len(resp.MissingColumns) > 0 {
		missing := append([]string(nil), resp.MissingColumns...)
		sort.Strings(missing)
		fmt.Fprintf(out, "Missing columns: %s\n", strings.Join(missing, ", "))
	} else {
		fmt.Fprintln(out, "Missing columns: none")
	}
	fmt.Fprintf(out, "Integrity check: %s\n", yesNo(resp.IntegrityCheck))
	fmt.Fprintf(out, "Total jobs: %d\n", resp.TotalJobs)
	if resp.Error != "" {
		fmt.Fprintf(out, "Error: %s\n", resp.Error)
	}
	return nil
}
