package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"clipress/internal/ipc"
	"clipress/internal/textutil"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show compression totals, overall or for one user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				out := cmd.OutOrStdout()
				if user := strings.TrimSpace(userID); user != "" {
					resp, err := client.UserStats(user)
					if err != nil {
						return err
					}
					if ctx.JSONMode() {
						return writeJSON(cmd, resp)
					}
					fmt.Fprintf(out, "User:            %s\n", resp.UserID)
					fmt.Fprintf(out, "Compressions:    %s\n", humanize.Comma(resp.TotalCompressed))
					fmt.Fprintf(out, "Bytes saved:     %s\n", textutil.FormatBytes(resp.TotalBytesSaved))
					fmt.Fprintf(out, "Active jobs:     %d\n", resp.ActiveJobs)
					if resp.Defaults != nil {
						fmt.Fprintf(out, "Defaults:        %s\n", formatSettings(*resp.Defaults))
					}
					return nil
				}

				resp, err := client.Totals()
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, resp)
				}
				fmt.Fprintf(out, "Users:           %s\n", humanize.Comma(resp.Totals.Users))
				fmt.Fprintf(out, "Compressions:    %s\n", humanize.Comma(resp.Totals.TotalCompressed))
				fmt.Fprintf(out, "Bytes saved:     %s\n", textutil.FormatBytes(resp.Totals.TotalBytesSaved))
				if rows := buildQueueStatusRows(resp.Queue); len(rows) > 0 {
					fmt.Fprintln(out)
					fmt.Fprint(out, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "Show one user's counters and defaults")
	return cmd
}

func newDefaultsCommand(ctx *commandContext) *cobra.Command {
	defaultsCmd := &cobra.Command{
		Use:   "defaults",
		Short: "Manage per-user default compression settings",
	}
	defaultsCmd.AddCommand(newDefaultsSetCommand(ctx))
	defaultsCmd.AddCommand(newDefaultsShowCommand(ctx))
	return defaultsCmd
}

func newDefaultsSetCommand(ctx *commandContext) *cobra.Command {
	var userID string
	var flags settingsFlags

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store default settings applied when a submission carries none",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SetUserDefaults(ipc.SetUserDefaultsRequest{
					UserID:   strings.TrimSpace(userID),
					Settings: flags.settings(cmd),
				})
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, resp.Settings)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Defaults for %s: %s\n", userID, formatSettings(resp.Settings))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", defaultUserID(), "User id")
	flags.register(cmd)
	return cmd
}

func newDefaultsShowCommand(ctx *commandContext) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a user's stored default settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.UserStats(strings.TrimSpace(userID))
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, resp.Defaults)
				}
				if resp.Defaults == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "No defaults stored for %s\n", userID)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Defaults for %s: %s\n", userID, formatSettings(*resp.Defaults))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", defaultUserID(), "User id")
	return cmd
}
