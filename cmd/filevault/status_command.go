package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"filevault/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and registry status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.Status()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Filevault Daemon", colorize) {
				fmt.Fprintln(out, line)
			}

			runningKind := statusError
			runningMsg := "not running"
			if status.Running {
				runningKind = statusOK
				runningMsg = "pid " + strconv.Itoa(status.PID)
			}
			fmt.Fprintln(out, renderStatusLine("Daemon", runningKind, runningMsg, colorize))
			fmt.Fprintln(out, renderStatusLine("Storage root", statusInfo, status.StorageRoot, colorize))
			fmt.Fprintln(out, renderStatusLine("Database", statusInfo, status.DatabasePath, colorize))
			fmt.Fprintln(out, renderStatusLine("Lock file", statusInfo, status.LockFilePath, colorize))
			if sweep := status.LastSweep; sweep != nil {
				summary := fmt.Sprintf("%s (%d temp removed, %d logs pruned)",
					humanize.Time(api.ParseAssetTime(sweep.CompletedAt)),
					sweep.TempRemoved, sweep.LogsPruned)
				fmt.Fprintln(out, renderStatusLine("Last sweep", statusInfo, summary, colorize))
			}

			for _, line := range renderSectionHeader("Assets", colorize) {
				fmt.Fprintln(out, line)
			}
			health := status.Health
			fmt.Fprintln(out, renderStatusLine("Total", statusInfo, strconv.Itoa(health.Total), colorize))
			fmt.Fprintln(out, renderStatusLine("Uploaded", statusInfo, strconv.Itoa(health.Uploaded), colorize))
			fmt.Fprintln(out, renderStatusLine("Archived", statusInfo, strconv.Itoa(health.Archived), colorize))
			fmt.Fprintln(out, renderStatusLine("Exported", statusInfo, strconv.Itoa(health.Exported), colorize))
			fmt.Fprintln(out, renderStatusLine("Deleted", statusInfo, strconv.Itoa(health.Deleted), colorize))
			return nil
		},
	}
}
