package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newReapCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reap",
		Short: "Trigger an immediate temp and log sweep",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			result, err := client.Reap()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Removed %d temp file(s), pruned %d rotated log(s)\n",
				result.TempRemoved, result.LogsPruned)
			if result.RotatedLog != "" {
				fmt.Fprintf(out, "Rotated active log to %s\n", result.RotatedLog)
			}
			return nil
		},
	}
}
