package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"filevault/internal/api"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var stageFlags []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assets, optionally filtered by stage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			views, err := client.List(stageFlags)
			if err != nil {
				return err
			}
			printAssetTable(cmd.OutOrStdout(), api.SortAssetsNewestFirst(views))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&stageFlags, "stage", nil, "Filter by stage (uploaded, archived, exported, deleted)")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <asset-id>",
		Short: "Show one asset in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			view, err := client.Describe(strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			printAssetDetail(cmd.OutOrStdout(), view)
			return nil
		},
	}
}

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var ownerFlag string

	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Upload one or more files into the vault",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, path := range args {
				view, err := client.IngestFile(path, ownerFlag)
				if err != nil {
					return fmt.Errorf("ingest %s: %w", path, err)
				}
				fmt.Fprintf(out, "Ingested %s as %s (%s)\n", view.DeclaredName, view.ID, view.Category)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&ownerFlag, "owner", "", "Owner reference recorded with the asset")
	return cmd
}

func newAdvanceCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "advance <asset-id> <stage>",
		Short: "Move an asset to its next stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			view, err := client.Advance(strings.TrimSpace(args[0]), strings.TrimSpace(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Asset %s is now %s\n", view.ID, view.Stage)
			return nil
		},
	}
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <asset-id>...",
		Aliases: []string{"remove", "delete"},
		Short:   "Soft-delete assets (the audit record is kept)",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, arg := range args {
				id := strings.TrimSpace(arg)
				view, err := client.Remove(id)
				if err != nil {
					return fmt.Errorf("remove %s: %w", id, err)
				}
				fmt.Fprintf(out, "Asset %s deleted\n", view.ID)
			}
			return nil
		},
	}
}
