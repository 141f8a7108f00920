package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"

	"filevault/internal/api"
)

func assetTableRows(views []api.AssetView) [][]string {
	rows := make([][]string, 0, len(views))
	for _, view := range views {
		created := ""
		if t := api.ParseAssetTime(view.CreatedAt); !t.IsZero() {
			created = humanize.Time(t)
		}
		rows = append(rows, []string{
			view.ID,
			view.Stage,
			view.DeclaredName,
			view.Category,
			humanize.Bytes(uint64(view.SizeBytes)),
			view.OwnerRef,
			created,
		})
	}
	return rows
}

func printAssetTable(out io.Writer, views []api.AssetView) {
	if len(views) == 0 {
		fmt.Fprintln(out, "No assets found.")
		return
	}
	headers := []string{"ID", "Stage", "Name", "Category", "Size", "Owner", "Created"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft}
	fmt.Fprintln(out, renderTable(headers, assetTableRows(views), aligns))
}

func printAssetDetail(out io.Writer, view *api.AssetView) {
	fields := [][2]string{
		{"ID", view.ID},
		{"Stage", view.Stage},
		{"Name", view.DeclaredName},
		{"Category", view.Category},
		{"Size", fmt.Sprintf("%s (%s bytes)", humanize.Bytes(uint64(view.SizeBytes)), strconv.FormatInt(view.SizeBytes, 10))},
		{"Checksum", view.Checksum},
		{"Owner", view.OwnerRef},
		{"Path", view.StoragePath},
		{"Created", view.CreatedAt},
		{"Updated", view.UpdatedAt},
	}
	if view.ExpiresAt != "" {
		fields = append(fields, [2]string{"Expires", view.ExpiresAt})
	}
	for _, field := range fields {
		if field[1] == "" {
			continue
		}
		fmt.Fprintf(out, "%s%-10s %s\n", statusIndent, field[0]+":", field[1])
	}
}
