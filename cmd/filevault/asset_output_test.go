package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"filevault/internal/api"
)

func TestPrintAssetTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	printAssetTable(&buf, nil)
	if !strings.Contains(buf.String(), "No assets found.") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestPrintAssetTableRows(t *testing.T) {
	var buf bytes.Buffer
	views := []api.AssetView{
		{
			ID:           "abc-123",
			Stage:        "uploaded",
			DeclaredName: "report.pdf",
			Category:     "pdf",
			SizeBytes:    2048,
			OwnerRef:     "finance",
			CreatedAt:    time.Now().UTC().Format(time.RFC3339Nano),
		},
	}
	printAssetTable(&buf, views)
	out := buf.String()
	for _, want := range []string{"abc-123", "uploaded", "report.pdf", "finance"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintAssetDetailSkipsEmptyFields(t *testing.T) {
	var buf bytes.Buffer
	printAssetDetail(&buf, &api.AssetView{
		ID:        "abc-123",
		Stage:     "deleted",
		Checksum:  "feed",
		SizeBytes: 1,
	})
	out := buf.String()
	if !strings.Contains(out, "abc-123") || !strings.Contains(out, "deleted") {
		t.Fatalf("detail output missing fields:\n%s", out)
	}
	if strings.Contains(out, "Owner:") || strings.Contains(out, "Path:") {
		t.Fatalf("empty fields should be omitted:\n%s", out)
	}
}
