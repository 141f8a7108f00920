package storagearea_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"filevault/internal/asset"
	"filevault/internal/faults"
	"filevault/internal/storagearea"
)

func newLayout(t *testing.T) *storagearea.Layout {
	t.Helper()
	layout, err := storagearea.New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return layout
}

func TestNewRejectsRelativeRoot(t *testing.T) {
	if _, err := storagearea.New("relative/root"); err == nil {
		t.Fatal("expected error for relative root")
	}
	if _, err := storagearea.New("  "); err == nil {
		t.Fatal("expected error for empty root")
	}
}

func TestEnsureLayoutIdempotent(t *testing.T) {
	layout := newLayout(t)
	for i := 0; i < 2; i++ {
		if err := layout.EnsureLayout(); err != nil {
			t.Fatalf("EnsureLayout run %d failed: %v", i+1, err)
		}
	}
	for _, dir := range []string{
		layout.UploadsDir(),
		layout.ArchivesDir(),
		layout.ExportsDir(),
		layout.TempDir(),
		layout.LogsDir(),
		layout.MigrationsDir(),
	} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}

func TestEnsureLayoutUnwritableDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not bind for root")
	}
	layout := newLayout(t)
	if err := os.MkdirAll(layout.UploadsDir(), 0o555); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	err := layout.EnsureLayout()
	if !errors.Is(err, faults.ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestResolveDeterministic(t *testing.T) {
	layout := newLayout(t)
	first, err := layout.Resolve(asset.StageArchived, "abc-123")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	second, err := layout.Resolve(asset.StageArchived, "abc-123")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if first != second {
		t.Fatalf("resolve not deterministic: %q vs %q", first, second)
	}
	if filepath.Dir(first) != layout.ArchivesDir() {
		t.Fatalf("expected path under archives, got %q", first)
	}
}

func TestResolveRejectsBadInput(t *testing.T) {
	layout := newLayout(t)
	if _, err := layout.Resolve(asset.StageDeleted, "abc"); err == nil {
		t.Fatal("expected error for deleted stage")
	}
	if _, err := layout.Resolve(asset.StageUploaded, ""); err == nil {
		t.Fatal("expected error for empty id")
	}
	if _, err := layout.Resolve(asset.StageUploaded, "../escape"); err == nil {
		t.Fatal("expected error for path traversal id")
	}
	if _, err := layout.Resolve(asset.StageUploaded, ".hidden"); err == nil {
		t.Fatal("expected error for dot-prefixed id")
	}
}
