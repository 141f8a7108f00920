package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRotateBelowThresholdNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filevault.log")
	if err := os.WriteFile(path, []byte("small"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	rotated, err := Rotate(path, 1024)
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if rotated != "" {
		t.Fatalf("expected no rotation, got %q", rotated)
	}
}

func TestRotatePastThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "filevault.log")
	if err := os.WriteFile(path, []byte(strings.Repeat("x", 64)), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	rotated, err := Rotate(path, 10)
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if rotated == "" {
		t.Fatal("expected rotation")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected original gone, stat err %v", err)
	}
	if _, err := os.Stat(rotated); err != nil {
		t.Fatalf("rotated file missing: %v", err)
	}
}

func TestRotateMissingFile(t *testing.T) {
	rotated, err := Rotate(filepath.Join(t.TempDir(), "absent.log"), 10)
	if err != nil || rotated != "" {
		t.Fatalf("expected silent noop, got (%q, %v)", rotated, err)
	}
}

func TestPruneKeepsNewestAndActive(t *testing.T) {
	dir := t.TempDir()
	active := filepath.Join(dir, "filevault.log")
	if err := os.WriteFile(active, []byte("active"), 0o644); err != nil {
		t.Fatalf("write active: %v", err)
	}

	var paths []string
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		p := filepath.Join(dir, "filevault.log.2026010"+string(rune('1'+i))+"T000000")
		if err := os.WriteFile(p, []byte("old"), 0o644); err != nil {
			t.Fatalf("write rotated: %v", err)
		}
		mt := base.Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(p, mt, mt); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
		paths = append(paths, p)
	}

	removed := Prune(NewNop(), dir, "filevault.log.*", 2, 0, active)
	if removed != 3 {
		t.Fatalf("expected 3 removed, got %d", removed)
	}
	if _, err := os.Stat(active); err != nil {
		t.Fatalf("active log touched: %v", err)
	}
	// The two newest rotated files survive.
	for _, p := range paths[3:] {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %s kept: %v", p, err)
		}
	}
	for _, p := range paths[:3] {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Fatalf("expected %s pruned", p)
		}
	}
}

func TestPruneByAge(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "filevault.log.20250101T000000")
	if err := os.WriteFile(old, []byte("ancient"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	stale := time.Now().AddDate(0, 0, -90)
	if err := os.Chtimes(old, stale, stale); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	if removed := Prune(NewNop(), dir, "filevault.log.*", 0, 30, ""); removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
}
