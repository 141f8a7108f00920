package reaper_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"filevault/internal/config"
	"filevault/internal/logging"
	"filevault/internal/reaper"
	"filevault/internal/storagearea"
	"filevault/internal/testsupport"
)

func newReaper(t *testing.T, opts ...testsupport.ConfigOption) (*reaper.Reaper, *storagearea.Layout, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	layout, err := storagearea.New(cfg.Paths.Root)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if err := layout.EnsureLayout(); err != nil {
		t.Fatalf("ensure layout: %v", err)
	}
	return reaper.New(layout, cfg, logging.NewNop()), layout, cfg
}

func age(t *testing.T, path string, by time.Duration) {
	t.Helper()
	past := time.Now().Add(-by)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

func TestSweepRemovesExpiredTempFiles(t *testing.T) {
	r, layout, _ := newReaper(t, testsupport.WithTempTTLSeconds(60))

	for _, name := range []string{"a.tmp", "b.tmp", "c.tmp"} {
		path := layout.TempPath(name)
		testsupport.WriteFile(t, path, []byte("scratch"))
		age(t, path, 2*time.Hour)
	}
	fresh := layout.TempPath("fresh.tmp")
	testsupport.WriteFile(t, fresh, []byte("scratch"))

	result := r.Sweep()
	if result.TempRemoved != 3 {
		t.Fatalf("removed %d temp files, want 3", result.TempRemoved)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("fresh temp file should survive: %v", err)
	}

	last, ok := r.LastResult()
	if !ok {
		t.Fatal("LastResult should report the completed sweep")
	}
	if last.TempRemoved != 3 || last.CompletedAt.IsZero() {
		t.Fatalf("unexpected last sweep snapshot %+v", last)
	}
}

func TestSweepGrantsGraceToInFlightScratch(t *testing.T) {
	r, layout, _ := newReaper(t, testsupport.WithTempTTLSeconds(0))

	inFlight := layout.TempPath("upload" + storagearea.PartSuffix)
	testsupport.WriteFile(t, inFlight, []byte("half written"))
	age(t, inFlight, time.Minute)

	stale := layout.TempPath("abandoned" + storagearea.PartSuffix)
	testsupport.WriteFile(t, stale, []byte("forgotten"))
	age(t, stale, time.Hour)

	result := r.Sweep()
	if result.TempRemoved != 1 {
		t.Fatalf("removed %d files, want only the abandoned scratch", result.TempRemoved)
	}
	if _, err := os.Stat(inFlight); err != nil {
		t.Fatalf("in-flight scratch should survive the grace period: %v", err)
	}
}

func TestSweepNeverTouchesAssetAreas(t *testing.T) {
	r, layout, _ := newReaper(t, testsupport.WithTempTTLSeconds(0))

	stored := filepath.Join(layout.UploadsDir(), "asset-id")
	testsupport.WriteFile(t, stored, []byte("asset bytes"))
	age(t, stored, 24*time.Hour)

	r.Sweep()
	if _, err := os.Stat(stored); err != nil {
		t.Fatalf("asset file should survive sweeps: %v", err)
	}
}

func TestSweepRotatesAndPrunesLogs(t *testing.T) {
	_, layout, cfg := newReaper(t)
	cfg.Logs.RotateMaxBytes = 10
	cfg.Logs.RetentionCount = 1
	cfg.Logs.RetentionDays = 0
	r := reaper.New(layout, cfg, logging.NewNop())

	active := layout.LogFile()
	testsupport.WriteFile(t, active, []byte("this log is longer than ten bytes"))

	for i, suffix := range []string{"20240101T000000", "20240102T000000"} {
		rotated := active + "." + suffix
		testsupport.WriteFile(t, rotated, []byte("old"))
		age(t, rotated, time.Duration(48-i)*time.Hour)
	}

	result := r.Sweep()
	if result.RotatedLog == "" {
		t.Fatal("oversized active log should be rotated")
	}
	if result.LogsPruned != 2 {
		t.Fatalf("pruned %d rotated logs, want 2", result.LogsPruned)
	}
	if _, err := os.Stat(result.RotatedLog); err != nil {
		t.Fatalf("newest rotated log should be retained: %v", err)
	}
	if _, err := os.Stat(active); !os.IsNotExist(err) {
		t.Fatalf("active log should have been renamed away, stat err = %v", err)
	}
}
