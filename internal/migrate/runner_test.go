package migrate_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"filevault/internal/faults"
	"filevault/internal/logging"
	"filevault/internal/migrate"
	"filevault/internal/registry"
)

func openTestStore(t *testing.T) *registry.Store {
	t.Helper()
	store, err := registry.Open(filepath.Join(t.TempDir(), "storage", "filevault.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testMigrations() []migrate.Migration {
	return []migrate.Migration{
		{
			Version:  1,
			Name:     "0001_create_items",
			SQL:      "CREATE TABLE items (id TEXT PRIMARY KEY, label TEXT);",
			Checksum: "aaa",
		},
		{
			Version:  2,
			Name:     "0002_index_items",
			SQL:      "CREATE INDEX ix_items_label ON items (label);",
			Checksum: "bbb",
		},
	}
}

func TestRunnerAppliesAndRecords(t *testing.T) {
	store := openTestStore(t)
	runner := migrate.NewRunner(store.DB(), testMigrations(), time.Second, logging.NewNop())

	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var count int
	if err := store.DB().QueryRow(`SELECT COUNT(1) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatalf("count ledger: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 ledger rows, got %d", count)
	}
	if _, err := store.DB().Exec(`INSERT INTO items (id, label) VALUES ('a', 'b')`); err != nil {
		t.Fatalf("schema missing after migration: %v", err)
	}
}

func TestRunnerIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	runner := migrate.NewRunner(store.DB(), testMigrations(), time.Second, logging.NewNop())

	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}

	var count int
	if err := store.DB().QueryRow(`SELECT COUNT(1) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatalf("count ledger: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 ledger rows after rerun, got %d", count)
	}
}

func TestRunnerAppliesOnlyPending(t *testing.T) {
	store := openTestStore(t)
	all := testMigrations()

	first := migrate.NewRunner(store.DB(), all[:1], time.Second, logging.NewNop())
	if err := first.Run(context.Background()); err != nil {
		t.Fatalf("apply first: %v", err)
	}

	second := migrate.NewRunner(store.DB(), all, time.Second, logging.NewNop())
	if err := second.Run(context.Background()); err != nil {
		t.Fatalf("apply remaining: %v", err)
	}

	var versions []int
	rows, err := store.DB().Query(`SELECT version FROM schema_migrations ORDER BY version`)
	if err != nil {
		t.Fatalf("query ledger: %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			t.Fatalf("scan: %v", err)
		}
		versions = append(versions, v)
	}
	if len(versions) != 2 || versions[0] != 1 || versions[1] != 2 {
		t.Fatalf("unexpected ledger versions %v", versions)
	}
}

func TestRunnerDetectsChecksumDrift(t *testing.T) {
	store := openTestStore(t)
	original := testMigrations()

	runner := migrate.NewRunner(store.DB(), original, time.Second, logging.NewNop())
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("initial run: %v", err)
	}

	edited := testMigrations()
	edited[0].Checksum = "tampered"
	drifted := migrate.NewRunner(store.DB(), edited, time.Second, logging.NewNop())
	err := drifted.Run(context.Background())
	if !errors.Is(err, faults.ErrMigrationDrift) {
		t.Fatalf("expected migration drift, got %v", err)
	}
}

func TestRunnerDetectsMissingDefinitions(t *testing.T) {
	store := openTestStore(t)
	all := testMigrations()

	runner := migrate.NewRunner(store.DB(), all, time.Second, logging.NewNop())
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("initial run: %v", err)
	}

	truncated := migrate.NewRunner(store.DB(), all[:1], time.Second, logging.NewNop())
	err := truncated.Run(context.Background())
	if !errors.Is(err, faults.ErrMigrationDrift) {
		t.Fatalf("expected migration drift, got %v", err)
	}
}

func TestRunnerRollsBackFailedMigration(t *testing.T) {
	store := openTestStore(t)
	bad := []migrate.Migration{
		{
			Version:  1,
			Name:     "0001_create_items",
			SQL:      "CREATE TABLE items (id TEXT PRIMARY KEY);",
			Checksum: "aaa",
		},
		{
			Version:  2,
			Name:     "0002_broken",
			SQL:      "THIS IS NOT SQL;",
			Checksum: "bbb",
		},
	}

	runner := migrate.NewRunner(store.DB(), bad, time.Second, logging.NewNop())
	err := runner.Run(context.Background())
	if !errors.Is(err, faults.ErrMigrationFailed) {
		t.Fatalf("expected migration failed, got %v", err)
	}
	if !faults.IsFatal(err) {
		t.Fatal("migration failure should be fatal")
	}

	var count int
	if err := store.DB().QueryRow(`SELECT COUNT(1) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatalf("count ledger: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected only the successful version recorded, got %d rows", count)
	}
}

func TestRunnerLockTimesOut(t *testing.T) {
	store := openTestStore(t)
	runner := migrate.NewRunner(store.DB(), testMigrations(), time.Second, logging.NewNop())
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("initial run: %v", err)
	}

	// Simulate a concurrent holder that has not expired.
	future := time.Now().Add(time.Hour).UTC().Format(time.RFC3339Nano)
	if _, err := store.DB().Exec(
		`UPDATE migration_lock SET holder = 'other', acquired_at = ?, expires_at = ? WHERE id = 1`,
		time.Now().UTC().Format(time.RFC3339Nano), future,
	); err != nil {
		t.Fatalf("seed lock: %v", err)
	}

	blocked := migrate.NewRunner(store.DB(), testMigrations(), 500*time.Millisecond, logging.NewNop())
	err := blocked.Run(context.Background())
	if !errors.Is(err, faults.ErrMigrationLocked) {
		t.Fatalf("expected migration locked, got %v", err)
	}
}

func TestRunnerReclaimsExpiredLock(t *testing.T) {
	store := openTestStore(t)
	runner := migrate.NewRunner(store.DB(), testMigrations(), time.Second, logging.NewNop())
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("initial run: %v", err)
	}

	past := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339Nano)
	if _, err := store.DB().Exec(
		`UPDATE migration_lock SET holder = 'crashed', acquired_at = ?, expires_at = ? WHERE id = 1`,
		past, past,
	); err != nil {
		t.Fatalf("seed stale lock: %v", err)
	}

	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("expected stale lock reclaim, got %v", err)
	}
}
