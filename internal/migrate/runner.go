package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"filevault/internal/faults"
	"filevault/internal/logging"
)

// Runner applies pending migrations in strictly ascending version order.
type Runner struct {
	db         *sql.DB
	migrations []Migration
	lockWait   time.Duration
	logger     *slog.Logger
}

// NewRunner builds a runner over the provided database handle and migration
// set. lockWait bounds how long a second process waits for the migration
// lock before failing with MigrationLocked.
func NewRunner(db *sql.DB, migrations []Migration, lockWait time.Duration, logger *slog.Logger) *Runner {
	if lockWait <= 0 {
		lockWait = 10 * time.Second
	}
	return &Runner{
		db:         db,
		migrations: migrations,
		lockWait:   lockWait,
		logger:     logging.NewComponentLogger(logger, "migrate"),
	}
}

// Run discovers unapplied versions and applies each inside a transaction
// that also records its ledger row. Before applying anything it verifies
// every already-applied version against the on-disk definitions; drift is
// fatal. Re-running against an up-to-date store is a no-op.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.ensureTables(ctx); err != nil {
		return err
	}

	release, err := r.acquireLock(ctx)
	if err != nil {
		return err
	}
	defer release()

	applied, err := r.appliedVersions(ctx)
	if err != nil {
		return err
	}

	if err := r.verifyHistory(applied); err != nil {
		return err
	}

	pending := r.migrations[len(applied):]
	if len(pending) == 0 {
		r.logger.Info("schema up to date",
			logging.Int("applied", len(applied)),
		)
		return nil
	}

	for _, migration := range pending {
		if err := r.applyOne(ctx, migration); err != nil {
			return err
		}
		r.logger.Info("migration applied",
			logging.Int("version", migration.Version),
			logging.String("name", migration.Name),
		)
	}
	return nil
}

// appliedRecord mirrors one ledger row.
type appliedRecord struct {
	Version  int
	Name     string
	Checksum string
}

func (r *Runner) ensureTables(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS schema_migrations (
            version INTEGER PRIMARY KEY,
            name TEXT NOT NULL,
            checksum TEXT NOT NULL,
            applied_at TEXT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS migration_lock (
            id INTEGER PRIMARY KEY CHECK (id = 1),
            holder TEXT,
            acquired_at TEXT,
            expires_at TEXT
        )`,
		`INSERT OR IGNORE INTO migration_lock (id, holder) VALUES (1, NULL)`,
	}
	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return faults.Wrap(faults.ErrMigrationFailed, "migrate", "ensure ledger", "", err)
		}
	}
	return nil
}

func (r *Runner) appliedVersions(ctx context.Context) ([]appliedRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT version, name, checksum FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, faults.Wrap(faults.ErrMigrationFailed, "migrate", "read ledger", "", err)
	}
	defer rows.Close()

	var applied []appliedRecord
	for rows.Next() {
		var rec appliedRecord
		if err := rows.Scan(&rec.Version, &rec.Name, &rec.Checksum); err != nil {
			return nil, faults.Wrap(faults.ErrMigrationFailed, "migrate", "scan ledger", "", err)
		}
		applied = append(applied, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, faults.Wrap(faults.ErrMigrationFailed, "migrate", "iterate ledger", "", err)
	}
	return applied, nil
}

// verifyHistory checks that the applied set is exactly a prefix of the known
// set with matching checksums. Any deviation means the deployed scripts no
// longer match the recorded history.
func (r *Runner) verifyHistory(applied []appliedRecord) error {
	if len(applied) > len(r.migrations) {
		return faults.Wrap(faults.ErrMigrationDrift, "migrate", "verify",
			fmt.Sprintf("ledger has %d versions but only %d definitions exist", len(applied), len(r.migrations)), nil)
	}
	for i, rec := range applied {
		known := r.migrations[i]
		if rec.Version != known.Version {
			return faults.Wrap(faults.ErrMigrationDrift, "migrate", "verify",
				fmt.Sprintf("ledger position %d holds version %04d, definitions expect %04d", i, rec.Version, known.Version), nil)
		}
		if rec.Checksum != known.Checksum {
			return faults.Wrap(faults.ErrMigrationDrift, "migrate", "verify",
				fmt.Sprintf("version %04d (%s) checksum changed since it was applied", rec.Version, known.Name), nil)
		}
	}
	return nil
}

// applyOne runs a single migration and its ledger insert in one transaction:
// either both happen or neither does.
func (r *Runner) applyOne(ctx context.Context, migration Migration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return faults.Wrap(faults.ErrMigrationFailed, "migrate", "begin",
			fmt.Sprintf("version %04d", migration.Version), err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
		return faults.Wrap(faults.ErrMigrationFailed, "migrate", "apply",
			fmt.Sprintf("version %04d (%s)", migration.Version, migration.Name), err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version, name, checksum, applied_at) VALUES (?, ?, ?, ?)`,
		migration.Version,
		migration.Name,
		migration.Checksum,
		time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return faults.Wrap(faults.ErrMigrationFailed, "migrate", "record",
			fmt.Sprintf("version %04d", migration.Version), err)
	}
	if err := tx.Commit(); err != nil {
		return faults.Wrap(faults.ErrMigrationFailed, "migrate", "commit",
			fmt.Sprintf("version %04d", migration.Version), err)
	}
	return nil
}
