package migrate

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"filevault/internal/faults"
	"filevault/internal/logging"
)

// lockTTL caps how long a crashed applier can hold the lock row before
// another process may reclaim it.
const lockTTL = 5 * time.Minute

const lockPollInterval = 200 * time.Millisecond

// acquireLock claims the single migration_lock row via compare-and-swap,
// retrying within the configured bound. Multiple processes racing at boot
// resolve to one winner; the rest fail with MigrationLocked instead of
// racing the schema.
func (r *Runner) acquireLock(ctx context.Context) (func(), error) {
	holder := fmt.Sprintf("%s-%d", uuid.NewString(), os.Getpid())
	deadline := time.Now().Add(r.lockWait)

	for {
		claimed, err := r.tryClaim(ctx, holder)
		if err != nil {
			return nil, err
		}
		if claimed {
			return func() { r.releaseLock(holder) }, nil
		}
		if time.Now().After(deadline) {
			return nil, faults.Wrap(faults.ErrMigrationLocked, "migrate", "lock",
				fmt.Sprintf("another process held the migration lock for over %s", r.lockWait), nil)
		}
		select {
		case <-time.After(lockPollInterval):
		case <-ctx.Done():
			return nil, faults.Wrap(faults.ErrMigrationLocked, "migrate", "lock", "wait cancelled", ctx.Err())
		}
	}
}

func (r *Runner) tryClaim(ctx context.Context, holder string) (bool, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE migration_lock
         SET holder = ?, acquired_at = ?, expires_at = ?
         WHERE id = 1 AND (holder IS NULL OR expires_at < ?)`,
		holder,
		now.Format(time.RFC3339Nano),
		now.Add(lockTTL).Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return false, faults.Wrap(faults.ErrMigrationFailed, "migrate", "claim lock", "", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, faults.Wrap(faults.ErrMigrationFailed, "migrate", "claim lock", "", err)
	}
	return affected > 0, nil
}

// releaseLock clears the row only when still held by this process; a lock
// reclaimed after expiry belongs to its new holder.
func (r *Runner) releaseLock(holder string) {
	_, err := r.db.Exec(
		`UPDATE migration_lock SET holder = NULL, acquired_at = NULL, expires_at = NULL
         WHERE id = 1 AND holder = ?`,
		holder,
	)
	if err != nil && r.logger != nil {
		r.logger.Warn("failed to release migration lock",
			logging.Error(err),
			logging.String(logging.FieldEventType, "migration_lock_release_failed"),
			logging.String(logging.FieldErrorHint, "lock expires automatically after its TTL"),
		)
	}
}
