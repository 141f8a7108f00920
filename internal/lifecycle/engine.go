package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"filevault/internal/asset"
	"filevault/internal/faults"
	"filevault/internal/fileutil"
	"filevault/internal/logging"
	"filevault/internal/registry"
	"filevault/internal/storagearea"
)

// Engine executes stage transitions.
type Engine struct {
	layout *storagearea.Layout
	store  *registry.Store
	logger *slog.Logger
}

// NewEngine wires the transition engine.
func NewEngine(layout *storagearea.Layout, store *registry.Store, logger *slog.Logger) *Engine {
	return &Engine{
		layout: layout,
		store:  store,
		logger: logging.NewComponentLogger(logger, "lifecycle"),
	}
}

// Advance moves the asset to the requested stage. The legality check uses
// the asset's current stage; a request that skips a stage, moves backwards,
// or repeats the current stage fails with IllegalTransition and changes
// nothing. Two concurrent requests for the same asset resolve to one winner;
// the loser observes StageConflict.
func (e *Engine) Advance(ctx context.Context, id string, to asset.Stage) (*asset.Asset, error) {
	current, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !asset.CanTransition(current.Stage, to) {
		return nil, faults.Wrap(faults.ErrIllegalTransition, "lifecycle", "advance",
			fmt.Sprintf("%s: %s to %s", id, current.Stage, to), nil)
	}

	if to == asset.StageDeleted {
		return e.softDelete(ctx, current)
	}
	return e.promote(ctx, current, to)
}

// Delete soft-deletes the asset: the file is removed, the registry row stays
// for audit.
func (e *Engine) Delete(ctx context.Context, id string) (*asset.Asset, error) {
	return e.Advance(ctx, id, asset.StageDeleted)
}

// promote copies the file into the destination area through a scratch
// location, verifies it against the ingest-time digest, and commits via the
// registry compare-and-swap. The destination file is complete and verified
// before any rename makes it visible at its final path.
func (e *Engine) promote(ctx context.Context, current *asset.Asset, to asset.Stage) (*asset.Asset, error) {
	destPath, err := e.layout.Resolve(to, current.ID)
	if err != nil {
		return nil, faults.Wrap(faults.ErrIllegalTransition, "lifecycle", "resolve destination", current.ID, err)
	}

	scratch := e.layout.TempPath(uuid.NewString() + storagearea.PartSuffix)
	if err := fileutil.CopyFileVerified(current.StoragePath, scratch); err != nil {
		_ = os.Remove(scratch)
		return nil, faults.Wrap(faults.ErrChecksumMismatch, "lifecycle", "copy",
			fmt.Sprintf("%s to %s", current.ID, to), err)
	}
	if err := fileutil.VerifyChecksum(scratch, current.Checksum); err != nil {
		_ = os.Remove(scratch)
		return nil, faults.Wrap(faults.ErrChecksumMismatch, "lifecycle", "verify",
			fmt.Sprintf("%s to %s", current.ID, to), err)
	}
	if err := fileutil.MoveFileVerified(scratch, destPath); err != nil {
		_ = os.Remove(scratch)
		return nil, faults.Wrap(faults.ErrChecksumMismatch, "lifecycle", "place",
			fmt.Sprintf("%s to %s", current.ID, to), err)
	}

	if err := e.store.Transition(ctx, current.ID, current.Stage, to, destPath); err != nil {
		e.rollbackDestination(ctx, current.ID, destPath)
		return nil, err
	}

	if current.StoragePath != destPath {
		if err := os.Remove(current.StoragePath); err != nil && !os.IsNotExist(err) {
			e.logger.Warn("failed to remove source copy after transition",
				logging.String("asset_id", current.ID),
				logging.String("path", current.StoragePath),
				logging.Error(err),
			)
		}
	}

	e.logger.Info("asset advanced",
		logging.String("asset_id", current.ID),
		logging.String("from", string(current.Stage)),
		logging.String("to", string(to)),
	)

	updated := *current
	updated.Stage = to
	updated.StoragePath = destPath
	updated.UpdatedAt = time.Now().UTC()
	return &updated, nil
}

// softDelete commits the stage change first so only the compare-and-swap
// winner removes the bytes.
func (e *Engine) softDelete(ctx context.Context, current *asset.Asset) (*asset.Asset, error) {
	if err := e.store.Transition(ctx, current.ID, current.Stage, asset.StageDeleted, ""); err != nil {
		return nil, err
	}
	if current.StoragePath != "" {
		if err := os.Remove(current.StoragePath); err != nil && !os.IsNotExist(err) {
			e.logger.Warn("failed to remove deleted asset file",
				logging.String("asset_id", current.ID),
				logging.String("path", current.StoragePath),
				logging.Error(err),
			)
		}
	}

	e.logger.Info("asset deleted",
		logging.String("asset_id", current.ID),
		logging.String("from", string(current.Stage)),
	)

	updated := *current
	updated.Stage = asset.StageDeleted
	updated.StoragePath = ""
	updated.UpdatedAt = time.Now().UTC()
	return &updated, nil
}

// rollbackDestination removes the freshly placed destination file after a
// lost compare-and-swap, unless the winning transition landed the asset at
// that very path.
func (e *Engine) rollbackDestination(ctx context.Context, id, destPath string) {
	winner, err := e.store.Get(ctx, id)
	if err == nil && winner.StoragePath == destPath {
		return
	}
	if !errors.Is(err, faults.ErrNotFound) && err != nil {
		return
	}
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		e.logger.Warn("failed to roll back destination copy",
			logging.String("asset_id", id),
			logging.String("path", destPath),
			logging.Error(err),
		)
	}
}
