package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"filevault/internal/api"
	"filevault/internal/config"
	"filevault/internal/ingest"
	"filevault/internal/lifecycle"
	"filevault/internal/logging"
	"filevault/internal/reaper"
	"filevault/internal/registry"
	"filevault/internal/storagearea"
	"filevault/internal/watcher"
)

// LockFileName is the single-instance lock inside the storage root.
const LockFileName = "filevaultd.lock"

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	layout *storagearea.Layout
	store  *registry.Store

	pipeline *ingest.Pipeline
	engine   *lifecycle.Engine
	sweeper  *reaper.Reaper
	inbox    *watcher.Watcher
	service  *api.AssetService
	server   *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	DatabasePath string
	LockFilePath string
	StorageRoot  string
}

// New constructs a daemon with initialized dependencies. The registry schema
// must already be migrated.
func New(cfg *config.Config, layout *storagearea.Layout, store *registry.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || layout == nil || store == nil {
		return nil, errors.New("daemon requires config, layout, and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	pipeline := ingest.NewPipeline(layout, store, cfg.Ingest.MaxUploadBytes, logger)
	engine := lifecycle.NewEngine(layout, store, logger)
	sweeper := reaper.New(layout, cfg, logger)

	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		layout:   layout,
		store:    store,
		pipeline: pipeline,
		engine:   engine,
		sweeper:  sweeper,
		service:  api.NewAssetService(store, engine, pipeline),
		lockPath: filepath.Join(layout.Root(), LockFileName),
	}
	d.lock = flock.New(d.lockPath)
	if inboxDir := cfg.Ingest.InboxDir; inboxDir != "" {
		d.inbox = watcher.New(pipeline, inboxDir, logger)
	}

	server, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.server = server
	return d, nil
}

// Start acquires the daemon lock and launches the background services.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another filevault daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.sweeper.Run(runCtx)
	}()

	if d.inbox != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.inbox.Run(runCtx); err != nil {
				d.logger.Error("inbox watcher stopped", logging.Error(err))
			}
		}()
	}

	if d.server != nil {
		if err := d.server.start(runCtx); err != nil {
			cancel()
			d.wg.Wait()
			_ = d.lock.Unlock()
			return err
		}
	}

	d.running.Store(true)
	d.logger.Info("filevault daemon started",
		logging.String("lock", d.lockPath),
		logging.String("root", d.layout.Root()),
	)
	return nil
}

// Stop halts background services and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.server != nil {
		d.server.stop()
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("filevault daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status reports runtime information.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
		StorageRoot:  d.layout.Root(),
	}
}

// APIAddr returns the bound API address, or "" when the server is not
// listening.
func (d *Daemon) APIAddr() string {
	if d.server == nil {
		return ""
	}
	return d.server.addr()
}

// SweepNow triggers one reaper pass outside the schedule.
func (d *Daemon) SweepNow() reaper.Result {
	return d.sweeper.Sweep()
}

// LastSweep reports the most recent reaper pass, if one has run.
func (d *Daemon) LastSweep() (reaper.Result, bool) {
	return d.sweeper.LastResult()
}
