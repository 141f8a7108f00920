// Package watcher feeds files dropped into the inbox directory through the
// ingest pipeline. Files are admitted once their size stops changing, and
// the source is consumed on success.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"filevault/internal/ingest"
	"filevault/internal/logging"
	"filevault/internal/storagearea"
)

// OwnerRef tags assets admitted from the inbox.
const OwnerRef = "inbox"

const (
	settlePoll    = 100 * time.Millisecond
	settleTimeout = 30 * time.Second
)

// Watcher ingests files appearing in the inbox directory.
type Watcher struct {
	pipeline *ingest.Pipeline
	inbox    string
	logger   *slog.Logger
}

// New wires an inbox watcher.
func New(pipeline *ingest.Pipeline, inboxDir string, logger *slog.Logger) *Watcher {
	return &Watcher{
		pipeline: pipeline,
		inbox:    inboxDir,
		logger:   logging.NewComponentLogger(logger, "watcher"),
	}
}

// Run watches the inbox until the context ends. Files already present at
// startup are ingested first so a daemon restart loses nothing.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.inbox, 0o755); err != nil {
		return err
	}

	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer notifier.Close()
	if err := notifier.Add(w.inbox); err != nil {
		return err
	}

	w.scanExisting(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-notifier.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.admit(ctx, event.Name)
		case err, ok := <-notifier.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("inbox watch error", logging.Error(err))
		}
	}
}

func (w *Watcher) scanExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.inbox)
	if err != nil {
		w.logger.Warn("inbox scan failed", logging.Error(err))
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.admit(ctx, filepath.Join(w.inbox, entry.Name()))
	}
}

func (w *Watcher) admit(ctx context.Context, path string) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, storagearea.PartSuffix) {
		return
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return
	}
	if !w.waitSettled(ctx, path) {
		return
	}

	record, err := w.pipeline.IngestFile(ctx, path, OwnerRef)
	if err != nil {
		w.logger.Warn("inbox ingest failed",
			logging.String("path", path),
			logging.Error(err),
		)
		return
	}
	w.logger.Info("inbox file admitted",
		logging.String("path", path),
		logging.String("asset_id", record.ID),
	)
}

// waitSettled polls until the file size holds steady across two observations,
// so a file still being written is not admitted half-done.
func (w *Watcher) waitSettled(ctx context.Context, path string) bool {
	deadline := time.Now().Add(settleTimeout)
	var lastSize int64 = -1
	for {
		info, err := os.Stat(path)
		if err != nil {
			return false
		}
		if info.Size() == lastSize {
			return true
		}
		lastSize = info.Size()
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(settlePoll):
		}
	}
}
