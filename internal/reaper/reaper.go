package reaper

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"filevault/internal/config"
	"filevault/internal/logging"
	"filevault/internal/storagearea"
)

// partGracePeriod extends the temp TTL for scratch files still carrying the
// in-flight suffix, so a slow ingest is not swept mid-stream.
const partGracePeriod = 10 * time.Minute

// Result summarizes one sweep.
type Result struct {
	TempRemoved int
	LogsPruned  int
	RotatedLog  string
	CompletedAt time.Time
}

// Reaper owns the periodic temp and log sweeps.
type Reaper struct {
	layout        *storagearea.Layout
	interval      time.Duration
	tempTTL       time.Duration
	rotateBytes   int64
	retainCount   int
	retentionDays int
	logger        *slog.Logger

	mu   sync.Mutex
	last *Result
}

// New wires a reaper from config.
func New(layout *storagearea.Layout, cfg *config.Config, logger *slog.Logger) *Reaper {
	return &Reaper{
		layout:        layout,
		interval:      time.Duration(cfg.Reaper.IntervalSeconds) * time.Second,
		tempTTL:       time.Duration(cfg.Reaper.TempTTLSeconds) * time.Second,
		rotateBytes:   cfg.Logs.RotateMaxBytes,
		retainCount:   cfg.Logs.RetentionCount,
		retentionDays: cfg.Logs.RetentionDays,
		logger:        logging.NewComponentLogger(logger, "reaper"),
	}
}

// Run sweeps on the configured interval until the context ends. The first
// sweep happens after one full interval, not at startup, so boot stays fast.
func (r *Reaper) Run(ctx context.Context) {
	interval := r.interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result := r.Sweep()
			if result.TempRemoved > 0 || result.LogsPruned > 0 || result.RotatedLog != "" {
				r.logger.Info("sweep completed",
					logging.Int("temp_removed", result.TempRemoved),
					logging.Int("logs_pruned", result.LogsPruned),
					logging.String("rotated_log", result.RotatedLog),
				)
			}
		}
	}
}

// Sweep runs one pass immediately and reports what it removed.
func (r *Reaper) Sweep() Result {
	result := Result{}
	result.TempRemoved = r.sweepTemp()

	rotated, err := logging.Rotate(r.layout.LogFile(), r.rotateBytes)
	if err != nil {
		r.logger.Warn("log rotation failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "log_rotation_failed"),
		)
	}
	result.RotatedLog = rotated

	result.LogsPruned = logging.Prune(
		r.logger,
		r.layout.LogsDir(),
		storagearea.ActiveLogName+".*",
		r.retainCount,
		r.retentionDays,
		r.layout.LogFile(),
	)
	result.CompletedAt = time.Now().UTC()

	r.mu.Lock()
	snapshot := result
	r.last = &snapshot
	r.mu.Unlock()
	return result
}

// LastResult reports the most recent sweep, if any.
func (r *Reaper) LastResult() (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return Result{}, false
	}
	return *r.last, true
}

// sweepTemp removes temp entries whose age exceeds the TTL. Scratch files
// still carrying the in-flight suffix get an additional grace period.
func (r *Reaper) sweepTemp() int {
	entries, err := os.ReadDir(r.layout.TempDir())
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Warn("temp sweep failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "temp_sweep_failed"),
			)
		}
		return 0
	}

	now := time.Now()
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		cutoff := r.tempTTL
		if strings.HasSuffix(entry.Name(), storagearea.PartSuffix) {
			cutoff += partGracePeriod
		}
		if now.Sub(info.ModTime()) <= cutoff {
			continue
		}
		path := filepath.Join(r.layout.TempDir(), entry.Name())
		if err := os.Remove(path); err != nil {
			r.logger.Warn("failed to remove temp file",
				logging.String("path", path),
				logging.Error(err),
			)
			continue
		}
		removed++
	}
	return removed
}
