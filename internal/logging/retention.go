package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// RotatedSuffixFormat is the timestamp appended to rotated log files.
const RotatedSuffixFormat = "20060102T150405"

// Rotate renames path to a timestamped sibling once it exceeds maxBytes.
// A maxBytes of 0 disables rotation. Returns the rotated path, or "" when no
// rotation happened. Writers built by New notice the rename on their next
// append and reopen the fresh active path, so rotation never strands the
// logger on the rotated file.
func Rotate(path string, maxBytes int64) (string, error) {
	if maxBytes <= 0 || strings.TrimSpace(path) == "" {
		return "", nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("stat log: %w", err)
	}
	if info.Size() < maxBytes {
		return "", nil
	}
	rotated := fmt.Sprintf("%s.%s", path, time.Now().UTC().Format(RotatedSuffixFormat))
	if err := os.Rename(path, rotated); err != nil {
		return "", fmt.Errorf("rotate log: %w", err)
	}
	return rotated, nil
}

// Prune removes rotated files matching pattern in dir beyond retainCount
// (newest kept) and older than retentionDays. Zero values disable the
// respective bound. The active log named by exclude is never touched.
// Failures are logged and skipped; pruning is best effort.
func Prune(logger *slog.Logger, dir, pattern string, retainCount, retentionDays int, exclude string) int {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return 0
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}

	type candidate struct {
		path    string
		modTime time.Time
	}
	var candidates []candidate
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == filepath.Base(exclude) {
			continue
		}
		if pat := strings.TrimSpace(pattern); pat != "" {
			matched, err := filepath.Match(pat, name)
			if err != nil || !matched {
				continue
			}
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{
			path:    filepath.Join(dir, name),
			modTime: info.ModTime(),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].modTime.After(candidates[j].modTime)
	})

	var cutoff time.Time
	if retentionDays > 0 {
		cutoff = time.Now().AddDate(0, 0, -retentionDays)
	}

	removed := 0
	for i, c := range candidates {
		overCount := retainCount > 0 && i >= retainCount
		overAge := retentionDays > 0 && c.modTime.Before(cutoff)
		if !overCount && !overAge {
			continue
		}
		if err := os.Remove(c.path); err != nil {
			if logger != nil {
				logger.Warn("log retention remove failed; file remains",
					String("path", c.path),
					Error(err),
					String(FieldEventType, "log_retention_failed"),
					String(FieldErrorHint, "check file permissions on the logs area"),
				)
			}
			continue
		}
		removed++
		if logger != nil {
			logger.Info("log pruned",
				String("path", c.path),
				String(FieldEventType, "log_pruned"),
			)
		}
	}
	return removed
}
