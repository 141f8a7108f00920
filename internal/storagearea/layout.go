// Package storagearea owns the on-disk directory layout: the five asset
// areas plus the migrations directory. It maps (stage, id) pairs to
// deterministic paths and is the only component that creates directories.
package storagearea

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"filevault/internal/asset"
	"filevault/internal/faults"
)

// ActiveLogName is the filename of the daemon's append-mode log inside the
// logs area.
const ActiveLogName = "filevault.log"

// PartSuffix marks in-flight scratch files in the temp area. The reaper
// grants them a grace period before sweeping.
const PartSuffix = ".part"

// Layout resolves every storage path from a single root:
// <root>/assets/{uploads,archives,exports,temp,logs} and
// <root>/storage/migrations/versions.
type Layout struct {
	root string
}

// New builds a layout rooted at the given directory. The root must be an
// absolute path so resolved asset paths are reproducible across working
// directories.
func New(root string) (*Layout, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("storage root must be set")
	}
	if !filepath.IsAbs(root) {
		return nil, fmt.Errorf("storage root must be absolute, got %q", root)
	}
	return &Layout{root: root}, nil
}

// Root returns the layout's base directory.
func (l *Layout) Root() string { return l.root }

func (l *Layout) assetsDir() string { return filepath.Join(l.root, "assets") }

// UploadsDir returns the admission area for freshly ingested files.
func (l *Layout) UploadsDir() string { return filepath.Join(l.assetsDir(), "uploads") }

// ArchivesDir returns the long-term archival area.
func (l *Layout) ArchivesDir() string { return filepath.Join(l.assetsDir(), "archives") }

// ExportsDir returns the outbound export area.
func (l *Layout) ExportsDir() string { return filepath.Join(l.assetsDir(), "exports") }

// TempDir returns the scratch area swept by the reaper.
func (l *Layout) TempDir() string { return filepath.Join(l.assetsDir(), "temp") }

// LogsDir returns the log area swept by the reaper.
func (l *Layout) LogsDir() string { return filepath.Join(l.assetsDir(), "logs") }

// LogFile returns the active daemon log path.
func (l *Layout) LogFile() string { return filepath.Join(l.LogsDir(), ActiveLogName) }

// MigrationsDir returns the on-disk home for versioned migration scripts.
func (l *Layout) MigrationsDir() string {
	return filepath.Join(l.root, "storage", "migrations", "versions")
}

// AreaFor maps a live stage to its storage area. Deleted has no area.
func (l *Layout) AreaFor(stage asset.Stage) (string, error) {
	switch stage {
	case asset.StageUploaded:
		return l.UploadsDir(), nil
	case asset.StageArchived:
		return l.ArchivesDir(), nil
	case asset.StageExported:
		return l.ExportsDir(), nil
	default:
		return "", fmt.Errorf("stage %q has no storage area", stage)
	}
}

// Resolve deterministically maps an asset's stage and id to its filesystem
// path. The mapping is reproducible from (stage, id) alone.
func (l *Layout) Resolve(stage asset.Stage, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("asset id must be set")
	}
	if id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("asset id %q is not a valid path segment", id)
	}
	area, err := l.AreaFor(stage)
	if err != nil {
		return "", err
	}
	return filepath.Join(area, id), nil
}

// TempPath returns a scratch location inside the temp area.
func (l *Layout) TempPath(name string) string {
	return filepath.Join(l.TempDir(), name)
}

// EnsureLayout creates every storage directory if absent, idempotently, and
// verifies each is writable by the effective user. An unwritable existing
// directory is an environment fault, not something to repair silently.
func (l *Layout) EnsureLayout() error {
	dirs := []string{
		l.UploadsDir(),
		l.ArchivesDir(),
		l.ExportsDir(),
		l.TempDir(),
		l.LogsDir(),
		l.MigrationsDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return faults.Wrap(faults.ErrStorageUnavailable, "storagearea", "ensure layout", dir, err)
		}
		if err := probeWritable(dir); err != nil {
			return faults.Wrap(faults.ErrStorageUnavailable, "storagearea", "ensure layout", dir, err)
		}
	}
	return nil
}

// probeWritable checks write+search permission for the effective uid, which
// os.Stat mode bits cannot answer under setuid or supplementary groups.
func probeWritable(dir string) error {
	if err := unix.Access(dir, unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("directory not writable: %w", err)
	}
	return nil
}
