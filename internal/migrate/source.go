package migrate

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

//go:embed versions/*.sql
var embeddedFS embed.FS

// Migration is one versioned schema change.
type Migration struct {
	Version  int
	Name     string
	SQL      string
	Checksum string
}

var migrationNamePattern = regexp.MustCompile(`^(\d{4})_([a-z0-9_]+)\.sql$`)

// EmbeddedSource returns the migrations shipped with the binary.
func EmbeddedSource() ([]Migration, error) {
	sub, err := fs.Sub(embeddedFS, "versions")
	if err != nil {
		return nil, fmt.Errorf("embedded migrations: %w", err)
	}
	return Load(sub)
}

// DirSource loads migrations from an on-disk directory. When the directory
// does not exist or holds no .sql files, the embedded set is used instead so
// a fresh deployment works before any scripts are installed.
func DirSource(dir string) ([]Migration, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return EmbeddedSource()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return EmbeddedSource()
		}
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	hasSQL := false
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			hasSQL = true
			break
		}
	}
	if !hasSQL {
		return EmbeddedSource()
	}
	return Load(os.DirFS(dir))
}

// Load reads every NNNN_slug.sql file from fsys, ordered by version.
// Duplicate or malformed version numbers are a load error: the set must be
// unambiguous before anything touches the database.
func Load(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	seen := make(map[int]string)
	migrations := make([]Migration, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".sql") {
			continue
		}
		match := migrationNamePattern.FindStringSubmatch(name)
		if match == nil {
			return nil, fmt.Errorf("migration %q does not match NNNN_slug.sql", name)
		}
		version, err := strconv.Atoi(match[1])
		if err != nil || version <= 0 {
			return nil, fmt.Errorf("migration %q has invalid version", name)
		}
		if prior, dup := seen[version]; dup {
			return nil, fmt.Errorf("migration version %04d defined twice (%s, %s)", version, prior, name)
		}
		seen[version] = name

		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		sum := sha256.Sum256(data)
		migrations = append(migrations, Migration{
			Version:  version,
			Name:     strings.TrimSuffix(name, ".sql"),
			SQL:      string(data),
			Checksum: hex.EncodeToString(sum[:]),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}
