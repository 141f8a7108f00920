package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the storage root. Every asset area and the database live
// underneath it unless overridden individually.
type Paths struct {
	Root string `toml:"root"`
}

// Database contains relational store and migration settings.
type Database struct {
	DSN             string `toml:"dsn"`
	MigrationsDir   string `toml:"migrations_dir"`
	LockWaitSeconds int    `toml:"lock_wait_seconds"`
}

// Ingest contains upload admission settings.
type Ingest struct {
	MaxUploadBytes int64  `toml:"max_upload_bytes"`
	InboxDir       string `toml:"inbox_dir"`
}

// Reaper contains background sweep settings.
type Reaper struct {
	IntervalSeconds int `toml:"interval_seconds"`
	TempTTLSeconds  int `toml:"temp_ttl_seconds"`
}

// Logs contains log rotation and retention settings.
type Logs struct {
	RotateMaxBytes int64 `toml:"rotate_max_bytes"`
	RetentionCount int   `toml:"retention_count"`
	RetentionDays  int   `toml:"retention_days"`
}

// Registry contains asset registry policy settings.
type Registry struct {
	// ExposeDeleted makes lookups of soft-deleted assets return the audit row
	// instead of a not-found error.
	ExposeDeleted bool `toml:"expose_deleted"`
}

// API contains the collaborator boundary bind address.
type API struct {
	Bind string `toml:"bind"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for filevault.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Database Database `toml:"database"`
	Ingest   Ingest   `toml:"ingest"`
	Reaper   Reaper   `toml:"reaper"`
	Logs     Logs     `toml:"logs"`
	Registry Registry `toml:"registry"`
	API      API      `toml:"api"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/filevault/config.toml")
}

// SampleConfig returns the embedded sample configuration document.
func SampleConfig() string {
	return sampleConfig
}

// Load locates, parses, normalizes, and validates a configuration file. The
// returned config has all path fields expanded and environment overrides
// applied. The boolean reports whether a file was found at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		if env := os.Getenv("FILEVAULT_CONFIG"); env != "" {
			path = env
		}
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("filevault.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// WriteSample writes the embedded sample config to path, refusing to
// overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config already exists at %s", expanded)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
