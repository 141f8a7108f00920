package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	var err error
	if c.Paths.Root, err = expandPath(c.Paths.Root); err != nil {
		return fmt.Errorf("paths.root: %w", err)
	}
	if strings.TrimSpace(c.Paths.Root) == "" {
		if c.Paths.Root, err = expandPath(defaultRoot); err != nil {
			return fmt.Errorf("paths.root: %w", err)
		}
	}

	c.Database.DSN = strings.TrimSpace(c.Database.DSN)
	if c.Database.DSN == "" {
		c.Database.DSN = filepath.Join(c.Paths.Root, "storage", "filevault.db")
	}
	c.Database.MigrationsDir = strings.TrimSpace(c.Database.MigrationsDir)
	if c.Database.MigrationsDir == "" {
		c.Database.MigrationsDir = filepath.Join(c.Paths.Root, "storage", "migrations", "versions")
	} else if c.Database.MigrationsDir, err = expandPath(c.Database.MigrationsDir); err != nil {
		return fmt.Errorf("database.migrations_dir: %w", err)
	}
	if c.Database.LockWaitSeconds <= 0 {
		c.Database.LockWaitSeconds = defaultLockWaitSeconds
	}

	if c.Ingest.InboxDir != "" {
		if c.Ingest.InboxDir, err = expandPath(c.Ingest.InboxDir); err != nil {
			return fmt.Errorf("ingest.inbox_dir: %w", err)
		}
	}

	if c.Reaper.IntervalSeconds <= 0 {
		c.Reaper.IntervalSeconds = defaultReaperInterval
	}

	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}

	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// applyEnvOverrides layers process environment settings over file values.
// The short names (DB_DSN, MAX_UPLOAD_BYTES, TEMP_TTL_SECONDS,
// LOG_RETENTION_COUNT) are the deployment contract; FILEVAULT_* names cover
// the remaining knobs.
func (c *Config) applyEnvOverrides() {
	if value, ok := os.LookupEnv("FILEVAULT_ROOT"); ok && strings.TrimSpace(value) != "" {
		c.Paths.Root = value
	}
	if value, ok := os.LookupEnv("DB_DSN"); ok && strings.TrimSpace(value) != "" {
		c.Database.DSN = value
	}
	if value, ok := envInt64("MAX_UPLOAD_BYTES"); ok {
		c.Ingest.MaxUploadBytes = value
	}
	if value, ok := envInt64("TEMP_TTL_SECONDS"); ok {
		c.Reaper.TempTTLSeconds = int(value)
	}
	if value, ok := envInt64("LOG_RETENTION_COUNT"); ok {
		c.Logs.RetentionCount = int(value)
	}
	if value, ok := os.LookupEnv("FILEVAULT_API_BIND"); ok && strings.TrimSpace(value) != "" {
		c.API.Bind = value
	}
	if value, ok := os.LookupEnv("FILEVAULT_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
}

func envInt64(name string) (int64, bool) {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return 0, false
	}
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		trimmed = filepath.Join(home, trimmed[2:])
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}
	return abs, nil
}
