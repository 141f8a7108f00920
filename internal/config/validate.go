package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if c.Paths.Root == "" {
		return errors.New("paths.root must be set")
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn must be set (or DB_DSN exported)")
	}
	if c.Ingest.MaxUploadBytes <= 0 {
		return fmt.Errorf("ingest.max_upload_bytes must be positive, got %d", c.Ingest.MaxUploadBytes)
	}
	if c.Reaper.TempTTLSeconds < 0 {
		return fmt.Errorf("reaper.temp_ttl_seconds must not be negative, got %d", c.Reaper.TempTTLSeconds)
	}
	if c.Logs.RetentionCount < 0 {
		return fmt.Errorf("logs.retention_count must not be negative, got %d", c.Logs.RetentionCount)
	}
	if c.Logs.RotateMaxBytes < 0 {
		return fmt.Errorf("logs.rotate_max_bytes must not be negative, got %d", c.Logs.RotateMaxBytes)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}
