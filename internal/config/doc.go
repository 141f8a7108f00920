// Package config loads, normalizes, and validates filevault configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// DB_DSN and MAX_UPLOAD_BYTES. The Config type centralizes every knob the
// daemon and CLI need, so storage areas, database location, and reaper
// thresholds are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
