// Package logging builds the slog loggers used across filevault and owns the
// on-disk log file helpers (rotation and retention pruning) the reaper calls.
//
// Two output formats are supported: a compact console format for interactive
// use and JSON for ingestion. Attr helpers keep call sites terse and let the
// rest of the codebase avoid importing log/slog directly for field
// construction.
package logging
