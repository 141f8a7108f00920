package faults

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for every failure category the daemon reports. Callers
// classify with errors.Is; messages carry the detail.
var (
	// Fatal at startup: the process must not serve traffic.
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrMigrationDrift     = errors.New("migration drift")
	ErrMigrationLocked    = errors.New("migration locked")
	ErrMigrationFailed    = errors.New("migration failed")

	// Recoverable: reported to the caller, no partial state persisted.
	ErrPayloadTooLarge   = errors.New("payload too large")
	ErrIngestAborted     = errors.New("ingest aborted")
	ErrIllegalTransition = errors.New("illegal transition")
	ErrStageConflict     = errors.New("stage conflict")
	ErrChecksumMismatch  = errors.New("checksum mismatch")
	ErrNotFound          = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		return fmt.Errorf("%s: %w", detail, err)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether err belongs to a category that must terminate the
// process during startup.
func IsFatal(err error) bool {
	return errors.Is(err, ErrStorageUnavailable) ||
		errors.Is(err, ErrMigrationDrift) ||
		errors.Is(err, ErrMigrationLocked) ||
		errors.Is(err, ErrMigrationFailed)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "failure"
	}
	return strings.Join(parts, ": ")
}
