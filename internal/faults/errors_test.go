package faults_test

import (
	"errors"
	"io"
	"testing"

	"filevault/internal/faults"
)

func TestWrapPreservesMarkerAndCause(t *testing.T) {
	cause := io.ErrUnexpectedEOF
	err := faults.Wrap(faults.ErrIngestAborted, "ingest", "stream", "source closed early", cause)

	if !errors.Is(err, faults.ErrIngestAborted) {
		t.Fatalf("expected ErrIngestAborted, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := faults.Wrap(faults.ErrPayloadTooLarge, "ingest", "validate", "declared 10GiB", nil)
	if !errors.Is(err, faults.ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
	if err.Error() == "" {
		t.Fatal("expected non-empty message")
	}
}

func TestIsFatal(t *testing.T) {
	fatal := []error{
		faults.ErrStorageUnavailable,
		faults.ErrMigrationDrift,
		faults.ErrMigrationLocked,
		faults.ErrMigrationFailed,
	}
	for _, err := range fatal {
		if !faults.IsFatal(faults.Wrap(err, "startup", "", "", nil)) {
			t.Errorf("expected %v to be fatal", err)
		}
	}

	recoverable := []error{
		faults.ErrPayloadTooLarge,
		faults.ErrIngestAborted,
		faults.ErrIllegalTransition,
		faults.ErrStageConflict,
		faults.ErrChecksumMismatch,
		faults.ErrNotFound,
	}
	for _, err := range recoverable {
		if faults.IsFatal(err) {
			t.Errorf("expected %v to be recoverable", err)
		}
	}
}
