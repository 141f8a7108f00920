package api

import (
	"errors"
	"net/http"

	"filevault/internal/faults"
)

// HTTPStatus maps a service error to the response code the collaborator
// boundary reports. Unclassified errors are internal failures.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, faults.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, faults.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, faults.ErrStageConflict):
		return http.StatusConflict
	case errors.Is(err, faults.ErrIllegalTransition),
		errors.Is(err, faults.ErrChecksumMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, faults.ErrIngestAborted):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
