// internal/app/features/errors/sentinels.go
package errors

import (
	"errors"
	"net/http"
)

// Stable failure categories for the governance pipeline. Every handler
// maps a failed operation to exactly one of these before rendering, so
// API callers and pages see consistent status codes for the same class
// of failure.
var (
	// ErrPermissionDenied: the actor is known but the access rules said no.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound: a referenced user, campaign, or review does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPreconditionFailed: a guarded state transition lost its race or
	// the resource was not in the required status.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrInvalidArgument: the request payload failed validation.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAuditWriteFailed: the audit record could not be persisted, so the
	// guarded action was aborted.
	ErrAuditWriteFailed = errors.New("audit write failed")

	// ErrInternal: everything else.
	ErrInternal = errors.New("internal error")
)

// StatusFor maps a categorized error to its HTTP status code. Unknown
// errors are treated as internal.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrPreconditionFailed):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ErrAuditWriteFailed):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
