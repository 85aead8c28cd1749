// Package fielderr defines the error taxonomy shared by the state machines,
// the local store and the REST client.
package fielderr

import (
	"errors"
	"fmt"
)

var (
	// ErrAttendanceRequired is returned when a visit action is attempted
	// before today's attendance is marked Present.
	ErrAttendanceRequired = errors.New("attendance required")
	// ErrNotPresent is returned when today's attendance status does not
	// permit shop visits.
	ErrNotPresent = errors.New("attendance status does not permit visits")
	// ErrVisitActive is returned when a check-in is attempted while another
	// visit is still open.
	ErrVisitActive = errors.New("another visit is active")
	// ErrNoActiveVisit is returned when a visit-scoped action has no open
	// visit to attach to.
	ErrNoActiveVisit = errors.New("no active visit")
	// ErrLocationUnavailable is returned when a location fix could not be
	// acquired within the timeout or permission was denied.
	ErrLocationUnavailable = errors.New("location unavailable")
	// ErrPermissionDenied is returned when the user denied the location
	// permission prompt.
	ErrPermissionDenied = errors.New("location permission denied")
	// ErrSessionExpired forces re-authentication.
	ErrSessionExpired = errors.New("session expired")
	// ErrStorage wraps local persistence I/O failures. Callers gating on
	// stored state treat it as "absent".
	ErrStorage = errors.New("storage failure")
)

// RemoteError is a network or application-level failure from the backend.
// APICode carries the status embedded in the response body, which must be
// 200 even when the transport call succeeded.
type RemoteError struct {
	HTTPStatus int
	APICode    int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote request failed: http %d, api %d: %s", e.HTTPStatus, e.APICode, e.Message)
	}
	return fmt.Sprintf("remote request failed: http %d, api %d", e.HTTPStatus, e.APICode)
}

// InconsistentError is fatal: a remote mutation succeeded but the matching
// local write failed (or vice versa), so the two sides disagree. It must
// never be auto-retried; the orphaned remote id is kept for manual
// reconciliation.
type InconsistentError struct {
	RemoteID int
	Reason   string
}

func (e *InconsistentError) Error() string {
	return fmt.Sprintf("inconsistent state (remote id %d): %s", e.RemoteID, e.Reason)
}

// IsRemote reports whether err is a RemoteError.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

// IsInconsistent reports whether err is an InconsistentError.
func IsInconsistent(err error) bool {
	var ie *InconsistentError
	return errors.As(err, &ie)
}
