// ABOUTME: Error taxonomy for remote store failures
// ABOUTME: Distinguishes not-found, auth, and transient outcomes

package remote

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the requested entity does not exist.
// Callers treat it as "nothing to update", not a failure.
var ErrNotFound = errors.New("remote: not found")

// AuthError indicates the caller is unauthenticated or forbidden (401/403).
// It counts as a breaker failure, and additionally latches replication off
// for the current session until re-authentication.
type AuthError struct {
	Status int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("remote: authentication failed (status %d)", e.Status)
}

// TransientError indicates a failure worth retrying later: network error,
// timeout, throttling, or a 5xx response.
type TransientError struct {
	Op     string
	Status int // 0 for transport-level failures
	Err    error
}

func (e *TransientError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("remote: %s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("remote: %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsTransient reports whether err is a transient failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
