// Package apierror defines the error taxonomy shared by the stores and the
// REST client. Scope failures deliberately have no type here: an invalid
// scope is a policy gate handled by silent no-op, never a surfaced error.
package apierror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

// NetworkError is a transport-level failure: the request never produced an
// HTTP response.
type NetworkError struct {
	Op  string
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// PermissionError is a 403 from the remote service, e.g. deleting a
// category owned by another tenant.
type PermissionError struct {
	Message string
}

func (e *PermissionError) Error() string {
	if e.Message == "" {
		return "permission denied"
	}
	return e.Message
}

// ValidationError reports malformed local input caught before any network
// call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StatusError carries a non-2xx response that maps to no more specific
// type.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// IsPermission reports whether any error in the chain is a PermissionError.
func IsPermission(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

// IsValidation reports whether any error in the chain is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
