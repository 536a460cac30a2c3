package session

import (
	"errors"
	"fmt"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrStoreClosed      = errors.New("session store closed")
)

// AuthenticationError reports a failed login or an expired session. The
// session state is left unchanged when one is returned.
type AuthenticationError struct {
	Reason string
	Err    error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// ProfileUpdateError reports a failed identity update; the cached identity
// is left unchanged when one is returned.
type ProfileUpdateError struct {
	Err error
}

func (e *ProfileUpdateError) Error() string {
	return fmt.Sprintf("profile update failed: %v", e.Err)
}

func (e *ProfileUpdateError) Unwrap() error { return e.Err }
