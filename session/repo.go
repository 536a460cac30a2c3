package session

import (
	"context"

	"github.com/jrsteele09/go-market-console/upload"
)

// LoginResult is the payload of a successful login: the identity record and
// the raw credential token the server also sets as a secure cookie.
type LoginResult struct {
	Identity Identity
	Token    string
}

// CredentialChange is the server's answer to a password change request.
// Success=false is an expected rejection (wrong current secret), not a
// transport failure. A non-empty Token replaces the credential artifact.
type CredentialChange struct {
	Success bool
	Message string
	Token   string
}

// API is the slice of the remote service the session store depends on.
// Implemented by restapi.Client; faked in apifakes for tests.
type API interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	CurrentIdentity(ctx context.Context) (*Identity, error)
	UpdateIdentity(ctx context.Context, id string, update ProfileUpdate, image *upload.Image) (*Identity, error)
	UpdateCredential(ctx context.Context, id, currentSecret, newSecret string) (*CredentialChange, error)

	// SetCredential primes the client with a persisted credential token so
	// that re-validation after a restart sends it; ClearCredential drops
	// whatever credential state the client holds (cookies included).
	SetCredential(token string)
	ClearCredential()
}
