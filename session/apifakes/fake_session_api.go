package apifakes

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-market-console/session"
	"github.com/jrsteele09/go-market-console/upload"
)

var _ session.API = (*FakeSessionAPI)(nil)

// FakeSessionAPI is an in-memory session.API for unit tests. Behaviour is
// overridable per test via the function fields; unset fields fall back to a
// small account registry.
type FakeSessionAPI struct {
	LoginFn            func(ctx context.Context, email, password string) (*session.LoginResult, error)
	CurrentIdentityFn  func(ctx context.Context) (*session.Identity, error)
	UpdateIdentityFn   func(ctx context.Context, id string, update session.ProfileUpdate, image *upload.Image) (*session.Identity, error)
	UpdateCredentialFn func(ctx context.Context, id, currentSecret, newSecret string) (*session.CredentialChange, error)

	lock        sync.Mutex
	accounts    map[string]account // keyed by email
	credential  string
	clearCalls  int
	setCalls    int
}

type account struct {
	identity session.Identity
	password string
	token    string
}

func NewFakeSessionAPI() *FakeSessionAPI {
	return &FakeSessionAPI{accounts: make(map[string]account)}
}

// AddAccount registers an identity that can log in with the given password
// and will be issued the given token.
func (f *FakeSessionAPI) AddAccount(identity session.Identity, password, token string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.accounts[identity.Email] = account{identity: identity, password: password, token: token}
}

func (f *FakeSessionAPI) Login(ctx context.Context, email, password string) (*session.LoginResult, error) {
	if f.LoginFn != nil {
		return f.LoginFn(ctx, email, password)
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	acc, ok := f.accounts[email]
	if !ok || acc.password != password {
		return nil, &session.AuthenticationError{Reason: "invalid credentials"}
	}
	f.credential = acc.token
	return &session.LoginResult{Identity: acc.identity, Token: acc.token}, nil
}

func (f *FakeSessionAPI) CurrentIdentity(ctx context.Context) (*session.Identity, error) {
	if f.CurrentIdentityFn != nil {
		return f.CurrentIdentityFn(ctx)
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	for _, acc := range f.accounts {
		if acc.token != "" && acc.token == f.credential {
			identity := acc.identity
			return &identity, nil
		}
	}
	return nil, &session.AuthenticationError{Reason: "expired session"}
}

func (f *FakeSessionAPI) UpdateIdentity(ctx context.Context, id string, update session.ProfileUpdate, image *upload.Image) (*session.Identity, error) {
	if f.UpdateIdentityFn != nil {
		return f.UpdateIdentityFn(ctx, id, update, image)
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	for email, acc := range f.accounts {
		if acc.identity.ID != id {
			continue
		}
		if update.DisplayName != nil {
			acc.identity.DisplayName = *update.DisplayName
		}
		if update.Email != nil {
			acc.identity.Email = *update.Email
		}
		f.accounts[email] = acc
		identity := acc.identity
		return &identity, nil
	}
	return nil, &session.AuthenticationError{Reason: "unknown user"}
}

func (f *FakeSessionAPI) UpdateCredential(ctx context.Context, id, currentSecret, newSecret string) (*session.CredentialChange, error) {
	if f.UpdateCredentialFn != nil {
		return f.UpdateCredentialFn(ctx, id, currentSecret, newSecret)
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	for email, acc := range f.accounts {
		if acc.identity.ID != id {
			continue
		}
		if acc.password != currentSecret {
			return &session.CredentialChange{Success: false, Message: "current password incorrect"}, nil
		}
		acc.password = newSecret
		f.accounts[email] = acc
		return &session.CredentialChange{Success: true, Message: "password updated"}, nil
	}
	return &session.CredentialChange{Success: false, Message: "unknown user"}, nil
}

func (f *FakeSessionAPI) SetCredential(token string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.credential = token
	f.setCalls++
}

func (f *FakeSessionAPI) ClearCredential() {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.credential = ""
	f.clearCalls++
}

// Credential returns the token the client currently holds.
func (f *FakeSessionAPI) Credential() string {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.credential
}

// ClearCredentialCalls reports how many times ClearCredential was invoked.
func (f *FakeSessionAPI) ClearCredentialCalls() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.clearCalls
}
