// Package session owns the single source of truth for "who is logged in"
// and the active supermarket (tenant) derived from the identity. Catalog
// stores subscribe to scope transitions and reconcile their caches whenever
// authentication or the active tenant changes.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-market-console/scope"
	"github.com/jrsteele09/go-market-console/upload"
)

// DefaultIdleTimeout is the idle window after which the store forces a
// logout. It is a session-local timer, not server-enforced.
const DefaultIdleTimeout = 15 * time.Minute

// Listener receives the new scope after every scope transition.
type Listener func(scope.Scope)

// Store holds the authentication state. All identity mutation goes through
// its methods; consumers read snapshots.
type Store struct {
	api         API
	artifact    Artifact
	log         zerolog.Logger
	idleTimeout time.Duration
	nowTime     func() time.Time // injectable for testing

	mu          sync.Mutex
	identity    *Identity
	lastScope   scope.Scope
	listeners   []registration
	nextID      int
	idleTimer   *time.Timer
	closed      bool
}

type registration struct {
	id int
	fn Listener
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger; the default is a no-op logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Store) { s.nowTime = nowFunc }
}

// WithIdleTimeout overrides the idle window after which the store forces a
// logout.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Store) { s.idleTimeout = d }
}

// New initializes a session store. The API client and the credential
// artifact are required dependencies.
func New(client API, artifact Artifact, options ...Option) (*Store, error) {
	if client == nil {
		return nil, errors.New("[session.New] API client is required")
	}
	if artifact == nil {
		return nil, errors.New("[session.New] credential artifact is required")
	}

	s := &Store{
		api:         client,
		artifact:    artifact,
		log:         zerolog.Nop(),
		idleTimeout: DefaultIdleTimeout,
		nowTime:     time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Login authenticates against the remote service. On success the identity
// is replaced wholesale and the credential artifact is persisted; on any
// failure the session state is left unchanged.
func (s *Store) Login(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return &AuthenticationError{Reason: "email and password are required"}
	}

	result, err := s.api.Login(ctx, email, password)
	if err != nil {
		var authErr *AuthenticationError
		if errors.As(err, &authErr) {
			return authErr
		}
		return &AuthenticationError{Reason: "login request failed", Err: err}
	}

	if result.Token == "" {
		return &AuthenticationError{Reason: "no credential token in login response"}
	}
	if err := s.artifact.Store(result.Token); err != nil {
		s.log.Warn().Err(err).Msg("failed to persist credential artifact")
	}

	identity := result.Identity
	s.log.Info().Str("user", identity.ID).Str("tenant", identity.TenantID).Msg("logged in")
	s.replaceIdentity(&identity)
	s.armIdleTimer()
	return nil
}

// Logout synchronously clears the identity, the persisted credential and
// the client's credential state, then signals subscribers so catalog stores
// drop their caches before any navigation happens. Logging out while
// already logged out is a no-op.
func (s *Store) Logout() {
	s.mu.Lock()
	wasAuthenticated := s.identity != nil
	s.mu.Unlock()
	if !wasAuthenticated {
		return
	}

	s.stopIdleTimer()
	if err := s.artifact.Clear(); err != nil {
		s.log.Warn().Err(err).Msg("failed to clear credential artifact")
	}
	s.api.ClearCredential()
	s.log.Info().Msg("logged out")
	s.replaceIdentity(nil)
}

// UpdateIdentity sends a partial profile update (multipart when an image is
// attached) and replaces the cached identity with the server's record. On
// failure the cached identity is untouched.
func (s *Store) UpdateIdentity(ctx context.Context, update ProfileUpdate, image *upload.Image) error {
	current, ok := s.Identity()
	if !ok {
		return ErrNotAuthenticated
	}

	updated, err := s.api.UpdateIdentity(ctx, current.ID, update, image)
	if err != nil {
		return &ProfileUpdateError{Err: err}
	}

	s.log.Info().Str("user", updated.ID).Msg("identity updated")
	s.replaceIdentity(updated)
	return nil
}

// CredentialStatus is the outcome of a credential change. Expected
// rejections (weak or wrong secret) are reported here rather than as
// errors; only unexpected failures surface as errors.
type CredentialStatus struct {
	OK     bool
	Reason string
}

// UpdateCredential validates the new secret locally, then asks the server
// to change the credential. A returned fresh token replaces the persisted
// artifact.
func (s *Store) UpdateCredential(ctx context.Context, currentSecret, newSecret string) (CredentialStatus, error) {
	current, ok := s.Identity()
	if !ok {
		return CredentialStatus{}, ErrNotAuthenticated
	}

	if err := ValidateSecretStrength(newSecret); err != nil {
		return CredentialStatus{OK: false, Reason: err.Error()}, nil
	}

	change, err := s.api.UpdateCredential(ctx, current.ID, currentSecret, newSecret)
	if err != nil {
		return CredentialStatus{}, errors.Wrap(err, "[Store.UpdateCredential] api.UpdateCredential")
	}

	if !change.Success {
		return CredentialStatus{OK: false, Reason: change.Message}, nil
	}
	if change.Token != "" {
		if err := s.artifact.Store(change.Token); err != nil {
			s.log.Warn().Err(err).Msg("failed to persist rotated credential")
		}
		s.api.SetCredential(change.Token)
	}
	return CredentialStatus{OK: true, Reason: change.Message}, nil
}

// Revalidate attempts to re-derive the identity from a persisted credential
// artifact at process start. Failures degrade silently to logged-out; the
// caller never sees an error for an expired session.
func (s *Store) Revalidate(ctx context.Context) {
	token, ok := s.artifact.Load()
	if !ok {
		s.replaceIdentity(nil)
		return
	}

	if expired, known := tokenExpired(token, s.nowTime()); known && expired {
		s.log.Debug().Msg("persisted credential expired, skipping re-validation")
		if err := s.artifact.Clear(); err != nil {
			s.log.Warn().Err(err).Msg("failed to clear expired credential")
		}
		s.replaceIdentity(nil)
		return
	}

	s.api.SetCredential(token)
	identity, err := s.api.CurrentIdentity(ctx)
	if err != nil {
		s.log.Debug().Err(err).Msg("re-validation failed, degrading to logged out")
		s.api.ClearCredential()
		s.replaceIdentity(nil)
		return
	}

	s.log.Info().Str("user", identity.ID).Msg("session re-validated")
	s.replaceIdentity(identity)
	s.armIdleTimer()
}

// Touch records user activity, rearming the idle-timeout countdown. It has
// no effect while logged out.
func (s *Store) Touch() {
	s.mu.Lock()
	authenticated := s.identity != nil && !s.closed
	s.mu.Unlock()
	if authenticated {
		s.armIdleTimer()
	}
}

// Close releases the idle timer and detaches all listeners. The store must
// not be used afterwards.
func (s *Store) Close() {
	s.stopIdleTimer()
	s.mu.Lock()
	s.closed = true
	s.listeners = nil
	s.mu.Unlock()
}

// Subscribe registers a listener invoked synchronously, exactly once per
// scope transition. The returned function unsubscribes.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, registration{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, reg := range s.listeners {
			if reg.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// Authenticated reports whether an identity is present.
func (s *Store) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity != nil
}

// Identity returns a copy of the current identity, if any.
func (s *Store) Identity() (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return Identity{}, false
	}
	return *s.identity, true
}

// ActiveTenantID is the supermarket scoping all catalog data. Empty while
// logged out.
func (s *Store) ActiveTenantID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return ""
	}
	return s.identity.TenantID
}

// Scope returns the current (authenticated, tenant) pair.
func (s *Store) Scope() scope.Scope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scopeLocked()
}

func (s *Store) scopeLocked() scope.Scope {
	if s.identity == nil {
		return scope.Scope{}
	}
	return scope.Scope{Authenticated: true, TenantID: s.identity.TenantID}
}

// replaceIdentity swaps the identity wholesale and, when the scope changed,
// notifies subscribers outside the lock but before returning.
func (s *Store) replaceIdentity(identity *Identity) {
	s.mu.Lock()
	s.identity = identity
	newScope := s.scopeLocked()
	changed := newScope != s.lastScope
	s.lastScope = newScope
	var notify []registration
	if changed {
		notify = make([]registration, len(s.listeners))
		copy(notify, s.listeners)
	}
	s.mu.Unlock()

	for _, reg := range notify {
		reg.fn(newScope)
	}
}

func (s *Store) armIdleTimer() {
	if s.idleTimeout <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.idleTimer = time.AfterFunc(s.idleTimeout, s.idleExpired)
}

func (s *Store) stopIdleTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
}

func (s *Store) idleExpired() {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}
	s.log.Info().Dur("idleTimeout", s.idleTimeout).Msg("idle timeout expired, forcing logout")
	s.Logout()
}

// tokenExpired inspects the exp claim of a persisted JWT without verifying
// its signature; verification is the server's job. known is false when the
// token cannot be parsed as a JWT at all, in which case the caller should
// still try a network re-validation.
func tokenExpired(token string, now time.Time) (expired, known bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false, false
	}
	return exp.Time.Before(now), true
}
