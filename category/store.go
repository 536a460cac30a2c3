// Package category maintains the tenant-scoped category forest and
// mediates every mutation against the remote category endpoint. The store
// observes session scope transitions: it clears its collection the moment
// the scope turns invalid and refreshes exactly once when it turns valid.
package category

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-market-console/apierror"
	"github.com/jrsteele09/go-market-console/scope"
	"github.com/jrsteele09/go-market-console/session"
	"github.com/jrsteele09/go-market-console/upload"
)

const permissionDeniedMsg = "you do not have permission to delete this category"

// Store owns the category collection. Its methods are the only writers;
// consumers read snapshot copies.
type Store struct {
	api         API
	sess        *session.Store
	log         zerolog.Logger
	baseCtx     context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	refreshSeq  atomic.Uint64

	mu         sync.Mutex
	categories []Category
	lastErr    string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger; the default is a no-op logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// New builds a category store bound to a session. If the session scope is
// already valid the collection populates asynchronously; afterwards every
// scope transition either clears the collection (invalid) or triggers one
// automatic refresh (valid).
func New(client API, sess *session.Store, options ...Option) (*Store, error) {
	if client == nil {
		return nil, errors.New("[category.New] API client is required")
	}
	if sess == nil {
		return nil, errors.New("[category.New] session store is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		api:     client,
		sess:    sess,
		log:     zerolog.Nop(),
		baseCtx: ctx,
		cancel:  cancel,
	}
	for _, opt := range options {
		opt(s)
	}

	s.unsubscribe = sess.Subscribe(s.onScopeChange)
	if sess.Scope().Valid() {
		go s.autoRefresh()
	}
	return s, nil
}

// Close detaches the store from the session and cancels any in-flight
// automatic refresh.
func (s *Store) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.cancel()
}

func (s *Store) onScopeChange(sc scope.Scope) {
	if !sc.Valid() {
		s.clear()
		return
	}
	go s.autoRefresh()
}

func (s *Store) autoRefresh() {
	if err := s.Refresh(s.baseCtx); err != nil {
		s.log.Warn().Err(err).Msg("automatic category refresh failed")
	}
}

// Refresh fetches all categories for the active tenant and replaces the
// collection atomically. Under an invalid scope it clears the collection
// and does nothing else. A response that has been superseded by a newer
// refresh, or that belongs to a tenant no longer active, is discarded. On
// failure the previous collection is kept and the error message is
// retrievable via Err.
func (s *Store) Refresh(ctx context.Context) error {
	sc := s.sess.Scope()
	if !sc.Valid() {
		s.clear()
		return nil
	}

	seq := s.refreshSeq.Add(1)
	list, err := s.api.List(ctx, sc.TenantID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.refreshSeq.Load() {
		s.log.Debug().Uint64("seq", seq).Msg("discarding superseded category refresh")
		return nil
	}
	if err != nil {
		s.lastErr = "failed to fetch categories, please try again later"
		return errors.Wrap(err, "[Store.Refresh] api.List")
	}
	if current := s.sess.Scope(); current != sc {
		s.log.Debug().Str("tenant", sc.TenantID).Msg("discarding category refresh for stale scope")
		return nil
	}

	s.categories = keepTenant(list, sc.TenantID)
	s.lastErr = ""
	return nil
}

// Create submits a new category as a multipart request and refreshes the
// collection once the remote service has acknowledged it. The service is
// the authority on id assignment; concurrent creates are not de-duplicated.
func (s *Store) Create(ctx context.Context, draft Draft, image *upload.Image) error {
	identity, ok := s.sess.Identity()
	if !ok || !s.sess.Scope().Valid() {
		s.clear()
		return nil
	}

	if draft.Name == nil || *draft.Name == "" {
		return s.fail(&apierror.ValidationError{Field: "name", Reason: "a category name is required"})
	}

	created, err := s.api.Create(ctx, identity.ID, draft, image)
	if err != nil {
		return s.fail(errors.Wrap(err, "[Store.Create] api.Create"))
	}
	s.log.Info().Str("category", created.ID).Str("name", created.Name).Msg("category created")
	return s.Refresh(ctx)
}

// Update submits a multipart update and refreshes afterwards. A parent
// assignment that would introduce a cycle in the forest is rejected before
// any network call.
func (s *Store) Update(ctx context.Context, id string, draft Draft, image *upload.Image) error {
	if !s.sess.Scope().Valid() {
		s.clear()
		return nil
	}

	if draft.ParentID != nil && *draft.ParentID != "" {
		if err := s.checkCycle(id, *draft.ParentID); err != nil {
			return s.fail(err)
		}
	}

	if _, err := s.api.Update(ctx, id, draft, image); err != nil {
		return s.fail(errors.Wrap(err, "[Store.Update] api.Update"))
	}
	return s.Refresh(ctx)
}

// Remove optimistically prunes the category locally, then issues the
// delete. On success the next refresh reconciles; on failure the optimistic
// removal stands as informational only - no rollback is attempted, the next
// refresh is authoritative.
func (s *Store) Remove(ctx context.Context, id string) error {
	if !s.sess.Scope().Valid() {
		s.clear()
		return nil
	}

	s.mu.Lock()
	pruned := s.categories[:0:0]
	for _, c := range s.categories {
		if c.ID != id {
			pruned = append(pruned, c)
		}
	}
	s.categories = pruned
	s.mu.Unlock()

	if err := s.api.Delete(ctx, id); err != nil {
		if apierror.IsPermission(err) {
			return s.failMsg(permissionDeniedMsg, err)
		}
		return s.fail(errors.Wrap(err, "[Store.Remove] api.Delete"))
	}
	return s.Refresh(ctx)
}

// Categories returns a snapshot copy of the collection.
func (s *Store) Categories() []Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]Category, len(s.categories))
	copy(snapshot, s.categories)
	return snapshot
}

// Roots is the derived view of categories with no parent, recomputed from
// the current collection. It feeds parent-selection options in the
// mutation UI and is not separately writable.
func (s *Store) Roots() []Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	roots := make([]Category, 0, len(s.categories))
	for _, c := range s.categories {
		if c.IsRoot() {
			roots = append(roots, c)
		}
	}
	return roots
}

// Err returns the message recorded by the last failed operation, empty
// after a success.
func (s *Store) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Store) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = nil
	s.lastErr = ""
}

// checkCycle walks the cached parent chain from the proposed parent; if it
// reaches the category being updated the assignment would create a cycle.
func (s *Store) checkCycle(id, parentID string) error {
	if id == parentID {
		return &apierror.ValidationError{Field: "parentCategory", Reason: "a category cannot be its own parent"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	byID := make(map[string]Category, len(s.categories))
	for _, c := range s.categories {
		byID[c.ID] = c
	}

	visited := map[string]bool{}
	for current := parentID; current != "" && !visited[current]; {
		visited[current] = true
		parent, ok := byID[current]
		if !ok {
			return nil
		}
		if parent.ParentID == id {
			return &apierror.ValidationError{Field: "parentCategory", Reason: "parent assignment would create a cycle"}
		}
		current = parent.ParentID
	}
	return nil
}

func (s *Store) fail(err error) error {
	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()
	return err
}

func (s *Store) failMsg(msg string, err error) error {
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
	return err
}

func keepTenant(list []Category, tenantID string) []Category {
	kept := make([]Category, 0, len(list))
	for _, c := range list {
		if c.TenantID == "" || c.TenantID == tenantID {
			kept = append(kept, c)
		}
	}
	return kept
}
