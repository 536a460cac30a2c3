// Package item maintains the tenant-scoped product catalog: fetch and
// mutate operations against the remote item endpoint, scope-driven cache
// reconciliation, and derived promotional pricing via package pricing.
package item

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

// Store owns the item collection. Its methods are the only writers;
// consumers read snapshot copies.
type Store struct {
	api         API
	sess        *session.Store
	log         zerolog.Logger
	baseCtx     context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	refreshSeq  atomic.Uint64

	mu      sync.Mutex
	items   []Item
	lastErr string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger; the default is a no-op logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// New builds an item store bound to a session. Scope transitions clear the
// collection (invalid) or trigger exactly one automatic refresh (valid).
func New(client API, sess *session.Store, options ...Option) (*Store, error) {
	if client == nil {
		return nil, errors.New("[item.New] API client is required")
	}
	if sess == nil {
		return nil, errors.New("[item.New] session store is required")
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
		s.log.Warn().Err(err).Msg("automatic item refresh failed")
	}
}

// Refresh fetches the active tenant's items and replaces the collection
// atomically. Superseded or stale-tenant responses are discarded; failures
// keep the previous collection and record a retrievable message.
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
		s.log.Debug().Uint64("seq", seq).Msg("discarding superseded item refresh")
		return nil
	}
	if err != nil {
		s.lastErr = "failed to fetch items, please try again later"
		return errors.Wrap(err, "[Store.Refresh] api.List")
	}
	if current := s.sess.Scope(); current != sc {
		s.log.Debug().Str("tenant", sc.TenantID).Msg("discarding item refresh for stale scope")
		return nil
	}

	s.items = keepTenant(list, sc.TenantID)
	s.lastErr = ""
	return nil
}

// Create validates the draft, serializes every provided field into a
// multipart payload and refreshes the collection after the remote service
// has acknowledged the new item.
func (s *Store) Create(ctx context.Context, draft Draft, image *upload.Image) error {
	sc := s.sess.Scope()
	if !sc.Valid() {
		s.clear()
		return nil
	}

	if draft.Name == nil || *draft.Name == "" {
		return s.fail(&apierror.ValidationError{Field: "name", Reason: "an item name is required"})
	}
	if err := draft.Validate(); err != nil {
		return s.fail(err)
	}

	created, err := s.api.Create(ctx, sc.TenantID, draft, image)
	if err != nil {
		return s.fail(errors.Wrap(err, "[Store.Create] api.Create"))
	}
	s.log.Info().Str("item", created.ID).Str("name", created.Name).Msg("item created")
	return s.Refresh(ctx)
}

// Update validates and submits a partial item update, then refreshes.
func (s *Store) Update(ctx context.Context, id string, draft Draft, image *upload.Image) error {
	if !s.sess.Scope().Valid() {
		s.clear()
		return nil
	}

	if err := draft.Validate(); err != nil {
		return s.fail(err)
	}

	if _, err := s.api.Update(ctx, id, draft, image); err != nil {
		return s.fail(errors.Wrap(err, "[Store.Update] api.Update"))
	}
	return s.Refresh(ctx)
}

// Remove optimistically prunes the item locally without waiting for the
// network round-trip. On failure the prune stands as informational only;
// the next refresh is authoritative.
func (s *Store) Remove(ctx context.Context, id string) error {
	if !s.sess.Scope().Valid() {
		s.clear()
		return nil
	}

	s.mu.Lock()
	pruned := s.items[:0:0]
	for _, it := range s.items {
		if it.ID != id {
			pruned = append(pruned, it)
		}
	}
	s.items = pruned
	s.mu.Unlock()

	if err := s.api.Delete(ctx, id); err != nil {
		if apierror.IsPermission(err) {
			return s.failMsg("you do not have permission to delete this item", err)
		}
		return s.fail(errors.Wrap(err, "[Store.Remove] api.Delete"))
	}
	return s.Refresh(ctx)
}

// FetchByID is a read-only side channel: it queries the remote service
// directly and never touches the cached collection, so its result may
// disagree with Items() at the same instant.
func (s *Store) FetchByID(ctx context.Context, id string) (*Item, error) {
	if !s.sess.Scope().Valid() {
		return nil, nil
	}
	it, err := s.api.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "[Store.FetchByID] api.Get")
	}
	return it, nil
}

// FetchByCategory is a read-only side channel returning the items of one
// category without mutating the cached collection.
func (s *Store) FetchByCategory(ctx context.Context, categoryID string) ([]Item, error) {
	if !s.sess.Scope().Valid() {
		return nil, nil
	}
	list, err := s.api.ListByCategory(ctx, categoryID)
	if err != nil {
		return nil, errors.Wrap(err, "[Store.FetchByCategory] api.ListByCategory")
	}
	return list, nil
}

// Items returns a snapshot copy of the collection.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]Item, len(s.items))
	copy(snapshot, s.items)
	return snapshot
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
	s.items = nil
	s.lastErr = ""
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

func keepTenant(list []Item, tenantID string) []Item {
	kept := make([]Item, 0, len(list))
	for _, it := range list {
		if it.TenantID == "" || it.TenantID == tenantID {
			kept = append(kept, it)
		}
	}
	return kept
}
