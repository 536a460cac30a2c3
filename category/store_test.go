package category_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-market-console/apierror"
	"github.com/jrsteele09/go-market-console/category"
	"github.com/jrsteele09/go-market-console/category/apifakes"
	"github.com/jrsteele09/go-market-console/internal/utils"
	"github.com/jrsteele09/go-market-console/session"
	sessionfakes "github.com/jrsteele09/go-market-console/session/apifakes"
	"github.com/jrsteele09/go-market-console/upload"
)

const (
	testUserID   = "user-1"
	testEmail    = "jane@market.test"
	testPassword = "Secret123"
	testTenantID = "market-1"
	otherTenant  = "market-2"
)

type testFixture struct {
	sessionAPI  *sessionfakes.FakeSessionAPI
	categoryAPI *apifakes.FakeCategoryAPI
	sess        *session.Store
	store       *category.Store
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	sessionAPI := sessionfakes.NewFakeSessionAPI()
	sessionAPI.AddAccount(session.Identity{
		ID:       testUserID,
		Email:    testEmail,
		TenantID: testTenantID,
	}, testPassword, "token-abc")

	sess, err := session.New(sessionAPI, &session.MemoryArtifact{})
	require.NoError(t, err)
	t.Cleanup(sess.Close)

	categoryAPI := apifakes.NewFakeCategoryAPI()
	store, err := category.New(categoryAPI, sess)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	return &testFixture{sessionAPI: sessionAPI, categoryAPI: categoryAPI, sess: sess, store: store}
}

func (f *testFixture) login(t *testing.T) {
	t.Helper()
	require.NoError(t, f.sess.Login(context.Background(), testEmail, testPassword))
}

func waitForCategories(t *testing.T, store *category.Store, count int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(store.Categories()) == count
	}, time.Second, 5*time.Millisecond)
}

func TestRefreshIsNoOpWhileLoggedOut(t *testing.T) {
	f := setupTestFixture(t)
	f.categoryAPI.Seed(category.Category{Name: "Dairy", TenantID: testTenantID})

	require.NoError(t, f.store.Refresh(context.Background()))

	require.Empty(t, f.store.Categories())
	require.Zero(t, f.categoryAPI.ListCalls())
}

func TestLoginPopulatesAutomatically(t *testing.T) {
	f := setupTestFixture(t)
	f.categoryAPI.Seed(
		category.Category{Name: "Dairy", TenantID: testTenantID},
		category.Category{Name: "Bakery", TenantID: testTenantID},
	)

	f.login(t)

	waitForCategories(t, f.store, 2)
}

func TestRefreshDropsOtherTenantsData(t *testing.T) {
	f := setupTestFixture(t)
	f.categoryAPI.Seed(
		category.Category{Name: "Dairy", TenantID: testTenantID},
		category.Category{Name: "Foreign", TenantID: otherTenant},
	)

	f.login(t)

	waitForCategories(t, f.store, 1)
	require.Equal(t, "Dairy", f.store.Categories()[0].Name)
}

func TestRefreshFailureKeepsPreviousSnapshot(t *testing.T) {
	f := setupTestFixture(t)
	f.categoryAPI.Seed(category.Category{Name: "Dairy", TenantID: testTenantID})
	f.login(t)
	waitForCategories(t, f.store, 1)

	f.categoryAPI.ListFn = func(context.Context, string) ([]category.Category, error) {
		return nil, errors.New("connection reset")
	}

	require.Error(t, f.store.Refresh(context.Background()))
	require.Len(t, f.store.Categories(), 1)
	require.NotEmpty(t, f.store.Err())
}

func TestLogoutClearsCollectionSynchronously(t *testing.T) {
	f := setupTestFixture(t)
	f.categoryAPI.Seed(category.Category{Name: "Dairy", TenantID: testTenantID})
	f.login(t)
	waitForCategories(t, f.store, 1)

	f.sess.Logout()

	require.Empty(t, f.store.Categories())

	// A refresh immediately after logout must stay empty and off the network.
	calls := f.categoryAPI.ListCalls()
	require.NoError(t, f.store.Refresh(context.Background()))
	require.Empty(t, f.store.Categories())
	require.Equal(t, calls, f.categoryAPI.ListCalls())
}

func TestTenantSwitchReplacesCollection(t *testing.T) {
	f := setupTestFixture(t)
	f.categoryAPI.Seed(
		category.Category{Name: "Dairy", TenantID: testTenantID},
		category.Category{Name: "Butchery", TenantID: otherTenant},
	)
	f.login(t)
	waitForCategories(t, f.store, 1)

	f.sessionAPI.UpdateIdentityFn = func(context.Context, string, session.ProfileUpdate, *upload.Image) (*session.Identity, error) {
		return &session.Identity{ID: testUserID, Email: testEmail, TenantID: otherTenant}, nil
	}
	require.NoError(t, f.sess.UpdateIdentity(context.Background(), session.ProfileUpdate{}, nil))

	require.Eventually(t, func() bool {
		categories := f.store.Categories()
		return len(categories) == 1 && categories[0].TenantID == otherTenant
	}, time.Second, 5*time.Millisecond)
}

func TestCreateRequiresName(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	err := f.store.Create(context.Background(), category.Draft{}, nil)
	require.True(t, apierror.IsValidation(err))
	require.NotEmpty(t, f.store.Err())
}

func TestCreateThenRefreshClassifiesRoot(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	require.NoError(t, f.store.Create(context.Background(), category.Draft{Name: utils.Ptr("Dairy")}, nil))

	categories := f.store.Categories()
	require.Len(t, categories, 1)
	require.Equal(t, "Dairy", categories[0].Name)
	require.True(t, categories[0].IsRoot())

	roots := f.store.Roots()
	require.Len(t, roots, 1)
	require.Equal(t, categories[0].ID, roots[0].ID)
}

func TestUpdateRejectsSelfParent(t *testing.T) {
	f := setupTestFixture(t)
	f.categoryAPI.Seed(category.Category{ID: "cat-1", Name: "Dairy", TenantID: testTenantID})
	f.login(t)
	waitForCategories(t, f.store, 1)

	err := f.store.Update(context.Background(), "cat-1", category.Draft{ParentID: utils.Ptr("cat-1")}, nil)
	require.True(t, apierror.IsValidation(err))
}

func TestUpdateRejectsCycle(t *testing.T) {
	f := setupTestFixture(t)
	f.categoryAPI.Seed(
		category.Category{ID: "cat-a", Name: "A", TenantID: testTenantID},
		category.Category{ID: "cat-b", Name: "B", TenantID: testTenantID, ParentID: "cat-a"},
		category.Category{ID: "cat-c", Name: "C", TenantID: testTenantID, ParentID: "cat-b"},
	)
	f.login(t)
	waitForCategories(t, f.store, 3)

	// Hanging A under C would close the loop A -> B -> C -> A.
	err := f.store.Update(context.Background(), "cat-a", category.Draft{ParentID: utils.Ptr("cat-c")}, nil)
	require.True(t, apierror.IsValidation(err))

	// Reparenting C under A directly is legal.
	require.NoError(t, f.store.Update(context.Background(), "cat-c", category.Draft{ParentID: utils.Ptr("cat-a")}, nil))
}

func TestRemoveIsOptimisticAndFailureLeavesPruneInPlace(t *testing.T) {
	f := setupTestFixture(t)
	f.categoryAPI.Seed(
		category.Category{ID: "cat-1", Name: "Dairy", TenantID: testTenantID},
		category.Category{ID: "cat-2", Name: "Bakery", TenantID: testTenantID},
	)
	f.login(t)
	waitForCategories(t, f.store, 2)

	f.categoryAPI.DeleteFn = func(context.Context, string) error {
		return errors.New("connection reset")
	}

	require.Error(t, f.store.Remove(context.Background(), "cat-1"))

	// The optimistic prune stands; the next successful refresh is authoritative.
	require.Len(t, f.store.Categories(), 1)
	require.Equal(t, "cat-2", f.store.Categories()[0].ID)

	f.categoryAPI.DeleteFn = nil
	require.NoError(t, f.store.Refresh(context.Background()))
	require.Len(t, f.store.Categories(), 2)
}

func TestRemovePermissionDeniedRecordsMessage(t *testing.T) {
	f := setupTestFixture(t)
	f.categoryAPI.Seed(category.Category{ID: "cat-1", Name: "Dairy", TenantID: testTenantID})
	f.login(t)
	waitForCategories(t, f.store, 1)

	f.categoryAPI.DeleteFn = func(context.Context, string) error {
		return &apierror.PermissionError{Message: "not yours"}
	}

	err := f.store.Remove(context.Background(), "cat-1")
	require.True(t, apierror.IsPermission(err))
	require.Contains(t, f.store.Err(), "permission")
}

func TestSupersededRefreshIsDiscarded(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	// Let the automatic post-login refresh finish before instrumenting.
	require.Eventually(t, func() bool { return f.categoryAPI.ListCalls() == 1 }, time.Second, time.Millisecond)

	release := make(chan struct{})
	stale := []category.Category{{ID: "old", Name: "Stale", TenantID: testTenantID}}
	fresh := []category.Category{{ID: "new", Name: "Fresh", TenantID: testTenantID}}

	var calls atomic.Int32
	f.categoryAPI.ListFn = func(context.Context, string) ([]category.Category, error) {
		if calls.Add(1) == 1 {
			<-release // first refresh resolves last
			return stale, nil
		}
		return fresh, nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.store.Refresh(context.Background())
	}()

	require.Eventually(t, func() bool { return calls.Load() >= 1 }, time.Second, time.Millisecond)
	require.NoError(t, f.store.Refresh(context.Background()))
	close(release)
	<-done

	categories := f.store.Categories()
	require.Len(t, categories, 1)
	require.Equal(t, "new", categories[0].ID)
}
