package item_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-market-console/apierror"
	"github.com/jrsteele09/go-market-console/internal/utils"
	"github.com/jrsteele09/go-market-console/item"
	"github.com/jrsteele09/go-market-console/item/apifakes"
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
	sessionAPI *sessionfakes.FakeSessionAPI
	itemAPI    *apifakes.FakeItemAPI
	sess       *session.Store
	store      *item.Store
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

	itemAPI := apifakes.NewFakeItemAPI()
	store, err := item.New(itemAPI, sess)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	return &testFixture{sessionAPI: sessionAPI, itemAPI: itemAPI, sess: sess, store: store}
}

func (f *testFixture) login(t *testing.T) {
	t.Helper()
	require.NoError(t, f.sess.Login(context.Background(), testEmail, testPassword))
}

func waitForItems(t *testing.T, store *item.Store, count int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(store.Items()) == count
	}, time.Second, 5*time.Millisecond)
}

func TestRefreshIsNoOpWhileLoggedOut(t *testing.T) {
	f := setupTestFixture(t)
	f.itemAPI.Seed(item.Item{Name: "Milk", TenantID: testTenantID})

	require.NoError(t, f.store.Refresh(context.Background()))

	require.Empty(t, f.store.Items())
	require.Zero(t, f.itemAPI.ListCalls())
}

func TestLoginPopulatesAutomatically(t *testing.T) {
	f := setupTestFixture(t)
	f.itemAPI.Seed(
		item.Item{Name: "Milk", TenantID: testTenantID},
		item.Item{Name: "Bread", TenantID: testTenantID},
		item.Item{Name: "Foreign", TenantID: otherTenant},
	)

	f.login(t)

	waitForItems(t, f.store, 2)
}

func TestLogoutClearsCollectionSynchronously(t *testing.T) {
	f := setupTestFixture(t)
	f.itemAPI.Seed(item.Item{Name: "Milk", TenantID: testTenantID})
	f.login(t)
	waitForItems(t, f.store, 1)

	f.sess.Logout()

	require.Empty(t, f.store.Items())

	calls := f.itemAPI.ListCalls()
	require.NoError(t, f.store.Refresh(context.Background()))
	require.Empty(t, f.store.Items())
	require.Equal(t, calls, f.itemAPI.ListCalls())
}

func TestRefreshFailureKeepsPreviousSnapshot(t *testing.T) {
	f := setupTestFixture(t)
	f.itemAPI.Seed(item.Item{Name: "Milk", TenantID: testTenantID})
	f.login(t)
	waitForItems(t, f.store, 1)

	f.itemAPI.ListFn = func(context.Context, string) ([]item.Item, error) {
		return nil, errors.New("connection reset")
	}

	require.Error(t, f.store.Refresh(context.Background()))
	require.Len(t, f.store.Items(), 1)
	require.NotEmpty(t, f.store.Err())
}

func TestCreateRequiresName(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	err := f.store.Create(context.Background(), item.Draft{BasePrice: utils.Ptr(1.5)}, nil)
	require.True(t, apierror.IsValidation(err))
	require.NotEmpty(t, f.store.Err())
}

func TestCreateRejectsInvalidDraftBeforeNetwork(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	waitForItems(t, f.store, 0)

	f.itemAPI.CreateFn = func(context.Context, string, item.Draft, *upload.Image) (*item.Item, error) {
		t.Fatal("an invalid draft must never reach the remote service")
		return nil, nil
	}

	draft := item.Draft{
		Name:      utils.Ptr("Milk"),
		BasePrice: utils.Ptr(-1.0),
	}
	err := f.store.Create(context.Background(), draft, nil)
	require.True(t, apierror.IsValidation(err))
}

func TestCreateAssignsActiveTenant(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)
	waitForItems(t, f.store, 0)

	draft := item.Draft{
		Name:      utils.Ptr("Whole Milk"),
		BasePrice: utils.Ptr(2.5),
	}
	require.NoError(t, f.store.Create(context.Background(), draft, nil))

	items := f.store.Items()
	require.Len(t, items, 1)
	require.Equal(t, "Whole Milk", items[0].Name)
	require.Equal(t, testTenantID, items[0].TenantID)
}

func TestFetchByIDDoesNotTouchCache(t *testing.T) {
	f := setupTestFixture(t)
	f.itemAPI.Seed(
		item.Item{ID: "item-1", Name: "Milk", TenantID: testTenantID},
		item.Item{ID: "item-2", Name: "Bread", TenantID: testTenantID},
	)
	f.login(t)
	waitForItems(t, f.store, 2)

	f.itemAPI.GetFn = func(context.Context, string) (*item.Item, error) {
		return &item.Item{ID: "item-1", Name: "Renamed Milk", TenantID: testTenantID}, nil
	}

	fetched, err := f.store.FetchByID(context.Background(), "item-1")
	require.NoError(t, err)
	require.Equal(t, "Renamed Milk", fetched.Name)

	// The cached collection still holds the original record.
	for _, it := range f.store.Items() {
		require.NotEqual(t, "Renamed Milk", it.Name)
	}
}

func TestFetchByIDWhileLoggedOutReturnsNothing(t *testing.T) {
	f := setupTestFixture(t)
	f.itemAPI.Seed(item.Item{ID: "item-1", Name: "Milk", TenantID: testTenantID})

	fetched, err := f.store.FetchByID(context.Background(), "item-1")
	require.NoError(t, err)
	require.Nil(t, fetched)
}

func TestFetchByCategoryIsSideChannel(t *testing.T) {
	f := setupTestFixture(t)
	f.itemAPI.Seed(
		item.Item{ID: "item-1", Name: "Milk", CategoryID: "cat-dairy", TenantID: testTenantID},
		item.Item{ID: "item-2", Name: "Bread", CategoryID: "cat-bakery", TenantID: testTenantID},
	)
	f.login(t)
	waitForItems(t, f.store, 2)

	list, err := f.store.FetchByCategory(context.Background(), "cat-dairy")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "Milk", list[0].Name)

	require.Len(t, f.store.Items(), 2)
}

func TestRemoveIsOptimisticAndFailureLeavesPruneInPlace(t *testing.T) {
	f := setupTestFixture(t)
	f.itemAPI.Seed(
		item.Item{ID: "item-1", Name: "Milk", TenantID: testTenantID},
		item.Item{ID: "item-2", Name: "Bread", TenantID: testTenantID},
	)
	f.login(t)
	waitForItems(t, f.store, 2)

	f.itemAPI.DeleteFn = func(context.Context, string) error {
		return errors.New("connection reset")
	}

	require.Error(t, f.store.Remove(context.Background(), "item-1"))

	require.Len(t, f.store.Items(), 1)
	require.Equal(t, "item-2", f.store.Items()[0].ID)

	f.itemAPI.DeleteFn = nil
	require.NoError(t, f.store.Refresh(context.Background()))
	require.Len(t, f.store.Items(), 2)
}

func TestRemovePermissionDeniedRecordsMessage(t *testing.T) {
	f := setupTestFixture(t)
	f.itemAPI.Seed(item.Item{ID: "item-1", Name: "Milk", TenantID: testTenantID})
	f.login(t)
	waitForItems(t, f.store, 1)

	f.itemAPI.DeleteFn = func(context.Context, string) error {
		return &apierror.PermissionError{Message: "not yours"}
	}

	err := f.store.Remove(context.Background(), "item-1")
	require.True(t, apierror.IsPermission(err))
	require.Contains(t, f.store.Err(), "permission")
}

func TestSupersededRefreshIsDiscarded(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	// Let the automatic post-login refresh finish before instrumenting.
	require.Eventually(t, func() bool { return f.itemAPI.ListCalls() == 1 }, time.Second, time.Millisecond)

	release := make(chan struct{})
	stale := []item.Item{{ID: "old", Name: "Stale", TenantID: testTenantID}}
	fresh := []item.Item{{ID: "new", Name: "Fresh", TenantID: testTenantID}}

	var calls atomic.Int32
	f.itemAPI.ListFn = func(context.Context, string) ([]item.Item, error) {
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

	items := f.store.Items()
	require.Len(t, items, 1)
	require.Equal(t, "new", items[0].ID)
}
