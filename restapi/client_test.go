package restapi_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-market-console/apierror"
	"github.com/jrsteele09/go-market-console/apitest"
	"github.com/jrsteele09/go-market-console/category"
	"github.com/jrsteele09/go-market-console/internal/utils"
	"github.com/jrsteele09/go-market-console/item"
	"github.com/jrsteele09/go-market-console/restapi"
	"github.com/jrsteele09/go-market-console/session"
	"github.com/jrsteele09/go-market-console/upload"
)

const (
	testSecret   = "integration-secret"
	testUserID   = "user-1"
	testEmail    = "jane@market.test"
	testPassword = "Secret123"
	testTenantID = "market-1"
	otherTenant  = "market-2"
)

type testFixture struct {
	server  *apitest.Server
	client  *restapi.Client
	baseURL string
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	server := apitest.New(testSecret)
	server.AddAccount(session.Identity{
		ID:       testUserID,
		Email:    testEmail,
		TenantID: testTenantID,
		Role:     session.RoleOwner,
	}, testPassword)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	client, err := restapi.New(ts.URL)
	require.NoError(t, err)

	return &testFixture{server: server, client: client, baseURL: ts.URL}
}

func (f *testFixture) login(t *testing.T) *session.LoginResult {
	t.Helper()
	result, err := f.client.Login(context.Background(), testEmail, testPassword)
	require.NoError(t, err)
	return result
}

func TestLoginReturnsIdentityAndPrimesCredential(t *testing.T) {
	f := setupTestFixture(t)

	result := f.login(t)
	require.Equal(t, testUserID, result.Identity.ID)
	require.Equal(t, testTenantID, result.Identity.TenantID)
	require.NotEmpty(t, result.Token)

	// The primed credential lets follow-up requests through.
	identity, err := f.client.CurrentIdentity(context.Background())
	require.NoError(t, err)
	require.Equal(t, testEmail, identity.Email)
}

func TestLoginRejectionIsAuthenticationError(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.client.Login(context.Background(), testEmail, "wrong-password")

	var authErr *session.AuthenticationError
	require.ErrorAs(t, err, &authErr)
}

func TestUnauthenticatedRequestIsAuthenticationError(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.client.ItemAPI().List(context.Background(), testTenantID)

	var authErr *session.AuthenticationError
	require.ErrorAs(t, err, &authErr)
}

func TestStoresPopulateAndClearWithSession(t *testing.T) {
	f := setupTestFixture(t)
	f.server.SeedCategory(category.Category{Name: "Dairy", TenantID: testTenantID})
	f.server.SeedItem(item.Item{Name: "Whole Milk", BasePrice: 2.5, TenantID: testTenantID})
	f.server.SeedItem(item.Item{Name: "Foreign", BasePrice: 1, TenantID: otherTenant})

	sess, err := session.New(f.client, &session.MemoryArtifact{})
	require.NoError(t, err)
	t.Cleanup(sess.Close)

	categories, err := category.New(f.client.CategoryAPI(), sess)
	require.NoError(t, err)
	t.Cleanup(categories.Close)

	items, err := item.New(f.client.ItemAPI(), sess)
	require.NoError(t, err)
	t.Cleanup(items.Close)

	require.NoError(t, sess.Login(context.Background(), testEmail, testPassword))

	require.Eventually(t, func() bool {
		return len(categories.Categories()) == 1 && len(items.Items()) == 1
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, "Whole Milk", items.Items()[0].Name)

	sess.Logout()
	require.Empty(t, categories.Categories())
	require.Empty(t, items.Items())
}

func TestItemMultipartRoundTrip(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	promotionEnd := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	draft := item.Draft{
		Name:            utils.Ptr("Whole Milk"),
		CategoryID:      utils.Ptr("cat-dairy"),
		BasePrice:       utils.Ptr(2.5),
		DiscountPercent: utils.Ptr(15.0),
		PromotionEndsAt: &promotionEnd,
		Description:     utils.Ptr("1 litre"),
		StockQuantity:   utils.Ptr(40),
		QuantityTiers: []item.QuantityTier{
			{MinQuantity: 6, UnitPrice: 2.2},
			{MinQuantity: 12, UnitPrice: 2.0},
		},
	}
	image := &upload.Image{Filename: "milk.png", ContentType: "image/png", Data: []byte("png-bytes")}

	created, err := f.client.ItemAPI().Create(context.Background(), testTenantID, draft, image)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, testTenantID, created.TenantID)
	require.Equal(t, "/uploads/milk.png", created.ImageRef)
	require.Equal(t, 2.5, created.BasePrice)
	require.Equal(t, 15.0, utils.Value(created.DiscountPercent))
	require.True(t, promotionEnd.Equal(utils.Value(created.PromotionEndsAt)))
	require.Equal(t, draft.QuantityTiers, created.QuantityTiers)

	// The record read back over the wire matches what creation returned.
	fetched, err := f.client.ItemAPI().Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, created.Name, fetched.Name)
	require.Equal(t, created.QuantityTiers, fetched.QuantityTiers)
}

func TestCategoryCreateAndReparent(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	root, err := f.client.CategoryAPI().Create(context.Background(), testUserID, category.Draft{Name: utils.Ptr("Dairy")}, nil)
	require.NoError(t, err)
	require.True(t, root.IsRoot())

	child, err := f.client.CategoryAPI().Create(context.Background(), testUserID, category.Draft{
		Name:     utils.Ptr("Cheese"),
		ParentID: utils.Ptr(root.ID),
	}, nil)
	require.NoError(t, err)
	require.Equal(t, root.ID, child.ParentID)

	moved, err := f.client.CategoryAPI().Update(context.Background(), child.ID, category.Draft{ParentID: utils.Ptr("")}, nil)
	require.NoError(t, err)
	require.True(t, moved.IsRoot())
}

func TestDeleteForeignCategoryIsPermissionError(t *testing.T) {
	f := setupTestFixture(t)
	foreign := f.server.SeedCategory(category.Category{Name: "Butchery", TenantID: otherTenant})
	f.login(t)

	err := f.client.CategoryAPI().Delete(context.Background(), foreign.ID)
	require.True(t, apierror.IsPermission(err))
}

func TestMissingItemIsNotFound(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	_, err := f.client.ItemAPI().Get(context.Background(), "no-such-item")
	require.True(t, errors.Is(err, apierror.ErrNotFound))
}

func TestCredentialRotation(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	rejected, err := f.client.UpdateCredential(context.Background(), testUserID, "not-the-password", "NewSecret1")
	require.NoError(t, err)
	require.False(t, rejected.Success)
	require.Equal(t, "current password incorrect", rejected.Message)

	change, err := f.client.UpdateCredential(context.Background(), testUserID, testPassword, "NewSecret1")
	require.NoError(t, err)
	require.True(t, change.Success)
	require.NotEmpty(t, change.Token)

	// The rotated token keeps the client authenticated.
	identity, err := f.client.CurrentIdentity(context.Background())
	require.NoError(t, err)
	require.Equal(t, testUserID, identity.ID)

	// The old password no longer logs in; the new one does.
	_, err = f.client.Login(context.Background(), testEmail, testPassword)
	require.Error(t, err)
	_, err = f.client.Login(context.Background(), testEmail, "NewSecret1")
	require.NoError(t, err)
}

func TestRevalidateWithStoredCredential(t *testing.T) {
	f := setupTestFixture(t)
	result := f.login(t)

	// A fresh client primed with the persisted token recovers the session.
	artifact := &session.MemoryArtifact{}
	require.NoError(t, artifact.Store(result.Token))

	fresh, err := restapi.New(f.baseURL)
	require.NoError(t, err)

	sess, err := session.New(fresh, artifact)
	require.NoError(t, err)
	t.Cleanup(sess.Close)

	sess.Revalidate(context.Background())
	require.True(t, sess.Authenticated())
	require.Equal(t, testTenantID, sess.ActiveTenantID())
}

func TestProfileUpdateEnvelope(t *testing.T) {
	f := setupTestFixture(t)
	f.login(t)

	updated, err := f.client.UpdateIdentity(context.Background(), testUserID, session.ProfileUpdate{
		DisplayName: utils.Ptr("Jane D."),
	}, nil)
	require.NoError(t, err)
	require.Equal(t, "Jane D.", updated.DisplayName)

	withImage, err := f.client.UpdateIdentity(context.Background(), testUserID, session.ProfileUpdate{},
		&upload.Image{Filename: "me.jpg", ContentType: "image/jpeg", Data: []byte("jpg-bytes")})
	require.NoError(t, err)
	require.Equal(t, "/uploads/me.jpg", withImage.ProfileImageRef)
}
