package restapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-market-console/category"
	"github.com/jrsteele09/go-market-console/upload"
)

const categoryImageField = "image"

// CategoryAPI is the category-endpoint view of a Client.
type CategoryAPI struct {
	c *Client
}

var _ category.API = (*CategoryAPI)(nil)

// CategoryAPI returns the client's category.API implementation.
func (c *Client) CategoryAPI() *CategoryAPI {
	return &CategoryAPI{c: c}
}

// List fetches every category of a tenant.
func (a *CategoryAPI) List(ctx context.Context, tenantID string) ([]category.Category, error) {
	var list []category.Category
	if err := a.c.getJSON(ctx, fmt.Sprintf("/supermarket/%s/categories", tenantID), &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Create posts a multipart category creation request on behalf of a user.
func (a *CategoryAPI) Create(ctx context.Context, userID string, draft category.Draft, image *upload.Image) (*category.Category, error) {
	var created category.Category
	path := fmt.Sprintf("/category/%s", userID)
	if err := a.c.doMultipart(ctx, http.MethodPost, path, draft.Fields(), categoryImageField, image, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Update patches a category with a multipart payload.
func (a *CategoryAPI) Update(ctx context.Context, id string, draft category.Draft, image *upload.Image) (*category.Category, error) {
	var updated category.Category
	path := fmt.Sprintf("/category/%s", id)
	if err := a.c.doMultipart(ctx, http.MethodPatch, path, draft.Fields(), categoryImageField, image, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a category. A 403 surfaces as a PermissionError.
func (a *CategoryAPI) Delete(ctx context.Context, id string) error {
	return a.c.do(ctx, http.MethodDelete, fmt.Sprintf("/category/%s", id), "", nil, nil)
}
