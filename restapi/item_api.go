package restapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-market-console/item"
	"github.com/jrsteele09/go-market-console/upload"
)

const itemImageField = "imageUrl"

// ItemAPI is the item-endpoint view of a Client.
type ItemAPI struct {
	c *Client
}

var _ item.API = (*ItemAPI)(nil)

// ItemAPI returns the client's item.API implementation.
func (c *Client) ItemAPI() *ItemAPI {
	return &ItemAPI{c: c}
}

// List fetches every item of a tenant.
func (a *ItemAPI) List(ctx context.Context, tenantID string) ([]item.Item, error) {
	var list []item.Item
	if err := a.c.getJSON(ctx, fmt.Sprintf("/supermarket/%s/items", tenantID), &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Get fetches a single item by id.
func (a *ItemAPI) Get(ctx context.Context, id string) (*item.Item, error) {
	var it item.Item
	if err := a.c.getJSON(ctx, fmt.Sprintf("/item/%s", id), &it); err != nil {
		return nil, err
	}
	return &it, nil
}

// ListByCategory fetches the items belonging to one category.
func (a *ItemAPI) ListByCategory(ctx context.Context, categoryID string) ([]item.Item, error) {
	var list []item.Item
	if err := a.c.getJSON(ctx, fmt.Sprintf("/category/%s/items", categoryID), &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Create posts a multipart item creation request. Every provided draft
// field travels as a string form field; the quantity tiers as one JSON
// field the service parses back.
func (a *ItemAPI) Create(ctx context.Context, tenantID string, draft item.Draft, image *upload.Image) (*item.Item, error) {
	fields, err := draft.Fields()
	if err != nil {
		return nil, err
	}
	var created item.Item
	path := fmt.Sprintf("/item/%s", tenantID)
	if err := a.c.doMultipart(ctx, http.MethodPost, path, fields, itemImageField, image, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Update patches an item with a multipart payload.
func (a *ItemAPI) Update(ctx context.Context, id string, draft item.Draft, image *upload.Image) (*item.Item, error) {
	fields, err := draft.Fields()
	if err != nil {
		return nil, err
	}
	var updated item.Item
	path := fmt.Sprintf("/item/%s", id)
	if err := a.c.doMultipart(ctx, http.MethodPatch, path, fields, itemImageField, image, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes an item.
func (a *ItemAPI) Delete(ctx context.Context, id string) error {
	return a.c.do(ctx, http.MethodDelete, fmt.Sprintf("/item/%s", id), "", nil, nil)
}
