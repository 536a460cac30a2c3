package item

import (
	"context"

	"github.com/jrsteele09/go-market-console/upload"
)

// API is the slice of the remote item endpoint the store depends on.
// Implemented by restapi.ItemAPI; faked in apifakes for tests.
type API interface {
	List(ctx context.Context, tenantID string) ([]Item, error)
	Get(ctx context.Context, id string) (*Item, error)
	ListByCategory(ctx context.Context, categoryID string) ([]Item, error)
	Create(ctx context.Context, tenantID string, draft Draft, image *upload.Image) (*Item, error)
	Update(ctx context.Context, id string, draft Draft, image *upload.Image) (*Item, error)
	Delete(ctx context.Context, id string) error
}
