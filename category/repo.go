package category

import (
	"context"

	"github.com/jrsteele09/go-market-console/upload"
)

// API is the slice of the remote category endpoint the store depends on.
// Implemented by restapi.CategoryAPI; faked in apifakes for tests.
type API interface {
	List(ctx context.Context, tenantID string) ([]Category, error)
	Create(ctx context.Context, userID string, draft Draft, image *upload.Image) (*Category, error)
	Update(ctx context.Context, id string, draft Draft, image *upload.Image) (*Category, error)
	Delete(ctx context.Context, id string) error
}
