package apifakes

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jrsteele09/go-market-console/apierror"
	"github.com/jrsteele09/go-market-console/category"
	"github.com/jrsteele09/go-market-console/upload"
)

var _ category.API = (*FakeCategoryAPI)(nil)

// FakeCategoryAPI is an in-memory category.API for unit tests. Each call
// can be intercepted via the function fields; unset fields operate on the
// in-memory collection.
type FakeCategoryAPI struct {
	ListFn   func(ctx context.Context, tenantID string) ([]category.Category, error)
	CreateFn func(ctx context.Context, userID string, draft category.Draft, image *upload.Image) (*category.Category, error)
	UpdateFn func(ctx context.Context, id string, draft category.Draft, image *upload.Image) (*category.Category, error)
	DeleteFn func(ctx context.Context, id string) error

	lock       sync.Mutex
	categories map[string]category.Category
	listCalls  int
}

func NewFakeCategoryAPI() *FakeCategoryAPI {
	return &FakeCategoryAPI{categories: make(map[string]category.Category)}
}

// Seed inserts categories directly into the fake's collection.
func (f *FakeCategoryAPI) Seed(categories ...category.Category) {
	f.lock.Lock()
	defer f.lock.Unlock()
	for _, c := range categories {
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		f.categories[c.ID] = c
	}
}

func (f *FakeCategoryAPI) List(ctx context.Context, tenantID string) ([]category.Category, error) {
	f.lock.Lock()
	f.listCalls++
	f.lock.Unlock()
	if f.ListFn != nil {
		return f.ListFn(ctx, tenantID)
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	list := make([]category.Category, 0, len(f.categories))
	for _, c := range f.categories {
		if c.TenantID == "" || c.TenantID == tenantID {
			list = append(list, c)
		}
	}
	return list, nil
}

func (f *FakeCategoryAPI) Create(ctx context.Context, userID string, draft category.Draft, image *upload.Image) (*category.Category, error) {
	if f.CreateFn != nil {
		return f.CreateFn(ctx, userID, draft, image)
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	c := category.Category{ID: uuid.New().String()}
	if draft.Name != nil {
		c.Name = *draft.Name
	}
	if draft.ParentID != nil {
		c.ParentID = *draft.ParentID
	}
	f.categories[c.ID] = c
	return &c, nil
}

func (f *FakeCategoryAPI) Update(ctx context.Context, id string, draft category.Draft, image *upload.Image) (*category.Category, error) {
	if f.UpdateFn != nil {
		return f.UpdateFn(ctx, id, draft, image)
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	c, ok := f.categories[id]
	if !ok {
		return nil, apierror.ErrNotFound
	}
	if draft.Name != nil {
		c.Name = *draft.Name
	}
	if draft.ParentID != nil {
		c.ParentID = *draft.ParentID
	}
	f.categories[id] = c
	return &c, nil
}

func (f *FakeCategoryAPI) Delete(ctx context.Context, id string) error {
	if f.DeleteFn != nil {
		return f.DeleteFn(ctx, id)
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	delete(f.categories, id)
	return nil
}

// ListCalls reports how many times List was invoked.
func (f *FakeCategoryAPI) ListCalls() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.listCalls
}
