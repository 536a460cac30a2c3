package apifakes

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jrsteele09/go-market-console/apierror"
	"github.com/jrsteele09/go-market-console/item"
	"github.com/jrsteele09/go-market-console/upload"
)

var _ item.API = (*FakeItemAPI)(nil)

// FakeItemAPI is an in-memory item.API for unit tests. Function fields
// intercept individual calls; unset fields operate on the in-memory
// collection.
type FakeItemAPI struct {
	ListFn           func(ctx context.Context, tenantID string) ([]item.Item, error)
	GetFn            func(ctx context.Context, id string) (*item.Item, error)
	ListByCategoryFn func(ctx context.Context, categoryID string) ([]item.Item, error)
	CreateFn         func(ctx context.Context, tenantID string, draft item.Draft, image *upload.Image) (*item.Item, error)
	UpdateFn         func(ctx context.Context, id string, draft item.Draft, image *upload.Image) (*item.Item, error)
	DeleteFn         func(ctx context.Context, id string) error

	lock      sync.Mutex
	items     map[string]item.Item
	listCalls int
}

func NewFakeItemAPI() *FakeItemAPI {
	return &FakeItemAPI{items: make(map[string]item.Item)}
}

// Seed inserts items directly into the fake's collection.
func (f *FakeItemAPI) Seed(items ...item.Item) {
	f.lock.Lock()
	defer f.lock.Unlock()
	for _, it := range items {
		if it.ID == "" {
			it.ID = uuid.New().String()
		}
		f.items[it.ID] = it
	}
}

func (f *FakeItemAPI) List(ctx context.Context, tenantID string) ([]item.Item, error) {
	f.lock.Lock()
	f.listCalls++
	f.lock.Unlock()
	if f.ListFn != nil {
		return f.ListFn(ctx, tenantID)
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	list := make([]item.Item, 0, len(f.items))
	for _, it := range f.items {
		if it.TenantID == "" || it.TenantID == tenantID {
			list = append(list, it)
		}
	}
	return list, nil
}

// ListCalls reports how many times List was invoked.
func (f *FakeItemAPI) ListCalls() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.listCalls
}

func (f *FakeItemAPI) Get(ctx context.Context, id string) (*item.Item, error) {
	if f.GetFn != nil {
		return f.GetFn(ctx, id)
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	it, ok := f.items[id]
	if !ok {
		return nil, apierror.ErrNotFound
	}
	return &it, nil
}

func (f *FakeItemAPI) ListByCategory(ctx context.Context, categoryID string) ([]item.Item, error) {
	if f.ListByCategoryFn != nil {
		return f.ListByCategoryFn(ctx, categoryID)
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	list := make([]item.Item, 0)
	for _, it := range f.items {
		if it.CategoryID == categoryID {
			list = append(list, it)
		}
	}
	return list, nil
}

func (f *FakeItemAPI) Create(ctx context.Context, tenantID string, draft item.Draft, image *upload.Image) (*item.Item, error) {
	if f.CreateFn != nil {
		return f.CreateFn(ctx, tenantID, draft, image)
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	it := item.Item{ID: uuid.New().String(), TenantID: tenantID}
	applyDraft(&it, draft)
	f.items[it.ID] = it
	return &it, nil
}

func (f *FakeItemAPI) Update(ctx context.Context, id string, draft item.Draft, image *upload.Image) (*item.Item, error) {
	if f.UpdateFn != nil {
		return f.UpdateFn(ctx, id, draft, image)
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	it, ok := f.items[id]
	if !ok {
		return nil, apierror.ErrNotFound
	}
	applyDraft(&it, draft)
	f.items[id] = it
	return &it, nil
}

func (f *FakeItemAPI) Delete(ctx context.Context, id string) error {
	if f.DeleteFn != nil {
		return f.DeleteFn(ctx, id)
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	delete(f.items, id)
	return nil
}

func applyDraft(it *item.Item, draft item.Draft) {
	if draft.Name != nil {
		it.Name = *draft.Name
	}
	if draft.CategoryID != nil {
		it.CategoryID = *draft.CategoryID
	}
	if draft.BasePrice != nil {
		it.BasePrice = *draft.BasePrice
	}
	if draft.DiscountPercent != nil {
		it.DiscountPercent = draft.DiscountPercent
	}
	if draft.PromotionEndsAt != nil {
		it.PromotionEndsAt = draft.PromotionEndsAt
	}
	if draft.Description != nil {
		it.Description = *draft.Description
	}
	if draft.Weight != nil {
		it.Weight = *draft.Weight
	}
	if draft.Unit != nil {
		it.Unit = *draft.Unit
	}
	if draft.StockQuantity != nil {
		it.StockQuantity = *draft.StockQuantity
	}
	if draft.QuantityTiers != nil {
		it.QuantityTiers = draft.QuantityTiers
	}
}
