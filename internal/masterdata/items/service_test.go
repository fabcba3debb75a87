package items

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quartermaster-app/quartermaster/internal/shared"
)

type fakeRepo struct {
	items  map[int64]Item
	canon  map[int64]string
	nextID int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{items: make(map[int64]Item), canon: make(map[int64]string)}
}

func (r *fakeRepo) conflicts(canonical, category string, excludeID int64) bool {
	for id, item := range r.items {
		if id == excludeID || item.DeletedAt != nil {
			continue
		}
		if r.canon[id] == canonical && item.Category == category {
			return true
		}
	}
	return false
}

func (r *fakeRepo) Insert(ctx context.Context, input Input, canonical string) (Item, error) {
	if r.conflicts(canonical, input.Category, 0) {
		return Item{}, &shared.ConflictError{Resource: "item", Message: "an item with this name already exists in the category"}
	}
	r.nextID++
	item := Item{
		ID:            r.nextID,
		Name:          input.Name,
		Category:      input.Category,
		PurchasePrice: input.PurchasePrice,
		SalePrice:     input.SalePrice,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	r.items[item.ID] = item
	r.canon[item.ID] = canonical
	return item, nil
}

func (r *fakeRepo) Update(ctx context.Context, id int64, input Input, canonical string) (Item, error) {
	item, ok := r.items[id]
	if !ok || item.DeletedAt != nil {
		return Item{}, &shared.NotFoundError{Entity: "item", ID: id}
	}
	if r.conflicts(canonical, input.Category, id) {
		return Item{}, &shared.ConflictError{Resource: "item", Message: "an item with this name already exists in the category"}
	}
	item.Name = input.Name
	item.Category = input.Category
	item.PurchasePrice = input.PurchasePrice
	item.SalePrice = input.SalePrice
	item.UpdatedAt = time.Now()
	r.items[id] = item
	r.canon[id] = canonical
	return item, nil
}

func (r *fakeRepo) SoftDelete(ctx context.Context, id int64) error {
	item, ok := r.items[id]
	if !ok || item.DeletedAt != nil {
		return &shared.NotFoundError{Entity: "item", ID: id}
	}
	now := time.Now()
	item.DeletedAt = &now
	r.items[id] = item
	return nil
}

func (r *fakeRepo) Get(ctx context.Context, id int64) (Item, error) {
	item, ok := r.items[id]
	if !ok || item.DeletedAt != nil {
		return Item{}, &shared.NotFoundError{Entity: "item", ID: id}
	}
	return item, nil
}

func (r *fakeRepo) List(ctx context.Context, limit int) ([]Item, error) {
	result := []Item{}
	for _, item := range r.items {
		if item.DeletedAt == nil {
			result = append(result, item)
		}
	}
	return result, nil
}

func TestCreateItemCanonicalConflict(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, Input{Name: "Cafe Touba", Category: "drinks", PurchasePrice: 2})
	require.NoError(t, err)

	// Same name modulo case and spacing collides.
	_, err = svc.Create(ctx, Input{Name: "  CAFE   touba ", Category: "drinks"})
	var conflict *shared.ConflictError
	require.ErrorAs(t, err, &conflict)

	// Same name in another category is fine.
	_, err = svc.Create(ctx, Input{Name: "Cafe Touba", Category: "beans"})
	require.NoError(t, err)
}

func TestCreateItemValidation(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	var vErr *shared.ValidationError

	_, err := svc.Create(ctx, Input{Name: "   "})
	require.ErrorAs(t, err, &vErr)

	_, err = svc.Create(ctx, Input{Name: "Sugar", PurchasePrice: -1})
	require.ErrorAs(t, err, &vErr)

	bad := -2.0
	_, err = svc.Create(ctx, Input{Name: "Sugar", SalePrice: &bad})
	require.ErrorAs(t, err, &vErr)
}

func TestDeleteItemFreesName(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	item, err := svc.Create(ctx, Input{Name: "Cafe Touba", Category: "drinks"})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, item.ID))

	_, err = svc.Get(ctx, item.ID)
	require.True(t, errors.Is(err, shared.ErrNotFound))

	// The canonical name is free again after deletion.
	_, err = svc.Create(ctx, Input{Name: "Cafe Touba", Category: "drinks"})
	require.NoError(t, err)
}

func TestUpdateItem(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	item, err := svc.Create(ctx, Input{Name: "Cafe Touba", Category: "drinks", PurchasePrice: 2})
	require.NoError(t, err)
	other, err := svc.Create(ctx, Input{Name: "Bissap", Category: "drinks"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, item.ID, Input{Name: "Cafe Touba Premium", Category: "drinks", PurchasePrice: 3})
	require.NoError(t, err)
	require.Equal(t, "Cafe Touba Premium", updated.Name)
	require.InDelta(t, 3, updated.PurchasePrice, 1e-9)

	// Renaming onto another live item collides.
	_, err = svc.Update(ctx, other.ID, Input{Name: "cafe touba premium", Category: "drinks"})
	var conflict *shared.ConflictError
	require.ErrorAs(t, err, &conflict)

	_, err = svc.Update(ctx, 4242, Input{Name: "Ghost"})
	require.True(t, errors.Is(err, shared.ErrNotFound))
}
