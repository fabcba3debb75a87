package stores

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quartermaster-app/quartermaster/internal/shared"
)

type fakeRepo struct {
	stores map[int64]Store
	canon  map[int64]string
	nextID int64
	seq    int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{stores: make(map[int64]Store), canon: make(map[int64]string)}
}

func (r *fakeRepo) conflicts(canonical string, excludeID int64) bool {
	for id := range r.stores {
		if id != excludeID && r.canon[id] == canonical {
			return true
		}
	}
	return false
}

func (r *fakeRepo) Insert(ctx context.Context, input Input, canonical string) (Store, error) {
	if r.conflicts(canonical, 0) {
		return Store{}, &shared.ConflictError{Resource: "store", Message: "a store with this name already exists"}
	}
	r.nextID++
	r.seq++
	s := Store{
		ID:        r.nextID,
		Code:      fmt.Sprintf("ST-%03d", r.seq),
		Name:      input.Name,
		Zones:     input.Zones,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	r.stores[s.ID] = s
	r.canon[s.ID] = canonical
	return s, nil
}

func (r *fakeRepo) Update(ctx context.Context, id int64, input Input, canonical string) (Store, error) {
	s, ok := r.stores[id]
	if !ok {
		return Store{}, &shared.NotFoundError{Entity: "store", ID: id}
	}
	if r.conflicts(canonical, id) {
		return Store{}, &shared.ConflictError{Resource: "store", Message: "a store with this name already exists"}
	}
	s.Name = input.Name
	s.Zones = input.Zones
	s.UpdatedAt = time.Now()
	r.stores[id] = s
	r.canon[id] = canonical
	return s, nil
}

func (r *fakeRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.stores[id]; !ok {
		return &shared.NotFoundError{Entity: "store", ID: id}
	}
	delete(r.stores, id)
	delete(r.canon, id)
	return nil
}

func (r *fakeRepo) Get(ctx context.Context, id int64) (Store, error) {
	s, ok := r.stores[id]
	if !ok {
		return Store{}, &shared.NotFoundError{Entity: "store", ID: id}
	}
	return s, nil
}

func (r *fakeRepo) List(ctx context.Context, limit int) ([]Store, error) {
	result := []Store{}
	for _, s := range r.stores {
		result = append(result, s)
	}
	return result, nil
}

type fakeChecker struct {
	referenced map[int64]bool
}

func (c *fakeChecker) StoreReferenced(ctx context.Context, storeID int64) (bool, error) {
	return c.referenced[storeID], nil
}

func TestCreateStoreGeneratesCodes(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	first, err := svc.Create(ctx, Input{Name: "Main Warehouse", Zones: []string{"A", "B"}})
	require.NoError(t, err)
	require.Equal(t, "ST-001", first.Code)

	second, err := svc.Create(ctx, Input{Name: "Annex"})
	require.NoError(t, err)
	require.Equal(t, "ST-002", second.Code)
	require.Empty(t, second.Zones)
}

func TestCreateStoreCanonicalConflict(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, Input{Name: "Main Warehouse"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, Input{Name: "  main   WAREHOUSE "})
	var conflict *shared.ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestStoreValidation(t *testing.T) {
	svc := NewService(newFakeRepo())
	ctx := context.Background()

	var vErr *shared.ValidationError

	_, err := svc.Create(ctx, Input{Name: "  "})
	require.ErrorAs(t, err, &vErr)

	_, err = svc.Create(ctx, Input{Name: "Annex", Zones: []string{"A", "  "}})
	require.ErrorAs(t, err, &vErr)
}

func TestDeleteStoreGuardedByReferences(t *testing.T) {
	repo := newFakeRepo()
	checker := &fakeChecker{referenced: map[int64]bool{}}
	svc := NewService(repo, checker)
	ctx := context.Background()

	store, err := svc.Create(ctx, Input{Name: "Main Warehouse"})
	require.NoError(t, err)

	checker.referenced[store.ID] = true
	err = svc.Delete(ctx, store.ID)
	var conflict *shared.ConflictError
	require.ErrorAs(t, err, &conflict)

	checker.referenced[store.ID] = false
	require.NoError(t, svc.Delete(ctx, store.ID))
	_, err = svc.Get(ctx, store.ID)
	require.True(t, errors.Is(err, shared.ErrNotFound))
}
