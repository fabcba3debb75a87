package items

import (
	"context"
	"strings"

	"github.com/quartermaster-app/quartermaster/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	Insert(ctx context.Context, input Input, canonical string) (Item, error)
	Update(ctx context.Context, id int64, input Input, canonical string) (Item, error)
	SoftDelete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (Item, error)
	List(ctx context.Context, limit int) ([]Item, error)
}

// Service manages the item catalogue.
type Service struct {
	repo RepositoryPort
}

// NewService constructs items service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func normalizeInput(input Input) (Input, string, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Category = strings.TrimSpace(input.Category)
	if input.Name == "" {
		return Input{}, "", shared.Validationf("name", "item name is required")
	}
	if input.PurchasePrice < 0 {
		return Input{}, "", shared.Validationf("purchase_price", "purchase price cannot be negative")
	}
	if input.SalePrice != nil && *input.SalePrice < 0 {
		return Input{}, "", shared.Validationf("sale_price", "sale price cannot be negative")
	}
	return input, shared.CanonicalName(input.Name), nil
}

// Create adds a catalogue item. Names are unique per category in
// their canonical form, so "Cafe  Touba" and "cafe touba" collide.
func (s *Service) Create(ctx context.Context, input Input) (Item, error) {
	input, canonical, err := normalizeInput(input)
	if err != nil {
		return Item{}, err
	}
	return s.repo.Insert(ctx, input, canonical)
}

// Update rewrites an item.
func (s *Service) Update(ctx context.Context, id int64, input Input) (Item, error) {
	if id <= 0 {
		return Item{}, shared.Validationf("id", "item id is required")
	}
	input, canonical, err := normalizeInput(input)
	if err != nil {
		return Item{}, err
	}
	return s.repo.Update(ctx, id, input, canonical)
}

// Delete soft-deletes the item. Movement history keeps referencing
// the row, so deletion never breaks the ledger.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.Validationf("id", "item id is required")
	}
	return s.repo.SoftDelete(ctx, id)
}

// Get loads one item.
func (s *Service) Get(ctx context.Context, id int64) (Item, error) {
	if id <= 0 {
		return Item{}, shared.Validationf("id", "item id is required")
	}
	return s.repo.Get(ctx, id)
}

// List returns the live catalogue.
func (s *Service) List(ctx context.Context, limit int) ([]Item, error) {
	return s.repo.List(ctx, limit)
}
