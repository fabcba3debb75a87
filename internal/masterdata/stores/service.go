package stores

import (
	"context"
	"strings"

	"github.com/quartermaster-app/quartermaster/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	Insert(ctx context.Context, input Input, canonical string) (Store, error)
	Update(ctx context.Context, id int64, input Input, canonical string) (Store, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (Store, error)
	List(ctx context.Context, limit int) ([]Store, error)
}

// ReferenceChecker reports whether order history references a store.
// Purchasing and sales repositories both implement it.
type ReferenceChecker interface {
	StoreReferenced(ctx context.Context, storeID int64) (bool, error)
}

// Service manages stock locations.
type Service struct {
	repo     RepositoryPort
	checkers []ReferenceChecker
}

// NewService constructs stores service. Checkers guard deletion: a
// store referenced by any of them cannot be removed.
func NewService(repo RepositoryPort, checkers ...ReferenceChecker) *Service {
	return &Service{repo: repo, checkers: checkers}
}

func normalizeInput(input Input) (Input, string, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return Input{}, "", shared.Validationf("name", "store name is required")
	}
	if input.Zones == nil {
		input.Zones = []string{}
	}
	zones := make([]string, 0, len(input.Zones))
	for _, zone := range input.Zones {
		zone = strings.TrimSpace(zone)
		if zone == "" {
			return Input{}, "", shared.Validationf("zones", "zone labels cannot be blank")
		}
		zones = append(zones, zone)
	}
	input.Zones = zones
	return input, shared.CanonicalName(input.Name), nil
}

// Create adds a store with a generated ST-NNN code.
func (s *Service) Create(ctx context.Context, input Input) (Store, error) {
	input, canonical, err := normalizeInput(input)
	if err != nil {
		return Store{}, err
	}
	return s.repo.Insert(ctx, input, canonical)
}

// Update rewrites name and zones.
func (s *Service) Update(ctx context.Context, id int64, input Input) (Store, error) {
	if id <= 0 {
		return Store{}, shared.Validationf("id", "store id is required")
	}
	input, canonical, err := normalizeInput(input)
	if err != nil {
		return Store{}, err
	}
	return s.repo.Update(ctx, id, input, canonical)
}

// Delete removes a store unless order history references it.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.Validationf("id", "store id is required")
	}
	for _, checker := range s.checkers {
		referenced, err := checker.StoreReferenced(ctx, id)
		if err != nil {
			return err
		}
		if referenced {
			return &shared.ConflictError{Resource: "store", Message: "store is referenced by order history"}
		}
	}
	return s.repo.Delete(ctx, id)
}

// Get loads one store.
func (s *Service) Get(ctx context.Context, id int64) (Store, error) {
	if id <= 0 {
		return Store{}, shared.Validationf("id", "store id is required")
	}
	return s.repo.Get(ctx, id)
}

// List returns all stores.
func (s *Service) List(ctx context.Context, limit int) ([]Store, error) {
	return s.repo.List(ctx, limit)
}
