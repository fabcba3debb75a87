package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/quartermaster-app/quartermaster/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	CurrentStock(ctx context.Context, productID, storeID int64) (float64, error)
	StoreInventory(ctx context.Context, storeID int64) ([]InventoryRow, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort tracks processed adjustment entries.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service coordinates ledger reads and the adjustment and transfer
// workflows. Purchasing and sales post their movements through Apply
// inside their own transactions.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, idem IdempotencyPort) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idem}
}

// CurrentStock returns the live on-hand quantity for a pair. Pairs
// with no movement history report zero.
func (s *Service) CurrentStock(ctx context.Context, productID, storeID int64) (float64, error) {
	if productID <= 0 {
		return 0, shared.Validationf("product_id", "product is required")
	}
	if storeID <= 0 {
		return 0, shared.Validationf("store_id", "store is required")
	}
	return s.repo.CurrentStock(ctx, productID, storeID)
}

// StoreInventory lists per-product stock for a store, excluding
// products whose net stock is exactly zero.
func (s *Service) StoreInventory(ctx context.Context, storeID int64) ([]InventoryRow, error) {
	if storeID <= 0 {
		return nil, shared.Validationf("store_id", "store is required")
	}
	return s.repo.StoreInventory(ctx, storeID)
}

// Movements lists movement history for a pair.
func (s *Service) Movements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	if filter.ProductID <= 0 || filter.StoreID <= 0 {
		return nil, shared.Validationf("filter", "product and store are required")
	}
	return s.repo.ListMovements(ctx, filter)
}

// AdjustBatch reconciles counted quantities against the ledger. Each
// non-zero delta posts one signed ADJUST movement; entries whose count
// matches are no-ops. The batch is all-or-nothing. Resubmitting an
// entry already processed under the same reference and counted
// quantity reports a zero delta instead of posting again; a corrected
// recount under the same reference carries a new counted quantity and
// goes through.
func (s *Service) AdjustBatch(ctx context.Context, entries []AdjustmentEntry) ([]AdjustmentResult, error) {
	if len(entries) == 0 {
		return nil, shared.Validationf("adjustments", "at least one entry required")
	}
	for _, entry := range entries {
		if entry.ProductID <= 0 || entry.StoreID <= 0 {
			return nil, shared.Validationf("adjustments", "product and store are required")
		}
		if entry.CountedQty < 0 {
			return nil, shared.Validationf("counted_qty", "counted quantity cannot be negative")
		}
		if entry.InventoryReference == "" {
			return nil, shared.Validationf("inventory_reference", "inventory reference is required")
		}
	}

	var insertedKeys []string
	duplicates := make([]bool, len(entries))
	if s.idempotency != nil {
		for i, entry := range entries {
			scope := uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("ADJ:%s:%d:%d:%g", entry.InventoryReference, entry.ProductID, entry.StoreID, entry.CountedQty)))
			key := fmt.Sprintf("ledger.adjust:%s", scope)
			err := s.idempotency.CheckAndInsert(ctx, key, "ledger.adjust")
			switch {
			case err == nil:
				insertedKeys = append(insertedKeys, key)
			case errors.Is(err, shared.ErrIdempotencyConflict):
				duplicates[i] = true
			default:
				s.releaseKeys(ctx, insertedKeys)
				return nil, err
			}
		}
	}

	results := make([]AdjustmentResult, 0, len(entries))
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		results = results[:0]
		for i, entry := range entries {
			balance, err := tx.GetBalanceForUpdate(ctx, entry.ProductID, entry.StoreID)
			if err != nil && !errors.Is(err, ErrBalanceNotFound) {
				return err
			}
			if duplicates[i] {
				results = append(results, AdjustmentResult{ProductID: entry.ProductID, StoreID: entry.StoreID, Delta: 0, NewQty: balance.Qty})
				continue
			}
			delta := entry.CountedQty - balance.Qty
			if math.Abs(delta) < qtyEpsilon {
				results = append(results, AdjustmentResult{ProductID: entry.ProductID, StoreID: entry.StoreID, Delta: 0, NewQty: balance.Qty})
				continue
			}
			applied, err := Apply(ctx, tx, MovementInput{
				ProductID: entry.ProductID,
				StoreID:   entry.StoreID,
				Type:      MovementAdjust,
				Quantity:  delta,
				Reference: entry.InventoryReference,
			})
			if err != nil {
				return err
			}
			results = append(results, AdjustmentResult{ProductID: entry.ProductID, StoreID: entry.StoreID, Delta: delta, NewQty: applied.Qty})
		}
		return nil
	})
	if err != nil {
		s.releaseKeys(ctx, insertedKeys)
		return nil, err
	}
	s.recordAudit(ctx, "LEDGER_ADJUST", fmt.Sprintf("batch:%d", len(entries)), map[string]any{"entries": len(entries)})
	return results, nil
}

// TransferBatch moves stock between stores. Each entry posts a
// TRANSFER_OUT at the source and a TRANSFER_IN at the destination with
// one shared reference; the pair is never split. Any failing entry
// aborts the whole batch.
func (s *Service) TransferBatch(ctx context.Context, entries []TransferEntry) ([]TransferResult, error) {
	if len(entries) == 0 {
		return nil, shared.Validationf("transfers", "at least one entry required")
	}
	for _, entry := range entries {
		if entry.ProductID <= 0 || entry.FromStoreID <= 0 || entry.ToStoreID <= 0 {
			return nil, shared.Validationf("transfers", "product, source and destination stores are required")
		}
		if entry.FromStoreID == entry.ToStoreID {
			return nil, shared.Validationf("transfers", "source and destination store must differ")
		}
		if entry.Quantity <= 0 {
			return nil, shared.Validationf("quantity", "quantity must be positive")
		}
	}

	results := make([]TransferResult, 0, len(entries))
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		results = results[:0]
		for _, entry := range entries {
			reference := fmt.Sprintf("TRANS-%d", time.Now().UnixNano())
			if _, err := Apply(ctx, tx, MovementInput{
				ProductID: entry.ProductID,
				StoreID:   entry.FromStoreID,
				Type:      MovementTransferOut,
				Quantity:  entry.Quantity,
				Reference: reference,
			}); err != nil {
				return err
			}
			if _, err := Apply(ctx, tx, MovementInput{
				ProductID: entry.ProductID,
				StoreID:   entry.ToStoreID,
				Type:      MovementTransferIn,
				Quantity:  entry.Quantity,
				Reference: reference,
			}); err != nil {
				return err
			}
			results = append(results, TransferResult{
				ProductID:   entry.ProductID,
				FromStoreID: entry.FromStoreID,
				ToStoreID:   entry.ToStoreID,
				Quantity:    entry.Quantity,
				Reference:   reference,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "LEDGER_TRANSFER", fmt.Sprintf("batch:%d", len(entries)), map[string]any{"entries": len(entries)})
	return results, nil
}

func (s *Service) releaseKeys(ctx context.Context, keys []string) {
	for _, key := range keys {
		_ = s.idempotency.Delete(ctx, key)
	}
}

func (s *Service) recordAudit(ctx context.Context, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "stock_ledger", EntityID: entityID, Meta: meta})
}
