package purchasing

import (
	"context"
	"fmt"
	"strings"

	"github.com/quartermaster-app/quartermaster/internal/ledger"
	"github.com/quartermaster-app/quartermaster/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetPurchase(ctx context.Context, id int64) (Purchase, []PurchaseItem, error)
	ListPurchases(ctx context.Context, limit int) ([]Purchase, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates purchase orders and receiving.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService constructs purchasing service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// CreatePurchase persists an order with its lines, all-or-nothing.
// TotalAmount snapshots the ordered value at creation time.
func (s *Service) CreatePurchase(ctx context.Context, input CreateInput) (Purchase, []PurchaseItem, error) {
	supplier := strings.TrimSpace(input.SupplierName)
	if supplier == "" {
		return Purchase{}, nil, shared.Validationf("supplier_name", "supplier name is required")
	}
	if len(input.Lines) == 0 {
		return Purchase{}, nil, shared.Validationf("lines", "at least one line required")
	}
	var total float64
	for _, line := range input.Lines {
		if line.ProductID <= 0 || line.StoreID <= 0 {
			return Purchase{}, nil, shared.Validationf("lines", "product and store are required")
		}
		if line.Quantity <= 0 {
			return Purchase{}, nil, shared.Validationf("quantity", "quantity must be positive")
		}
		if line.UnitPrice < 0 {
			return Purchase{}, nil, shared.Validationf("unit_price", "unit price cannot be negative")
		}
		total += line.Quantity * line.UnitPrice
	}

	purchase := Purchase{
		SupplierName: supplier,
		TotalAmount:  total,
		Status:       StatusPending,
		BCNumber:     input.BCNumber,
		ReceiptURL:   input.ReceiptURL,
	}
	var items []PurchaseItem
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertPurchase(ctx, purchase)
		if err != nil {
			return err
		}
		purchase.ID = id
		items = make([]PurchaseItem, 0, len(input.Lines))
		for _, line := range input.Lines {
			item := PurchaseItem{
				PurchaseID: id,
				ProductID:  line.ProductID,
				StoreID:    line.StoreID,
				Quantity:   line.Quantity,
				UnitPrice:  line.UnitPrice,
			}
			itemID, err := tx.InsertPurchaseItem(ctx, item)
			if err != nil {
				return err
			}
			item.ID = itemID
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		return Purchase{}, nil, err
	}
	s.recordAudit(ctx, "PURCHASE_CREATE", purchase.ID, map[string]any{"supplier": supplier, "total": total, "lines": len(items)})
	return purchase, items, nil
}

// ReceiveItems applies a batch of receipts against one order. Each
// receipt bumps its line's received quantity and posts an IN movement
// to the ledger in the same transaction. The batch is all-or-nothing:
// an unknown line or an over-receipt rolls everything back. The order
// status is re-derived after the batch.
func (s *Service) ReceiveItems(ctx context.Context, purchaseID int64, receipts []Receipt) (Status, error) {
	if len(receipts) == 0 {
		return "", shared.Validationf("receipts", "at least one receipt required")
	}
	for _, receipt := range receipts {
		if receipt.QuantityReceived <= 0 {
			return "", shared.Validationf("quantity_received", "received quantity must be positive")
		}
	}

	var status Status
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetPurchaseForUpdate(ctx, purchaseID); err != nil {
			return err
		}
		lines, err := tx.GetItemsForUpdate(ctx, purchaseID)
		if err != nil {
			return err
		}
		byID := make(map[int64]*PurchaseItem, len(lines))
		for i := range lines {
			byID[lines[i].ID] = &lines[i]
		}

		reference := fmt.Sprintf("RECEPTION-PURCHASE-%d", purchaseID)
		for _, receipt := range receipts {
			line, ok := byID[receipt.PurchaseItemID]
			if !ok {
				return &shared.NotFoundError{Entity: "purchase item", ID: receipt.PurchaseItemID}
			}
			if line.ReceivedQuantity+receipt.QuantityReceived > line.Quantity+receiptEpsilon {
				return &shared.OverReceiptError{
					PurchaseItemID: line.ID,
					Ordered:        line.Quantity,
					Received:       line.ReceivedQuantity,
					Requested:      receipt.QuantityReceived,
				}
			}
			line.ReceivedQuantity += receipt.QuantityReceived
			if err := tx.AddReceivedQuantity(ctx, line.ID, receipt.QuantityReceived); err != nil {
				return err
			}
			if _, err := ledger.Apply(ctx, tx.Ledger(), ledger.MovementInput{
				ProductID: line.ProductID,
				StoreID:   line.StoreID,
				Type:      ledger.MovementIn,
				Quantity:  receipt.QuantityReceived,
				Reference: reference,
			}); err != nil {
				return err
			}
		}

		status = DeriveStatus(lines)
		return tx.UpdateStatus(ctx, purchaseID, status)
	})
	if err != nil {
		return "", err
	}
	s.recordAudit(ctx, "PURCHASE_RECEIVE", purchaseID, map[string]any{"receipts": len(receipts), "status": string(status)})
	return status, nil
}

// OverrideStatus sets the status field directly, bypassing derivation.
// Administrative escape hatch: the value is not validated against
// received quantities and later receipts will overwrite it.
func (s *Service) OverrideStatus(ctx context.Context, purchaseID int64, status string) error {
	if strings.TrimSpace(status) == "" {
		return shared.Validationf("status", "status is required")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetPurchaseForUpdate(ctx, purchaseID); err != nil {
			return err
		}
		return tx.UpdateStatus(ctx, purchaseID, Status(status))
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, "PURCHASE_STATUS_OVERRIDE", purchaseID, map[string]any{"status": status})
	return nil
}

// DeletePurchase removes the order and its lines. Stock movements
// already posted by receiving are left in place: the ledger is
// append-only history and deleting an order never rewrites stock.
func (s *Service) DeletePurchase(ctx context.Context, purchaseID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.DeletePurchase(ctx, purchaseID)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, "PURCHASE_DELETE", purchaseID, nil)
	return nil
}

// Get loads one purchase with lines.
func (s *Service) Get(ctx context.Context, purchaseID int64) (Purchase, []PurchaseItem, error) {
	return s.repo.GetPurchase(ctx, purchaseID)
}

// List returns order headers, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]Purchase, error) {
	return s.repo.ListPurchases(ctx, limit)
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "purchase", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}
