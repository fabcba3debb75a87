package sales

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
	GetSale(ctx context.Context, id int64) (Sale, []SaleItem, error)
	ListSales(ctx context.Context, limit int) ([]Sale, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates sales and returns.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService constructs sales service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// CreateSale persists the sale and posts one OUT movement per line in
// the same transaction. Insufficient stock on any line aborts the
// whole sale, so partially deducted sales cannot exist.
func (s *Service) CreateSale(ctx context.Context, input CreateInput) (Sale, []SaleItem, error) {
	customer := strings.TrimSpace(input.CustomerName)
	if customer == "" {
		return Sale{}, nil, shared.Validationf("customer_name", "customer name is required")
	}
	phone := strings.TrimSpace(input.CustomerPhone)
	if phone == "" {
		return Sale{}, nil, shared.Validationf("customer_phone", "customer phone is required")
	}
	address := strings.TrimSpace(input.CustomerAddress)
	if address == "" {
		return Sale{}, nil, shared.Validationf("customer_address", "customer address is required")
	}
	if len(input.Lines) == 0 {
		return Sale{}, nil, shared.Validationf("lines", "at least one line required")
	}
	var total float64
	for _, line := range input.Lines {
		if line.ProductID <= 0 || line.StoreID <= 0 {
			return Sale{}, nil, shared.Validationf("lines", "product and store are required")
		}
		if line.Quantity <= 0 {
			return Sale{}, nil, shared.Validationf("quantity", "quantity must be positive")
		}
		if line.UnitPrice < 0 {
			return Sale{}, nil, shared.Validationf("unit_price", "unit price cannot be negative")
		}
		total += line.Quantity * line.UnitPrice
	}

	sale := Sale{
		CustomerName:    customer,
		CustomerPhone:   phone,
		CustomerAddress: address,
		TotalAmount:     total,
		Status:          StatusCompleted,
	}
	var items []SaleItem
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertSale(ctx, sale)
		if err != nil {
			return err
		}
		sale.ID = id
		reference := fmt.Sprintf("SALE-%d", id)
		items = make([]SaleItem, 0, len(input.Lines))
		for _, line := range input.Lines {
			item := SaleItem{
				SaleID:    id,
				ProductID: line.ProductID,
				StoreID:   line.StoreID,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
			}
			itemID, err := tx.InsertSaleItem(ctx, item)
			if err != nil {
				return err
			}
			item.ID = itemID
			items = append(items, item)

			if _, err := ledger.Apply(ctx, tx.Ledger(), ledger.MovementInput{
				ProductID: line.ProductID,
				StoreID:   line.StoreID,
				Type:      ledger.MovementOut,
				Quantity:  line.Quantity,
				Reference: reference,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Sale{}, nil, err
	}
	s.recordAudit(ctx, "SALE_CREATE", sale.ID, map[string]any{"customer": customer, "total": total, "lines": len(items)})
	return sale, items, nil
}

// ReturnItems restocks sold quantity. Lines that do not belong to the
// sale are skipped and reported rather than failing the batch, so one
// stale id in a hand-entered return does not block the rest. Returning
// more than a line still holds is an error and aborts everything.
func (s *Service) ReturnItems(ctx context.Context, saleID int64, returns []ReturnLine) (ReturnResult, error) {
	if len(returns) == 0 {
		return ReturnResult{}, shared.Validationf("returns", "at least one return line required")
	}
	for _, ret := range returns {
		if ret.SaleItemID <= 0 {
			return ReturnResult{}, shared.Validationf("sale_item_id", "sale item id is required")
		}
		if ret.Quantity <= 0 {
			return ReturnResult{}, shared.Validationf("quantity", "return quantity must be positive")
		}
	}

	result := ReturnResult{Returned: []ReturnedLine{}, Skipped: []SkippedLine{}}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetSaleForUpdate(ctx, saleID); err != nil {
			return err
		}
		lines, err := tx.GetItemsForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		byID := make(map[int64]*SaleItem, len(lines))
		for i := range lines {
			byID[lines[i].ID] = &lines[i]
		}

		reference := fmt.Sprintf("RETURN-%d", saleID)
		for _, ret := range returns {
			line, ok := byID[ret.SaleItemID]
			if !ok {
				result.Skipped = append(result.Skipped, SkippedLine{SaleItemID: ret.SaleItemID, Reason: "line does not belong to this sale"})
				continue
			}
			if ret.Quantity > line.Quantity {
				return shared.Validationf("quantity", "cannot return %.4f of sale item %d, only %.4f sold", ret.Quantity, line.ID, line.Quantity)
			}
			line.Quantity -= ret.Quantity
			if err := tx.SetItemQuantity(ctx, line.ID, line.Quantity); err != nil {
				return err
			}
			if _, err := ledger.Apply(ctx, tx.Ledger(), ledger.MovementInput{
				ProductID: line.ProductID,
				StoreID:   line.StoreID,
				Type:      ledger.MovementIn,
				Quantity:  ret.Quantity,
				Reference: reference,
			}); err != nil {
				return err
			}
			result.Returned = append(result.Returned, ReturnedLine{
				SaleItemID: line.ID,
				ProductID:  line.ProductID,
				StoreID:    line.StoreID,
				Quantity:   ret.Quantity,
			})
		}
		return nil
	})
	if err != nil {
		return ReturnResult{}, err
	}
	s.recordAudit(ctx, "SALE_RETURN", saleID, map[string]any{"returned": len(result.Returned), "skipped": len(result.Skipped)})
	return result, nil
}

// OverrideStatus sets the status field directly. The value is
// free-form and carries no stock semantics.
func (s *Service) OverrideStatus(ctx context.Context, saleID int64, status string) error {
	if strings.TrimSpace(status) == "" {
		return shared.Validationf("status", "status is required")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetSaleForUpdate(ctx, saleID); err != nil {
			return err
		}
		return tx.UpdateStatus(ctx, saleID, status)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, "SALE_STATUS_OVERRIDE", saleID, map[string]any{"status": status})
	return nil
}

// DeleteSale removes the sale and its lines. Movements already posted
// stay in the ledger.
func (s *Service) DeleteSale(ctx context.Context, saleID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.DeleteSale(ctx, saleID)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, "SALE_DELETE", saleID, nil)
	return nil
}

// Get loads one sale with lines.
func (s *Service) Get(ctx context.Context, saleID int64) (Sale, []SaleItem, error) {
	return s.repo.GetSale(ctx, saleID)
}

// List returns sale headers, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]Sale, error) {
	return s.repo.ListSales(ctx, limit)
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{Action: action, Entity: "sale", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}
