package ledger

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/quartermaster-app/quartermaster/internal/shared"
)

// qtyEpsilon absorbs float drift when comparing quantities to zero.
const qtyEpsilon = 1e-9

// Apply validates and appends one movement within an already-open
// ledger transaction, keeping the balance row in lock-step. Every
// workflow that touches stock funnels through here: the balance row is
// locked FOR UPDATE before the sufficiency check, so concurrent
// writers against the same (product, store) serialize and the ledger
// can never go negative.
func Apply(ctx context.Context, tx TxRepository, input MovementInput) (Balance, error) {
	if input.ProductID <= 0 {
		return Balance{}, shared.Validationf("product_id", "product is required")
	}
	if input.StoreID <= 0 {
		return Balance{}, shared.Validationf("store_id", "store is required")
	}
	if !input.Type.Valid() {
		return Balance{}, shared.Validationf("type", "unknown movement type %q", input.Type)
	}
	if input.Type == MovementAdjust {
		if math.Abs(input.Quantity) < qtyEpsilon {
			return Balance{}, shared.Validationf("quantity", "adjustment delta must be non-zero")
		}
	} else if input.Quantity <= 0 {
		return Balance{}, shared.Validationf("quantity", "quantity must be positive")
	}

	balance, err := tx.GetBalanceForUpdate(ctx, input.ProductID, input.StoreID)
	if err != nil && !errors.Is(err, ErrBalanceNotFound) {
		return Balance{}, err
	}
	if errors.Is(err, ErrBalanceNotFound) {
		balance = Balance{ProductID: input.ProductID, StoreID: input.StoreID}
	}

	effect := input.Type.Effect(input.Quantity)
	newQty := balance.Qty + effect
	if newQty < -qtyEpsilon {
		return Balance{}, &shared.InsufficientStockError{
			ProductID: input.ProductID,
			StoreID:   input.StoreID,
			Available: balance.Qty,
			Requested: -effect,
		}
	}
	if math.Abs(newQty) < qtyEpsilon {
		newQty = 0
	}

	movement := Movement{
		ProductID: input.ProductID,
		StoreID:   input.StoreID,
		Type:      input.Type,
		Quantity:  input.Quantity,
		Reference: input.Reference,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := tx.InsertMovement(ctx, movement); err != nil {
		return Balance{}, err
	}

	balance.Qty = newQty
	if err := tx.UpsertBalance(ctx, balance); err != nil {
		return Balance{}, err
	}
	return balance, nil
}
