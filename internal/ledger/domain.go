package ledger

import (
	"errors"
	"time"
)

// MovementType enumerates supported stock movements.
type MovementType string

const (
	// MovementIn represents an inbound movement (receiving, returns).
	MovementIn MovementType = "IN"
	// MovementOut represents an outbound movement (sales issuance).
	MovementOut MovementType = "OUT"
	// MovementAdjust reconciles a physical count; quantity is a signed delta.
	MovementAdjust MovementType = "ADJUST"
	// MovementTransferIn is the destination half of a transfer.
	MovementTransferIn MovementType = "TRANSFER_IN"
	// MovementTransferOut is the source half of a transfer.
	MovementTransferOut MovementType = "TRANSFER_OUT"
)

// Valid reports whether t is a known movement type.
func (t MovementType) Valid() bool {
	switch t {
	case MovementIn, MovementOut, MovementAdjust, MovementTransferIn, MovementTransferOut:
		return true
	}
	return false
}

// Effect returns the signed contribution of a stored quantity under t.
// ADJUST rows store a signed delta and contribute it as-is; all other
// types store positive magnitudes with direction implied by the type.
func (t MovementType) Effect(qty float64) float64 {
	switch t {
	case MovementOut, MovementTransferOut:
		return -qty
	default:
		return qty
	}
}

// Movement is one append-only row of the stock ledger. Rows are never
// updated or deleted; corrections are posted as compensating rows.
type Movement struct {
	ID        int64        `json:"id"`
	ProductID int64        `json:"product_id"`
	StoreID   int64        `json:"store_id"`
	Type      MovementType `json:"type"`
	Quantity  float64      `json:"quantity"`
	Reference string       `json:"reference"`
	CreatedAt time.Time    `json:"created_at"`
}

// Balance is the materialized on-hand quantity for one (product, store)
// pair. It exists for row locking; the aggregator itself reads live
// sums over movements.
type Balance struct {
	ProductID int64
	StoreID   int64
	Qty       float64
	UpdatedAt time.Time
}

// InventoryRow is one line of a store inventory view.
type InventoryRow struct {
	ProductID    int64   `json:"product_id"`
	Name         string  `json:"name"`
	CurrentStock float64 `json:"current_stock"`
}

// MovementFilter narrows movement history queries.
type MovementFilter struct {
	ProductID int64
	StoreID   int64
	Limit     int
}

// MovementInput describes a movement to append.
type MovementInput struct {
	ProductID int64
	StoreID   int64
	Type      MovementType
	Quantity  float64
	Reference string
}

// AdjustmentEntry reconciles one counted quantity.
type AdjustmentEntry struct {
	ProductID          int64
	StoreID            int64
	CountedQty         float64
	InventoryReference string
}

// AdjustmentResult reports the applied delta for one entry. Delta zero
// means the count matched and no movement was posted.
type AdjustmentResult struct {
	ProductID int64   `json:"product_id"`
	StoreID   int64   `json:"store_id"`
	Delta     float64 `json:"delta"`
	NewQty    float64 `json:"new_qty"`
}

// TransferEntry moves stock between two stores.
type TransferEntry struct {
	ProductID   int64
	FromStoreID int64
	ToStoreID   int64
	Quantity    float64
}

// TransferResult reports the shared reference of one applied pair.
type TransferResult struct {
	ProductID   int64   `json:"product_id"`
	FromStoreID int64   `json:"from_store_id"`
	ToStoreID   int64   `json:"to_store_id"`
	Quantity    float64 `json:"quantity"`
	Reference   string  `json:"reference"`
}

// ErrBalanceNotFound indicates missing balance row.
var ErrBalanceNotFound = errors.New("stock balance not found")
