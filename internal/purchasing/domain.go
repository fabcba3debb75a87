package purchasing

import "time"

// Status tracks receiving progress of a purchase order. It is derived
// from line received quantities after every receipt batch; the
// administrative override can write arbitrary values on top.
type Status string

const (
	// StatusPending means no line has received anything yet.
	StatusPending Status = "pending"
	// StatusPartial means some but not all ordered quantity arrived.
	StatusPartial Status = "partial"
	// StatusReceived means every line is fully received.
	StatusReceived Status = "received"
)

// Purchase is an order header. TotalAmount is a snapshot computed at
// creation and never recomputed.
type Purchase struct {
	ID           int64     `json:"id"`
	SupplierName string    `json:"supplier_name"`
	TotalAmount  float64   `json:"total_amount"`
	Status       Status    `json:"status"`
	BCNumber     *string   `json:"bc_number,omitempty"`
	ReceiptURL   *string   `json:"receipt_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// PurchaseItem is one ordered line. ReceivedQuantity starts at zero,
// only ever grows, and never exceeds Quantity.
type PurchaseItem struct {
	ID               int64   `json:"id"`
	PurchaseID       int64   `json:"purchase_id"`
	ProductID        int64   `json:"product_id"`
	StoreID          int64   `json:"store_id"`
	Quantity         float64 `json:"quantity"`
	UnitPrice        float64 `json:"unit_price"`
	ReceivedQuantity float64 `json:"received_quantity"`
}

// LineInput describes one ordered line at creation.
type LineInput struct {
	ProductID int64
	StoreID   int64
	Quantity  float64
	UnitPrice float64
}

// CreateInput describes a purchase order to create.
type CreateInput struct {
	SupplierName string
	BCNumber     *string
	ReceiptURL   *string
	Lines        []LineInput
}

// Receipt records arrived quantity against one purchase line.
type Receipt struct {
	PurchaseItemID   int64
	QuantityReceived float64
}

const receiptEpsilon = 1e-9

// DeriveStatus computes order status from line receiving progress.
func DeriveStatus(lines []PurchaseItem) Status {
	if len(lines) == 0 {
		return StatusPending
	}
	allFull := true
	anyReceived := false
	for _, line := range lines {
		if line.ReceivedQuantity > receiptEpsilon {
			anyReceived = true
		}
		if line.ReceivedQuantity < line.Quantity-receiptEpsilon {
			allFull = false
		}
	}
	switch {
	case allFull:
		return StatusReceived
	case anyReceived:
		return StatusPartial
	default:
		return StatusPending
	}
}
