package sales

import "time"

// Sale is an order sold to a walk-in customer. Status is free-form
// and defaults to completed since stock is deducted at creation.
type Sale struct {
	ID              int64     `json:"id"`
	CustomerName    string    `json:"customer_name"`
	CustomerPhone   string    `json:"customer_phone"`
	CustomerAddress string    `json:"customer_address"`
	TotalAmount     float64   `json:"total_amount"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// SaleItem is one sold line. Quantity reflects what the customer
// currently keeps: returns decrement it, down to zero.
type SaleItem struct {
	ID        int64   `json:"id"`
	SaleID    int64   `json:"sale_id"`
	ProductID int64   `json:"product_id"`
	StoreID   int64   `json:"store_id"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// LineInput describes one line of a sale being created.
type LineInput struct {
	ProductID int64
	StoreID   int64
	Quantity  float64
	UnitPrice float64
}

// CreateInput carries a new sale.
type CreateInput struct {
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	Lines           []LineInput
}

// ReturnLine asks to return part of one sold line.
type ReturnLine struct {
	SaleItemID int64
	Quantity   float64
}

// ReturnResult reports what a return batch actually did.
type ReturnResult struct {
	Returned []ReturnedLine `json:"returned"`
	Skipped  []SkippedLine  `json:"skipped"`
}

// ReturnedLine is one line restocked by a return.
type ReturnedLine struct {
	SaleItemID int64   `json:"sale_item_id"`
	ProductID  int64   `json:"product_id"`
	StoreID    int64   `json:"store_id"`
	Quantity   float64 `json:"quantity"`
}

// SkippedLine is a requested line that does not belong to the sale.
type SkippedLine struct {
	SaleItemID int64  `json:"sale_item_id"`
	Reason     string `json:"reason"`
}

// StatusCompleted is the default status of a new sale.
const StatusCompleted = "completed"
