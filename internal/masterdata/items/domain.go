package items

import "time"

// Item is a sellable product. CanonicalName is the folded,
// whitespace-collapsed form of Name used for uniqueness within a
// category.
type Item struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Category      string     `json:"category"`
	PurchasePrice float64    `json:"purchase_price"`
	SalePrice     *float64   `json:"sale_price"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}

// Input carries item fields for create and update.
type Input struct {
	Name          string
	Category      string
	PurchasePrice float64
	SalePrice     *float64
}
