package shared

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates resource not found. Kept for errors.Is checks
// where the caller does not care which entity was missing.
var ErrNotFound = errors.New("not found")

// ValidationError reports malformed or missing input. No state is
// mutated when one is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validationf builds a ValidationError for a field.
func Validationf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing referenced entity.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConflictError reports a uniqueness or referential conflict.
type ConflictError struct {
	Resource string
	Message  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", e.Resource, e.Message)
}

// InsufficientStockError rejects an issue or transfer that requested
// more than is on hand at (product, store).
type InsufficientStockError struct {
	ProductID int64
	StoreID   int64
	Available float64
	Requested float64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d at store %d: available %g, requested %g",
		e.ProductID, e.StoreID, e.Available, e.Requested)
}

// OverReceiptError rejects a receipt that would push a purchase line
// above its ordered quantity.
type OverReceiptError struct {
	PurchaseItemID int64
	Ordered        float64
	Received       float64
	Requested      float64
}

func (e *OverReceiptError) Error() string {
	return fmt.Sprintf("purchase item %d: receiving %g exceeds ordered %g (already received %g)",
		e.PurchaseItemID, e.Requested, e.Ordered, e.Received)
}
