package inventory

import (
	"fmt"

	"distromart-be/internal/apperr"
)

var (
	ErrProductNotFound = apperr.NotFound("product_not_found", "product not found")
	ErrZeroDelta       = apperr.Validation("invalid_delta", "stock adjustment must not be zero")
	ErrReasonRequired  = apperr.Validation("reason_required", "stock adjustment needs a reason")
	ErrInvalidQuantity = apperr.Validation("invalid_quantity", "order quantity must be positive")
)

// NegativeStockError rejects a manual adjustment that would drive stock
// below zero.
type NegativeStockError struct {
	Current int
	Delta   int
}

func (e *NegativeStockError) Error() string {
	return fmt.Sprintf("resulting quantity would be negative: current %d, change %d", e.Current, e.Delta)
}

func (e *NegativeStockError) Kind() apperr.Kind { return apperr.KindValidation }
func (e *NegativeStockError) Code() string      { return "negative_stock" }
