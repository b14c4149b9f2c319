package payment

import (
	"fmt"

	"distromart-be/internal/apperr"
	"distromart-be/internal/ledger"

	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound  = apperr.NotFound("order_not_found", "order not found")
	ErrOrderCancelled = apperr.Validation("order_cancelled", "payments cannot be recorded against a cancelled order")
	ErrInvalidAmount  = apperr.Validation("invalid_amount", "payment amount must be greater than zero")
	ErrUnknownMethod  = apperr.Validation("unknown_payment_method", "unknown payment method")
)

// ExceedsPendingError rejects a payment larger than what the order still owes.
type ExceedsPendingError struct {
	Amount  decimal.Decimal
	Pending decimal.Decimal
}

func (e *ExceedsPendingError) Error() string {
	return fmt.Sprintf("payment amount %s exceeds pending amount %s",
		e.Amount.StringFixed(ledger.MinorUnits),
		e.Pending.StringFixed(ledger.MinorUnits),
	)
}

func (e *ExceedsPendingError) Kind() apperr.Kind { return apperr.KindInsufficientFunds }
func (e *ExceedsPendingError) Code() string      { return "payment_exceeds_pending" }
