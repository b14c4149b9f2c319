package wallet

import (
	"fmt"

	"distromart-be/internal/apperr"
	"distromart-be/internal/ledger"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = apperr.Validation("invalid_amount", "wallet amount must be positive")

// InsufficientCreditError is returned when a wallet is missing or cannot
// cover a debit.
type InsufficientCreditError struct {
	Balance  decimal.Decimal
	Required decimal.Decimal
}

func (e *InsufficientCreditError) Error() string {
	return fmt.Sprintf("insufficient credit balance: available %s, required %s",
		e.Balance.StringFixed(ledger.MinorUnits),
		e.Required.StringFixed(ledger.MinorUnits),
	)
}

func (e *InsufficientCreditError) Kind() apperr.Kind { return apperr.KindInsufficientFunds }
func (e *InsufficientCreditError) Code() string      { return "insufficient_credit" }
