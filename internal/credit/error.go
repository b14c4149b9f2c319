package credit

import (
	"fmt"

	"distromart-be/internal/apperr"
	"distromart-be/internal/ledger"

	"github.com/shopspring/decimal"
)

var (
	ErrClientNotFound = apperr.NotFound("client_not_found", "client not found")
	ErrNotAClient     = apperr.Validation("not_a_client", "user is not a client account")
	ErrInvalidAmount  = apperr.Validation("invalid_amount", "order total and payment must be non-negative and payment must not exceed total")
)

// LimitExceededError carries the numbers a UI renders next to the rejection.
type LimitExceededError struct {
	CurrentPending decimal.Decimal
	NewPending     decimal.Decimal
	Limit          decimal.Decimal
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("pending limit exceeded: current pending %s, new order adds %s, limit %s",
		e.CurrentPending.StringFixed(ledger.MinorUnits),
		e.NewPending.StringFixed(ledger.MinorUnits),
		e.Limit.StringFixed(ledger.MinorUnits),
	)
}

func (e *LimitExceededError) Kind() apperr.Kind { return apperr.KindValidation }
func (e *LimitExceededError) Code() string      { return "pending_limit_exceeded" }
