package credit

import (
	"distromart-be/internal/ledger"

	"github.com/shopspring/decimal"
)

// NewPending is the pending balance an order of total adds when paidNow is
// collected up front.
func NewPending(total, paidNow decimal.Decimal) decimal.Decimal {
	return ledger.Split(total, paidNow).Pending
}

// Check decides whether an order split is admissible for the profile.
// A fully paid order never needs a credit line.
func Check(p Profile, total, paidNow decimal.Decimal) error {
	if total.IsNegative() || paidNow.IsNegative() || paidNow.GreaterThan(total) {
		return ErrInvalidAmount
	}

	newPending := NewPending(total, paidNow)
	if !newPending.IsPositive() {
		return nil
	}
	if !p.Limit.IsBounded() {
		return nil
	}

	current := ledger.Round(p.CurrentPending)
	if current.Add(newPending).GreaterThan(p.Limit.Amount()) {
		return &LimitExceededError{
			CurrentPending: current,
			NewPending:     newPending,
			Limit:          p.Limit.Amount(),
		}
	}
	return nil
}
