package credit

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"distromart-be/internal/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PendingLimit is a client's credit line. The zero value is Unbounded.
// A bounded limit of 0 allows no pending balance at all.
type PendingLimit struct {
	amount  decimal.Decimal
	bounded bool
}

func Unbounded() PendingLimit { return PendingLimit{} }

func LimitOf(amount decimal.Decimal) PendingLimit {
	return PendingLimit{amount: ledger.Round(amount), bounded: true}
}

func (l PendingLimit) IsBounded() bool         { return l.bounded }
func (l PendingLimit) Amount() decimal.Decimal { return l.amount }

func (l PendingLimit) String() string {
	if !l.bounded {
		return "unbounded"
	}
	return l.amount.StringFixed(ledger.MinorUnits)
}

// Scan maps SQL NULL to Unbounded.
func (l *PendingLimit) Scan(value any) error {
	if value == nil {
		*l = Unbounded()
		return nil
	}
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return fmt.Errorf("scan pending limit: %w", err)
	}
	*l = LimitOf(d)
	return nil
}

func (l PendingLimit) Value() (driver.Value, error) {
	if !l.bounded {
		return nil, nil
	}
	return l.amount.StringFixed(ledger.MinorUnits), nil
}

func (l PendingLimit) MarshalJSON() ([]byte, error) {
	if !l.bounded {
		return []byte("null"), nil
	}
	return json.Marshal(l.amount.StringFixed(ledger.MinorUnits))
}

func (l *PendingLimit) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*l = Unbounded()
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	if d.IsNegative() {
		return fmt.Errorf("pending limit must not be negative")
	}
	*l = LimitOf(d)
	return nil
}

type Profile struct {
	ClientID          uuid.UUID
	Role              string
	Limit             PendingLimit
	CurrentPending    decimal.Decimal
	OutstandingOrders int
}

// Remaining is max(0, limit - current pending). ok is false for an
// unbounded limit.
func (p Profile) Remaining() (remaining decimal.Decimal, ok bool) {
	if !p.Limit.IsBounded() {
		return decimal.Zero, false
	}
	r := p.Limit.Amount().Sub(p.CurrentPending)
	if r.IsNegative() {
		r = decimal.Zero
	}
	return r, true
}

// Result is what validatePendingLimit reports to a caller.
type Result struct {
	Valid          bool            `json:"valid"`
	Reason         string          `json:"reason,omitempty"`
	CurrentPending decimal.Decimal `json:"current_pending"`
	NewPending     decimal.Decimal `json:"new_pending"`
	Limit          PendingLimit    `json:"limit"`
}

type FinancialStatus struct {
	ClientID          uuid.UUID        `json:"client_id"`
	Limit             PendingLimit     `json:"pending_amount_limit"`
	CurrentPending    decimal.Decimal  `json:"current_pending"`
	RemainingLimit    *decimal.Decimal `json:"remaining_limit"`
	OutstandingOrders int              `json:"outstanding_orders"`
}
