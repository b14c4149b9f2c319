// Package ledger holds the only arithmetic allowed to produce an order's
// paid amount, pending amount and payment status. Every writer of those
// three columns goes through Recompute or Split.
package ledger

import (
	"github.com/shopspring/decimal"
)

// MinorUnits is the number of decimal places of the settlement currency.
const MinorUnits = 2

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// Order lifecycle values referenced by the outstanding predicate.
const (
	OrderCancelled = "cancelled"
)

type Snapshot struct {
	Paid    decimal.Decimal
	Pending decimal.Decimal
	Status  PaymentStatus
}

// Entry is one payment event as seen by the ledger.
type Entry struct {
	Amount    decimal.Decimal
	Completed bool
}

// Round normalises a monetary value to the currency minor unit.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(MinorUnits)
}

func ComputeStatus(paid, total decimal.Decimal) PaymentStatus {
	paid, total = Round(paid), Round(total)
	switch {
	case paid.GreaterThanOrEqual(total):
		return PaymentPaid
	case paid.IsPositive():
		return PaymentPartial
	default:
		return PaymentPending
	}
}

// Recompute derives the ledger triple from the full payment history.
func Recompute(total decimal.Decimal, entries []Entry) Snapshot {
	paid := decimal.Zero
	for _, e := range entries {
		if e.Completed {
			paid = paid.Add(e.Amount)
		}
	}
	return snapshot(total, paid)
}

// Split is the snapshot of a new order with an initial payment of paid.
func Split(total, paid decimal.Decimal) Snapshot {
	return snapshot(total, paid)
}

func snapshot(total, paid decimal.Decimal) Snapshot {
	total, paid = Round(total), Round(paid)
	if paid.IsNegative() {
		paid = decimal.Zero
	}
	pending := total.Sub(paid)
	if pending.IsNegative() {
		pending = decimal.Zero
	}
	return Snapshot{
		Paid:    paid,
		Pending: pending,
		Status:  ComputeStatus(paid, total),
	}
}

// Consistent reports whether a stored triple agrees with the ledger rules
// for the given total.
func Consistent(total decimal.Decimal, s Snapshot) bool {
	want := snapshot(total, s.Paid)
	return want.Pending.Equal(Round(s.Pending)) && want.Status == s.Status
}

// Equal compares two snapshots at minor-unit precision.
func (s Snapshot) Equal(o Snapshot) bool {
	return Round(s.Paid).Equal(Round(o.Paid)) &&
		Round(s.Pending).Equal(Round(o.Pending)) &&
		s.Status == o.Status
}

// IsOutstanding is the filter shared by the pending-limit validator and the
// reports: a live order that still owes money.
func IsOutstanding(orderStatus string, ps PaymentStatus) bool {
	return orderStatus != OrderCancelled && ps != PaymentPaid
}

// Allocate splits amount across weights proportionally. The last non-zero
// weight absorbs rounding so the parts always sum to amount.
func Allocate(amount decimal.Decimal, weights []decimal.Decimal) []decimal.Decimal {
	parts := make([]decimal.Decimal, len(weights))
	sum := decimal.Zero
	last := -1
	for i, w := range weights {
		parts[i] = decimal.Zero
		if w.IsPositive() {
			sum = sum.Add(w)
			last = i
		}
	}
	if last < 0 {
		return parts
	}

	allocated := decimal.Zero
	for i, w := range weights {
		if !w.IsPositive() {
			continue
		}
		if i == last {
			parts[i] = Round(amount).Sub(allocated)
			break
		}
		parts[i] = Round(amount.Mul(w).Div(sum))
		allocated = allocated.Add(parts[i])
	}
	return parts
}
