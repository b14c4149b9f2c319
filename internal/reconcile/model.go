package reconcile

import (
	"distromart-be/internal/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Candidate is an order's stored ledger next to the sum of its completed
// payments.
type Candidate struct {
	OrderID     uuid.UUID
	OrderNumber string
	Total       decimal.Decimal
	Stored      ledger.Snapshot
	Collected   decimal.Decimal
	ItemCount   int
}

// Expected is the ledger the payment history implies.
func (c Candidate) Expected() ledger.Snapshot {
	return ledger.Recompute(c.Total, []ledger.Entry{{Amount: c.Collected, Completed: true}})
}

type Repair struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	Before      ledger.Snapshot `json:"before"`
	After       ledger.Snapshot `json:"after"`
}

type Result struct {
	Scanned      int         `json:"scanned"`
	Repaired     []Repair    `json:"repaired"`
	Failed       []uuid.UUID `json:"failed"`
	MissingItems []uuid.UUID `json:"missing_items"`
}
