package payment

import (
	"time"

	"distromart-be/internal/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
)

type Payment struct {
	ID         uuid.UUID       `json:"id"`
	OrderID    uuid.UUID       `json:"order_id"`
	Amount     decimal.Decimal `json:"amount"`
	Method     Method          `json:"payment_method"`
	Status     Status          `json:"status"`
	RecordedBy *uuid.UUID      `json:"recorded_by,omitempty"`
	Notes      string          `json:"notes"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Entry converts the payment into what the ledger counts.
func (p Payment) Entry() ledger.Entry {
	return ledger.Entry{Amount: p.Amount, Completed: p.Status == StatusCompleted}
}

// OrderLedger is the slice of an order row the payment engine reads and
// writes.
type OrderLedger struct {
	OrderID     uuid.UUID
	OrderNumber string
	UserID      uuid.UUID
	Status      string
	Total       decimal.Decimal
	Snapshot    ledger.Snapshot
}

type Input struct {
	OrderID uuid.UUID       `json:"order_id" validate:"required"`
	Amount  decimal.Decimal `json:"amount"`
	Method  Method          `json:"payment_method" validate:"required"`
	Notes   string          `json:"notes" validate:"max=1000"`
}

// Receipt is returned by RecordPayment: the stored payment and the order's
// ledger after it.
type Receipt struct {
	Payment       *Payment             `json:"payment"`
	OrderID       uuid.UUID            `json:"order_id"`
	PaidAmount    decimal.Decimal      `json:"paid_amount"`
	PendingAmount decimal.Decimal      `json:"pending_amount"`
	PaymentStatus ledger.PaymentStatus `json:"payment_status"`
}
