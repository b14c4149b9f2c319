package order

import (
	"time"

	"distromart-be/internal/ledger"
	"distromart-be/internal/payment"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = ledger.OrderCancelled
)

// next lists the only forward move allowed from each fulfilment status.
var next = map[Status]Status{
	StatusPending:    StatusProcessing,
	StatusProcessing: StatusShipped,
	StatusShipped:    StatusDelivered,
}

func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return st, true
	}
	return "", false
}

type CreatedVia string

const (
	ViaSelfOrder CreatedVia = "self_order"
	ViaSalesman  CreatedVia = "salesman"
)

type Order struct {
	ID                     uuid.UUID            `json:"id"`
	OrderNumber            string               `json:"order_number"`
	UserID                 uuid.UUID            `json:"user_id"`
	RecordedBy             *uuid.UUID           `json:"recorded_by,omitempty"`
	AssignedTo             *uuid.UUID           `json:"assigned_to,omitempty"`
	Subtotal               decimal.Decimal      `json:"subtotal"`
	TotalAmount            decimal.Decimal      `json:"total_amount"`
	PaidAmount             decimal.Decimal      `json:"paid_amount"`
	PendingAmount          decimal.Decimal      `json:"pending_amount"`
	PaymentStatus          ledger.PaymentStatus `json:"payment_status"`
	Status                 Status               `json:"status"`
	CreatedVia             CreatedVia           `json:"created_via"`
	PaymentMethod          payment.Method       `json:"payment_method"`
	Notes                  string               `json:"notes"`
	InitialPaymentRequired *decimal.Decimal     `json:"initial_payment_required,omitempty"`
	InitialPaymentStatus   *string              `json:"initial_payment_status,omitempty"`
	InitialPaymentDueDate  *time.Time           `json:"initial_payment_due_date,omitempty"`
	PendingPaymentDueDate  *time.Time           `json:"pending_payment_due_date,omitempty"`
	CreatedAt              time.Time            `json:"created_at"`
	UpdatedAt              time.Time            `json:"updated_at"`
	Items                  []Item               `json:"items,omitempty"`
}

func (o *Order) Snapshot() ledger.Snapshot {
	return ledger.Snapshot{Paid: o.PaidAmount, Pending: o.PendingAmount, Status: o.PaymentStatus}
}

func (o *Order) apply(s ledger.Snapshot) {
	o.PaidAmount = s.Paid
	o.PendingAmount = s.Pending
	o.PaymentStatus = s.Status
}

// Item prices are copied from the catalog at order time and never re-read.
type Item struct {
	ID        uuid.UUID       `json:"id"`
	OrderID   uuid.UUID       `json:"order_id"`
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// DraftItem.UnitPrice is the price the caller was shown. It is never charged;
// when present it must equal the catalog price.
type DraftItem struct {
	ProductID uuid.UUID        `json:"product_id" validate:"required"`
	Quantity  int              `json:"quantity" validate:"gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

// Draft is an order as submitted. Total is the caller's claim and is only
// compared against the recomputed sum. A nil InitialPayment means the order
// is paid in full.
type Draft struct {
	Items                  []DraftItem      `json:"items" validate:"required,min=1,dive"`
	Total                  *decimal.Decimal `json:"total_amount,omitempty"`
	InitialPayment         *decimal.Decimal `json:"initial_payment,omitempty"`
	PaymentMethod          payment.Method   `json:"payment_method,omitempty"`
	Notes                  string           `json:"notes,omitempty" validate:"max=1000"`
	InitialPaymentRequired *decimal.Decimal `json:"initial_payment_required,omitempty"`
	InitialPaymentDueDate  *time.Time       `json:"initial_payment_due_date,omitempty"`
	PendingPaymentDueDate  *time.Time       `json:"pending_payment_due_date,omitempty"`
}

type SortField string

const (
	SortCreatedAt SortField = "created_at"
	SortTotal     SortField = "total_amount"
	SortPending   SortField = "pending_amount"
)

type Filter struct {
	ClientID        *uuid.UUID
	Status          *Status
	PaymentStatus   *ledger.PaymentStatus
	OutstandingOnly bool
	DateFrom        *time.Time
	DateTo          *time.Time
	Search          string
	SortField       SortField
	SortAsc         bool
	Limit           int
	Page            int
}

// Scope restricts a listing to the rows an actor may see. Zero value means
// every order.
type Scope struct {
	UserID     *uuid.UUID
	RecordedBy *uuid.UUID
}

// dueDate truncates t to a calendar day in UTC.
func dueDate(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}
