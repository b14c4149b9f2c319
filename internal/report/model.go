package report

import (
	"time"

	"distromart-be/internal/credit"
	"distromart-be/internal/inventory"
	"distromart-be/internal/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnbrandedName labels products without a brand in the brand report.
const UnbrandedName = "Unbranded"

// OrderRow is the slice of an order the reports aggregate over.
type OrderRow struct {
	ID            uuid.UUID
	OrderNumber   string
	UserID        uuid.UUID
	RecordedBy    *uuid.UUID
	Status        string
	PaymentStatus ledger.PaymentStatus
	Total         decimal.Decimal
	Paid          decimal.Decimal
	Pending       decimal.Decimal
	PendingDue    *time.Time
	CreatedAt     time.Time
}

func (r OrderRow) outstanding() bool {
	return ledger.IsOutstanding(r.Status, r.PaymentStatus)
}

// OrderLine is one item of an order joined with its product's brand.
type OrderLine struct {
	OrderID       uuid.UUID
	Status        string
	PaymentStatus ledger.PaymentStatus
	Pending       decimal.Decimal
	BrandID       *uuid.UUID
	BrandName     string
	LineTotal     decimal.Decimal
}

type OrderQuery struct {
	RecordedBy *uuid.UUID
	From       *time.Time
	To         *time.Time
	DueBefore  *time.Time
}

type ClientLimit struct {
	ClientID uuid.UUID
	FullName string
	Limit    credit.PendingLimit
}

type BrandPending struct {
	BrandID *uuid.UUID      `json:"brand_id"`
	Brand   string          `json:"brand"`
	Pending decimal.Decimal `json:"pending_amount"`
	Orders  int             `json:"orders"`
}

type SalesmanPerformance struct {
	SalesmanID      uuid.UUID       `json:"salesman_id"`
	From            *time.Time      `json:"from,omitempty"`
	To              *time.Time      `json:"to,omitempty"`
	OrdersRecorded  int             `json:"orders_recorded"`
	TotalSales      decimal.Decimal `json:"total_sales"`
	Collected       decimal.Decimal `json:"collected"`
	Outstanding     decimal.Decimal `json:"outstanding_pending"`
	DistinctClients int             `json:"distinct_clients"`
}

type ClientUsage struct {
	ClientID       uuid.UUID       `json:"client_id"`
	FullName       string          `json:"full_name"`
	Limit          decimal.Decimal `json:"pending_amount_limit"`
	CurrentPending decimal.Decimal `json:"current_pending"`
	UsagePercent   decimal.Decimal `json:"usage_percent"`
}

type Dashboard struct {
	OrdersByStatus     map[string]int      `json:"orders_by_status"`
	RevenueCollected   decimal.Decimal     `json:"revenue_collected"`
	OutstandingPending decimal.Decimal     `json:"outstanding_pending"`
	ClientsNearLimit   []ClientUsage       `json:"clients_near_limit"`
	LowStock           []inventory.Product `json:"low_stock"`
}

type OverdueOrder struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	ClientID    uuid.UUID       `json:"client_id"`
	Pending     decimal.Decimal `json:"pending_amount"`
	DueDate     time.Time       `json:"due_date"`
	DaysOverdue int             `json:"days_overdue"`
}
