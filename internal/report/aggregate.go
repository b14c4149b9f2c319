package report

import (
	"sort"
	"time"

	"distromart-be/internal/inventory"
	"distromart-be/internal/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	nearLimitRatio = decimal.NewFromFloat(0.8)
	hundred        = decimal.NewFromInt(100)
)

// brandPending allocates each outstanding order's pending amount across the
// brands of its lines in proportion to the line totals. lines must be
// grouped by order.
func brandPending(lines []OrderLine) []BrandPending {
	type bucket struct {
		BrandPending
		seen map[uuid.UUID]bool
	}
	buckets := map[string]*bucket{}

	flush := func(group []OrderLine) {
		if len(group) == 0 || !ledger.IsOutstanding(group[0].Status, group[0].PaymentStatus) {
			return
		}
		weights := make([]decimal.Decimal, len(group))
		for i, l := range group {
			weights[i] = l.LineTotal
		}
		parts := ledger.Allocate(group[0].Pending, weights)
		for i, l := range group {
			key, name := "", UnbrandedName
			if l.BrandID != nil {
				key, name = l.BrandID.String(), l.BrandName
			}
			b, ok := buckets[key]
			if !ok {
				b = &bucket{BrandPending: BrandPending{BrandID: l.BrandID, Brand: name, Pending: decimal.Zero}, seen: map[uuid.UUID]bool{}}
				buckets[key] = b
			}
			b.Pending = b.Pending.Add(parts[i])
			if !b.seen[l.OrderID] {
				b.seen[l.OrderID] = true
				b.Orders++
			}
		}
	}

	start := 0
	for i := 1; i <= len(lines); i++ {
		if i == len(lines) || lines[i].OrderID != lines[start].OrderID {
			flush(lines[start:i])
			start = i
		}
	}

	out := make([]BrandPending, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, b.BrandPending)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Pending.Equal(out[j].Pending) {
			return out[i].Pending.GreaterThan(out[j].Pending)
		}
		return out[i].Brand < out[j].Brand
	})
	return out
}

// performance sums the non-cancelled orders a salesman recorded.
func performance(salesmanID uuid.UUID, rows []OrderRow) SalesmanPerformance {
	p := SalesmanPerformance{
		SalesmanID:  salesmanID,
		TotalSales:  decimal.Zero,
		Collected:   decimal.Zero,
		Outstanding: decimal.Zero,
	}
	clients := map[uuid.UUID]bool{}
	for _, r := range rows {
		if r.Status == ledger.OrderCancelled {
			continue
		}
		p.OrdersRecorded++
		p.TotalSales = p.TotalSales.Add(r.Total)
		p.Collected = p.Collected.Add(r.Paid)
		if r.outstanding() {
			p.Outstanding = p.Outstanding.Add(r.Pending)
		}
		clients[r.UserID] = true
	}
	p.DistinctClients = len(clients)
	return p
}

func dashboard(rows []OrderRow, clients []ClientLimit, lowStock []inventory.Product) Dashboard {
	d := Dashboard{
		OrdersByStatus:     map[string]int{},
		RevenueCollected:   decimal.Zero,
		OutstandingPending: decimal.Zero,
		ClientsNearLimit:   []ClientUsage{},
		LowStock:           lowStock,
	}
	if d.LowStock == nil {
		d.LowStock = []inventory.Product{}
	}

	pending := map[uuid.UUID]decimal.Decimal{}
	for _, r := range rows {
		d.OrdersByStatus[r.Status]++
		if r.Status == ledger.OrderCancelled {
			continue
		}
		d.RevenueCollected = d.RevenueCollected.Add(r.Paid)
		if r.outstanding() {
			d.OutstandingPending = d.OutstandingPending.Add(r.Pending)
			pending[r.UserID] = pending[r.UserID].Add(r.Pending)
		}
	}

	for _, c := range clients {
		if u, ok := usage(c, pending[c.ClientID]); ok {
			d.ClientsNearLimit = append(d.ClientsNearLimit, u)
		}
	}
	sort.Slice(d.ClientsNearLimit, func(i, j int) bool {
		return d.ClientsNearLimit[i].UsagePercent.GreaterThan(d.ClientsNearLimit[j].UsagePercent)
	})
	return d
}

// usage reports a client whose pending balance reached 80% of a bounded
// limit. A zero limit with any pending balance counts as fully used.
func usage(c ClientLimit, current decimal.Decimal) (ClientUsage, bool) {
	if !c.Limit.IsBounded() || !current.IsPositive() {
		return ClientUsage{}, false
	}
	limit := c.Limit.Amount()
	u := ClientUsage{ClientID: c.ClientID, FullName: c.FullName, Limit: limit, CurrentPending: current}
	if limit.IsZero() {
		u.UsagePercent = hundred
		return u, true
	}
	if current.LessThan(limit.Mul(nearLimitRatio)) {
		return ClientUsage{}, false
	}
	u.UsagePercent = ledger.Round(current.Mul(hundred).Div(limit))
	return u, true
}

func overdue(rows []OrderRow, asOf time.Time) []OverdueOrder {
	day := truncateDay(asOf)
	out := []OverdueOrder{}
	for _, r := range rows {
		if r.PendingDue == nil || !r.outstanding() {
			continue
		}
		due := truncateDay(*r.PendingDue)
		if !due.Before(day) {
			continue
		}
		out = append(out, OverdueOrder{
			OrderID:     r.ID,
			OrderNumber: r.OrderNumber,
			ClientID:    r.UserID,
			Pending:     r.Pending,
			DueDate:     due,
			DaysOverdue: int(day.Sub(due).Hours() / 24),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DaysOverdue > out[j].DaysOverdue })
	return out
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
