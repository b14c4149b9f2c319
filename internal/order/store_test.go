package order

import (
	"context"
	"sync"
	"time"

	"distromart-be/internal/credit"
	"distromart-be/internal/inventory"
	"distromart-be/internal/ledger"
	"distromart-be/internal/payment"
	"distromart-be/internal/wallet"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memStore backs every collaborator of the order service with maps so the
// placement flow can be exercised end to end, including under concurrency.
type memStore struct {
	mu sync.Mutex

	roles    map[uuid.UUID]string
	limits   map[uuid.UUID]credit.PendingLimit
	orders   map[uuid.UUID]*Order
	items    map[uuid.UUID][]Item
	stock    map[uuid.UUID]int
	prices   map[uuid.UUID]decimal.Decimal
	inactive map[uuid.UUID]bool
	logs     []inventory.Log
	payments []payment.Payment
	wallets  map[uuid.UUID]decimal.Decimal
	debits   []wallet.Transaction

	collisions int
	itemsErr   error
}

func newMemStore() *memStore {
	return &memStore{
		roles:    map[uuid.UUID]string{},
		limits:   map[uuid.UUID]credit.PendingLimit{},
		orders:   map[uuid.UUID]*Order{},
		items:    map[uuid.UUID][]Item{},
		stock:    map[uuid.UUID]int{},
		prices:   map[uuid.UUID]decimal.Decimal{},
		inactive: map[uuid.UUID]bool{},
		wallets:  map[uuid.UUID]decimal.Decimal{},
	}
}

func (m *memStore) addClient(role string, limit credit.PendingLimit) uuid.UUID {
	id := uuid.New()
	m.roles[id] = role
	m.limits[id] = limit
	return id
}

func (m *memStore) addProduct(qty int) uuid.UUID {
	id := uuid.New()
	m.stock[id] = qty
	return id
}

// seedOrder stores an existing order for clientID with the given split.
func (m *memStore) seedOrder(clientID uuid.UUID, status Status, total, paid decimal.Decimal) *Order {
	o := &Order{
		ID:          uuid.New(),
		OrderNumber: "ORD-SEED-" + uuid.NewString()[:4],
		UserID:      clientID,
		TotalAmount: total,
		Subtotal:    total,
		Status:      status,
		CreatedVia:  ViaSelfOrder,
		CreatedAt:   time.Now(),
	}
	o.apply(ledger.Split(total, paid))
	m.orders[o.ID] = o
	return o
}

func (m *memStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// ---- ProfileLocker ----

func (m *memStore) LockProfile(_ context.Context, clientID uuid.UUID) (*credit.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	role, ok := m.roles[clientID]
	if !ok {
		return nil, credit.ErrClientNotFound
	}
	p := &credit.Profile{ClientID: clientID, Role: role, Limit: m.limits[clientID], CurrentPending: decimal.Zero}
	for _, o := range m.orders {
		if o.UserID == clientID && ledger.IsOutstanding(string(o.Status), o.PaymentStatus) {
			p.CurrentPending = p.CurrentPending.Add(o.PendingAmount)
			p.OutstandingOrders++
		}
	}
	return p, nil
}

// ---- WalletStore ----

func (m *memStore) GetForUpdate(_ context.Context, userID uuid.UUID, required decimal.Decimal) (*wallet.Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bal, ok := m.wallets[userID]
	if !ok {
		return nil, &wallet.InsufficientCreditError{Balance: decimal.Zero, Required: required}
	}
	return &wallet.Balance{UserID: userID, Balance: bal}, nil
}

func (m *memStore) Debit(_ context.Context, userID uuid.UUID, amount decimal.Decimal, ref wallet.Reference) (*wallet.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bal := m.wallets[userID]
	if bal.LessThan(amount) {
		return nil, &wallet.InsufficientCreditError{Balance: bal, Required: amount}
	}
	m.wallets[userID] = bal.Sub(amount)
	tx := wallet.Transaction{ID: uuid.New(), UserID: userID, Amount: amount, Type: wallet.TxDebit, ReferenceType: ref.Type, BalanceAfter: m.wallets[userID]}
	m.debits = append(m.debits, tx)
	return &tx, nil
}

// ---- Catalog ----

func (m *memStore) ProductsForOrder(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]inventory.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := map[uuid.UUID]inventory.Product{}
	for _, id := range ids {
		qty, ok := m.stock[id]
		if !ok {
			continue
		}
		out[id] = inventory.Product{
			ID:            id,
			Name:          "product-" + id.String()[:8],
			Price:         m.prices[id],
			StockQuantity: qty,
			IsActive:      !m.inactive[id],
		}
	}
	return out, nil
}

// ---- StockDeducter ----

func (m *memStore) DeductForOrder(_ context.Context, productID uuid.UUID, qty int, reason string, actorID *uuid.UUID) (*inventory.Log, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.stock[productID]
	if !ok {
		return nil, inventory.ErrProductNotFound
	}
	next := prev - qty
	if next < 0 {
		next = 0
	}
	m.stock[productID] = next
	l := inventory.Log{ID: uuid.New(), ProductID: productID, PreviousQuantity: prev, NewQuantity: next, QuantityChange: next - prev, Reason: reason, ActorID: actorID}
	m.logs = append(m.logs, l)
	return &l, nil
}

// ---- PaymentWriter ----

func (m *memStore) Insert(_ context.Context, p *payment.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.New()
	m.payments = append(m.payments, *p)
	return nil
}

// repoView exposes the order Repository side of memStore. It is a separate
// type because payment.Payment and Order inserts share a method name.
type repoView struct{ *memStore }

func (r repoView) Insert(_ context.Context, o *Order) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.collisions > 0 {
		r.collisions--
		return false, nil
	}
	for _, existing := range r.orders {
		if existing.OrderNumber == o.OrderNumber {
			return false, nil
		}
	}
	cp := *o
	cp.CreatedAt = time.Now()
	r.orders[o.ID] = &cp
	return true, nil
}

func (r repoView) InsertItems(_ context.Context, orderID uuid.UUID, items []Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.itemsErr != nil {
		return r.itemsErr
	}
	for i := range items {
		items[i].ID = uuid.New()
		items[i].OrderID = orderID
	}
	r.items[orderID] = append([]Item(nil), items...)
	return nil
}

func (r repoView) Get(_ context.Context, orderID uuid.UUID) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (r repoView) Items(_ context.Context, orderID uuid.UUID) ([]Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Item(nil), r.items[orderID]...), nil
}

func (r repoView) List(_ context.Context, scope Scope, f Filter) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Order
	for _, o := range r.orders {
		if scope.UserID != nil && o.UserID != *scope.UserID {
			continue
		}
		if scope.RecordedBy != nil && (o.RecordedBy == nil || *o.RecordedBy != *scope.RecordedBy) {
			continue
		}
		if f.Status != nil && o.Status != *f.Status {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

func (r repoView) Cancel(_ context.Context, orderID, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok || o.UserID != userID || o.Status != StatusPending {
		return false, nil
	}
	o.Status = StatusCancelled
	return true, nil
}

func (r repoView) UpdateStatus(_ context.Context, orderID uuid.UUID, from, to Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

func (r repoView) Assign(_ context.Context, orderID, assignee uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok || o.Status == StatusCancelled {
		return false, nil
	}
	o.AssignedTo = &assignee
	return true, nil
}

func (r repoView) UserRole(_ context.Context, userID uuid.UUID) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roles[userID], nil
}
