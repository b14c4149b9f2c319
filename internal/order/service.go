package order

import (
	"context"
	"errors"
	"time"

	"distromart-be/internal/apperr"
	"distromart-be/internal/audit"
	"distromart-be/internal/auth"
	"distromart-be/internal/credit"
	"distromart-be/internal/db"
	"distromart-be/internal/inventory"
	"distromart-be/internal/ledger"
	"distromart-be/internal/lock"
	"distromart-be/internal/logger"
	"distromart-be/internal/metrics"
	"distromart-be/internal/payment"
	"distromart-be/internal/utils"
	"distromart-be/internal/wallet"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("distromart-be/internal/order")

const orderNumberAttempts = 3

// ProfileLocker loads a client's financial profile under a row lock.
type ProfileLocker interface {
	LockProfile(ctx context.Context, clientID uuid.UUID) (*credit.Profile, error)
}

type WalletStore interface {
	GetForUpdate(ctx context.Context, userID uuid.UUID, required decimal.Decimal) (*wallet.Balance, error)
	Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, ref wallet.Reference) (*wallet.Transaction, error)
}

// Catalog supplies the price and availability an order is charged at.
type Catalog interface {
	ProductsForOrder(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]inventory.Product, error)
}

type StockDeducter interface {
	DeductForOrder(ctx context.Context, productID uuid.UUID, qty int, reason string, actorID *uuid.UUID) (*inventory.Log, error)
}

type PaymentWriter interface {
	Insert(ctx context.Context, p *payment.Payment) error
}

type Service interface {
	PlaceOrder(ctx context.Context, actor auth.Actor, draft Draft) (*Order, error)
	CreateOrderForClient(ctx context.Context, actor auth.Actor, clientID uuid.UUID, draft Draft) (*Order, error)
	CancelOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*Order, error)
	UpdateStatus(ctx context.Context, actor auth.Actor, orderID uuid.UUID, status Status) (*Order, error)
	Assign(ctx context.Context, actor auth.Actor, orderID, subAdminID uuid.UUID) (*Order, error)
	Get(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*Order, error)
	List(ctx context.Context, actor auth.Actor, f Filter) ([]Order, error)
}

type Deps struct {
	Repo     Repository
	Profiles ProfileLocker
	Wallet   WalletStore
	Catalog  Catalog
	Stock    StockDeducter
	Payments PaymentWriter
	Tx       db.Transactor
	Locker   lock.Locker
	Recorder audit.Recorder
	Alerter  audit.Alerter
	Metrics  *metrics.Registry
	Now      func() time.Time
}

type service struct {
	repo     Repository
	profiles ProfileLocker
	wallet   WalletStore
	catalog  Catalog
	stock    StockDeducter
	payments PaymentWriter
	tx       db.Transactor
	locker   lock.Locker
	recorder audit.Recorder
	alerter  audit.Alerter
	metrics  *metrics.Registry
	now      func() time.Time
}

func NewService(d Deps) Service {
	s := &service{
		repo:     d.Repo,
		profiles: d.Profiles,
		wallet:   d.Wallet,
		catalog:  d.Catalog,
		stock:    d.Stock,
		payments: d.Payments,
		tx:       d.Tx,
		locker:   d.Locker,
		recorder: d.Recorder,
		alerter:  d.Alerter,
		metrics:  d.Metrics,
		now:      d.Now,
	}
	if s.recorder == nil {
		s.recorder = audit.Nop{}
	}
	if s.alerter == nil {
		s.alerter = audit.LogAlerter{}
	}
	if s.metrics == nil {
		s.metrics = metrics.Default
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *service) PlaceOrder(ctx context.Context, actor auth.Actor, draft Draft) (*Order, error) {
	ctx, span := tracer.Start(ctx, "order.PlaceOrder")
	defer span.End()

	if err := auth.Require(actor, auth.CapPlaceOwnOrder); err != nil {
		return nil, err
	}
	if draft.PaymentMethod == "" {
		draft.PaymentMethod = payment.MethodCash
	}
	return s.place(ctx, actor, actor.ID, ViaSelfOrder, draft)
}

func (s *service) CreateOrderForClient(ctx context.Context, actor auth.Actor, clientID uuid.UUID, draft Draft) (*Order, error) {
	ctx, span := tracer.Start(ctx, "order.CreateOrderForClient")
	defer span.End()

	if err := auth.Require(actor, auth.CapCreateOrderForClient); err != nil {
		return nil, err
	}
	if draft.PaymentMethod == "" {
		draft.PaymentMethod = payment.MethodCash
	}
	return s.place(ctx, actor, clientID, ViaSalesman, draft)
}

// checkDraft rejects drafts that are malformed regardless of catalog state.
func checkDraft(draft Draft) error {
	if len(draft.Items) == 0 {
		return ErrEmptyOrder
	}
	if !draft.PaymentMethod.Valid() {
		return payment.ErrUnknownMethod
	}
	for _, di := range draft.Items {
		if di.Quantity <= 0 {
			return ErrInvalidQuantity
		}
	}
	if draft.InitialPayment != nil && draft.InitialPayment.IsNegative() {
		return ErrInvalidInitialPayment
	}
	return nil
}

// priced is a draft valued at catalog prices.
type priced struct {
	items []Item
	total decimal.Decimal
	split ledger.Snapshot
}

// price values the draft from the catalog. Must run inside the placement tx
// so the share locks on the products hold until commit.
func (s *service) price(ctx context.Context, draft Draft) (*priced, error) {
	ids := make([]uuid.UUID, 0, len(draft.Items))
	for _, di := range draft.Items {
		ids = append(ids, di.ProductID)
	}
	catalog, err := s.catalog.ProductsForOrder(ctx, ids)
	if err != nil {
		return nil, err
	}

	p := &priced{items: make([]Item, 0, len(draft.Items)), total: decimal.Zero}
	for _, di := range draft.Items {
		prod, ok := catalog[di.ProductID]
		if !ok {
			return nil, &UnknownProductError{ProductID: di.ProductID}
		}
		if !prod.IsActive {
			return nil, &InactiveProductError{ProductID: di.ProductID, Name: prod.Name}
		}
		unit := ledger.Round(prod.Price)
		if di.UnitPrice != nil && !ledger.Round(*di.UnitPrice).Equal(unit) {
			return nil, &PriceChangedError{
				ProductID: di.ProductID,
				Quoted:    ledger.Round(*di.UnitPrice),
				Current:   unit,
			}
		}
		line := ledger.Round(unit.Mul(decimal.NewFromInt(int64(di.Quantity))))
		p.items = append(p.items, Item{
			ProductID: di.ProductID,
			Quantity:  di.Quantity,
			UnitPrice: unit,
			LineTotal: line,
		})
		p.total = p.total.Add(line)
	}

	if draft.Total != nil && !ledger.Round(*draft.Total).Equal(p.total) {
		return nil, &TotalMismatchError{Declared: ledger.Round(*draft.Total), Computed: p.total}
	}

	paid := p.total
	if draft.InitialPayment != nil {
		paid = ledger.Round(*draft.InitialPayment)
		if paid.GreaterThan(p.total) {
			return nil, ErrInvalidInitialPayment
		}
		if draft.PaymentMethod.DebitsWallet() && !paid.Equal(p.total) {
			return nil, ErrWalletNeedsFullAmount
		}
	}
	p.split = ledger.Split(p.total, paid)
	return p, nil
}

func (s *service) place(ctx context.Context, actor auth.Actor, clientID uuid.UUID, via CreatedVia, draft Draft) (*Order, error) {
	timer := metrics.StartTimer()
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "place"),
		zap.String("actor", actor.String()),
		zap.String("client_id", clientID.String()),
		zap.String("created_via", string(via)),
	)

	if err := checkDraft(draft); err != nil {
		s.metrics.Inc(metrics.OrdersRejected)
		log.Info("order draft rejected", zap.String("reason", err.Error()))
		return nil, err
	}

	key := lock.ClientKey(clientID)
	release, err := s.locker.Acquire(ctx, key)
	if err != nil {
		s.metrics.Inc(metrics.OrdersConflicted)
		log.Warn("client lock not acquired", zap.Error(err))
		return nil, err
	}
	defer release()

	o := &Order{
		ID:                     uuid.New(),
		UserID:                 clientID,
		Status:                 StatusPending,
		CreatedVia:             via,
		PaymentMethod:          draft.PaymentMethod,
		Notes:                  draft.Notes,
		InitialPaymentRequired: draft.InitialPaymentRequired,
		InitialPaymentDueDate:  dueDate(draft.InitialPaymentDueDate),
		PendingPaymentDueDate:  dueDate(draft.PendingPaymentDueDate),
	}
	if via != ViaSelfOrder {
		recorder := actor.ID
		o.RecordedBy = &recorder
	}

	debited := false
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		profile, err := s.profiles.LockProfile(ctx, clientID)
		if err != nil {
			return err
		}
		if !auth.Role(profile.Role).IsClient() {
			return ErrNotAClient
		}

		p, err := s.price(ctx, draft)
		if err != nil {
			return err
		}
		o.Subtotal = p.total
		o.TotalAmount = p.total
		o.apply(p.split)
		if o.InitialPaymentRequired != nil {
			st := "pending"
			if p.split.Paid.GreaterThanOrEqual(ledger.Round(*o.InitialPaymentRequired)) {
				st = "paid"
			}
			o.InitialPaymentStatus = &st
		}
		log = log.With(
			zap.String("total", p.total.String()),
			zap.String("paid", p.split.Paid.String()),
			zap.String("pending", p.split.Pending.String()),
		)

		if o.PaymentMethod.DebitsWallet() {
			bal, err := s.wallet.GetForUpdate(ctx, clientID, p.total)
			if err != nil {
				return err
			}
			if bal.Balance.LessThan(p.total) {
				return &wallet.InsufficientCreditError{Balance: bal.Balance, Required: p.total}
			}
		}

		if p.split.Pending.IsPositive() {
			if err := credit.Check(*profile, p.total, p.split.Paid); err != nil {
				return err
			}
		}

		if err := s.insertWithNumber(ctx, o); err != nil {
			return err
		}

		if err := s.repo.InsertItems(ctx, o.ID, p.items); err != nil {
			return err
		}
		o.Items = p.items

		reason := "Order #" + o.OrderNumber
		for _, it := range p.items {
			if _, err := s.stock.DeductForOrder(ctx, it.ProductID, it.Quantity, reason, &actor.ID); err != nil {
				return err
			}
		}

		if p.split.Paid.IsPositive() {
			recordedBy := actor.ID
			if err := s.payments.Insert(ctx, &payment.Payment{
				OrderID:    o.ID,
				Amount:     p.split.Paid,
				Method:     o.PaymentMethod,
				Status:     payment.StatusCompleted,
				RecordedBy: &recordedBy,
				Notes:      "Initial payment for Order #" + o.OrderNumber,
			}); err != nil {
				return err
			}
		}

		if o.PaymentMethod.DebitsWallet() {
			if _, err := s.wallet.Debit(ctx, clientID, p.total, wallet.Reference{
				Type:        "order",
				ID:          o.ID,
				Description: reason,
			}); err != nil {
				return err
			}
			debited = true
		}
		return nil
	})
	if err != nil {
		span := trace.SpanFromContext(ctx)
		span.RecordError(err)
		span.SetStatus(codes.Error, "place order failed")
		return nil, s.placeFailed(ctx, log, err, o, debited)
	}

	s.metrics.Inc(metrics.OrdersPlaced)
	log.Info("order placed",
		zap.String("order_id", o.ID.String()),
		zap.String("order_number", o.OrderNumber),
		zap.String("payment_status", string(o.PaymentStatus)),
		zap.Duration("duration", timer.Duration()),
	)
	s.recorder.Record(ctx, audit.Activity{
		Actor:      actor,
		Action:     "order.placed",
		EntityType: "order",
		EntityID:   o.ID.String(),
		Details: map[string]any{
			"order_number":   o.OrderNumber,
			"client_id":      clientID.String(),
			"total_amount":   o.TotalAmount.StringFixed(ledger.MinorUnits),
			"paid_amount":    o.PaidAmount.StringFixed(ledger.MinorUnits),
			"pending_amount": o.PendingAmount.StringFixed(ledger.MinorUnits),
			"created_via":    string(via),
		},
	})
	return o, nil
}

// insertWithNumber allocates a fresh order number, retrying on collision.
func (s *service) insertWithNumber(ctx context.Context, o *Order) error {
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		o.OrderNumber = utils.GenerateOrderNumber(s.now())
		ok, err := s.repo.Insert(ctx, o)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		logger.FromCtx(ctx).Warn("order number collision",
			zap.String("order_number", o.OrderNumber),
			zap.Int("attempt", attempt+1),
		)
	}
	return ErrOrderNumberExhausted
}

func (s *service) placeFailed(ctx context.Context, log *zap.Logger, err error, o *Order, debited bool) error {
	var commitErr *db.CommitError
	if errors.As(err, &commitErr) {
		log.Error("order commit outcome unknown",
			zap.String("order_id", o.ID.String()),
			zap.String("order_number", o.OrderNumber),
			zap.Error(err),
		)
		if debited {
			s.metrics.Inc(metrics.CriticalAlertsSent)
			s.alerter.Critical(ctx, "credit wallet debited for an order whose commit outcome is unknown", map[string]string{
				"order_id":     o.ID.String(),
				"order_number": o.OrderNumber,
				"client_id":    o.UserID.String(),
				"amount":       o.TotalAmount.StringFixed(ledger.MinorUnits),
			})
		}
		return apperr.Persistence("order_commit_unknown", err).WithOrder(o.ID.String())
	}

	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindInsufficientFunds, apperr.KindNotFound, apperr.KindAuthorization:
		s.metrics.Inc(metrics.OrdersRejected)
		log.Info("order rejected", zap.String("reason", err.Error()))
		return err
	}

	if db.IsConflict(err) || apperr.KindOf(err) == apperr.KindConflict {
		s.metrics.Inc(metrics.OrdersConflicted)
	}
	log.Error("failed to place order", zap.Error(err))
	return db.Wrap(err, "order_place_failed")
}

func (s *service) CancelOrder(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*Order, error) {
	ctx, span := tracer.Start(ctx, "order.CancelOrder")
	defer span.End()

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CancelOrder"),
		zap.String("order_id", orderID.String()),
	)

	if actor.Role == "" {
		return nil, auth.ErrUnauthenticated
	}

	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, db.Wrap(err, "order_load_failed")
	}
	if o.UserID != actor.ID {
		return nil, ErrNotOwner
	}
	if o.Status != StatusPending {
		return nil, &NotCancellableError{Status: o.Status}
	}

	ok, err := s.repo.Cancel(ctx, orderID, actor.ID)
	if err != nil {
		log.Error("failed to cancel order", zap.Error(err))
		return nil, db.Wrap(err, "order_cancel_failed")
	}
	if !ok {
		// status moved between the read and the conditional update
		current, err := s.repo.Get(ctx, orderID)
		if err != nil {
			return nil, db.Wrap(err, "order_load_failed")
		}
		return nil, &NotCancellableError{Status: current.Status}
	}

	o.Status = StatusCancelled
	s.metrics.Inc(metrics.OrdersCancelled)
	log.Info("order cancelled")
	s.recorder.Record(ctx, audit.Activity{
		Actor:      actor,
		Action:     "order.cancelled",
		EntityType: "order",
		EntityID:   orderID.String(),
		Details:    map[string]any{"order_number": o.OrderNumber},
	})
	return o, nil
}

func (s *service) UpdateStatus(ctx context.Context, actor auth.Actor, orderID uuid.UUID, status Status) (*Order, error) {
	ctx, span := tracer.Start(ctx, "order.UpdateStatus")
	defer span.End()
	span.SetAttributes(attribute.String("status", string(status)))

	if err := auth.Require(actor, auth.CapManageOrders); err != nil {
		return nil, err
	}

	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, db.Wrap(err, "order_load_failed")
	}
	if actor.Role == auth.RoleSubAdmin && (o.AssignedTo == nil || *o.AssignedTo != actor.ID) {
		return nil, ErrNotAssigned
	}
	if next[o.Status] != status {
		return nil, &TransitionError{From: o.Status, To: status}
	}

	ok, err := s.repo.UpdateStatus(ctx, orderID, o.Status, status)
	if err != nil {
		return nil, db.Wrap(err, "order_status_failed")
	}
	if !ok {
		return nil, apperr.Conflict("order_status_changed", errors.New("order status changed concurrently"))
	}

	from := o.Status
	o.Status = status
	logger.FromCtx(ctx).Info("order status updated",
		zap.String("order_id", orderID.String()),
		zap.String("from", string(from)),
		zap.String("to", string(status)),
	)
	s.recorder.Record(ctx, audit.Activity{
		Actor:      actor,
		Action:     "order.status_updated",
		EntityType: "order",
		EntityID:   orderID.String(),
		Details:    map[string]any{"from": string(from), "to": string(status)},
	})
	return o, nil
}

func (s *service) Assign(ctx context.Context, actor auth.Actor, orderID, subAdminID uuid.UUID) (*Order, error) {
	ctx, span := tracer.Start(ctx, "order.Assign")
	defer span.End()

	if err := auth.Require(actor, auth.CapAssignOrders); err != nil {
		return nil, err
	}

	role, err := s.repo.UserRole(ctx, subAdminID)
	if err != nil {
		return nil, db.Wrap(err, "order_assign_failed")
	}
	if auth.Role(role) != auth.RoleSubAdmin {
		return nil, ErrInvalidAssignee
	}

	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, db.Wrap(err, "order_load_failed")
	}
	if o.Status == StatusCancelled {
		return nil, &TransitionError{From: o.Status, To: o.Status}
	}

	ok, err := s.repo.Assign(ctx, orderID, subAdminID)
	if err != nil {
		return nil, db.Wrap(err, "order_assign_failed")
	}
	if !ok {
		return nil, apperr.Conflict("order_status_changed", errors.New("order cancelled concurrently"))
	}

	o.AssignedTo = &subAdminID
	s.recorder.Record(ctx, audit.Activity{
		Actor:      actor,
		Action:     "order.assigned",
		EntityType: "order",
		EntityID:   orderID.String(),
		Details:    map[string]any{"assigned_to": subAdminID.String()},
	})
	return o, nil
}

func canView(actor auth.Actor, o *Order) bool {
	switch {
	case o.UserID == actor.ID:
		return true
	case o.RecordedBy != nil && *o.RecordedBy == actor.ID:
		return true
	case o.AssignedTo != nil && *o.AssignedTo == actor.ID:
		return true
	}
	return actor.Can(auth.CapViewAllOrders)
}

func (s *service) Get(ctx context.Context, actor auth.Actor, orderID uuid.UUID) (*Order, error) {
	ctx, span := tracer.Start(ctx, "order.Get")
	defer span.End()

	if actor.Role == "" {
		return nil, auth.ErrUnauthenticated
	}

	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, db.Wrap(err, "order_load_failed")
	}
	if !canView(actor, o) {
		// do not reveal that the order exists
		return nil, ErrOrderNotFound
	}

	items, err := s.repo.Items(ctx, orderID)
	if err != nil {
		return nil, db.Wrap(err, "order_load_failed")
	}
	o.Items = items
	return o, nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, f Filter) ([]Order, error) {
	ctx, span := tracer.Start(ctx, "order.List")
	defer span.End()

	var scope Scope
	switch {
	case actor.Role == "":
		return nil, auth.ErrUnauthenticated
	case actor.Role.IsClient():
		scope.UserID = &actor.ID
	case actor.Role == auth.RoleSalesman:
		scope.RecordedBy = &actor.ID
	case actor.Can(auth.CapViewAllOrders):
	default:
		return nil, apperr.Forbidden("role %s may not list orders", actor.Role)
	}

	orders, err := s.repo.List(ctx, scope, f)
	if err != nil {
		return nil, db.Wrap(err, "order_list_failed")
	}
	return orders, nil
}
