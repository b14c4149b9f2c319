package payment

import (
	"context"
	"errors"

	"distromart-be/internal/apperr"
	"distromart-be/internal/audit"
	"distromart-be/internal/auth"
	"distromart-be/internal/db"
	"distromart-be/internal/ledger"
	"distromart-be/internal/lock"
	"distromart-be/internal/logger"
	"distromart-be/internal/metrics"
	"distromart-be/internal/wallet"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("distromart-be/internal/payment")

// WalletDebiter draws a payment from a client's credit wallet.
type WalletDebiter interface {
	Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, ref wallet.Reference) (*wallet.Transaction, error)
}

type Service interface {
	RecordPayment(ctx context.Context, actor auth.Actor, in Input) (*Receipt, error)
	History(ctx context.Context, actor auth.Actor, orderID uuid.UUID) ([]Payment, error)
}

type Deps struct {
	Repo     Repository
	Wallet   WalletDebiter
	Tx       db.Transactor
	Locker   lock.Locker
	Recorder audit.Recorder
	Alerter  audit.Alerter
	Metrics  *metrics.Registry
}

type service struct {
	repo     Repository
	wallet   WalletDebiter
	tx       db.Transactor
	locker   lock.Locker
	recorder audit.Recorder
	alerter  audit.Alerter
	metrics  *metrics.Registry
}

func NewService(d Deps) Service {
	s := &service{
		repo:     d.Repo,
		wallet:   d.Wallet,
		tx:       d.Tx,
		locker:   d.Locker,
		recorder: d.Recorder,
		alerter:  d.Alerter,
		metrics:  d.Metrics,
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
	return s
}

func (s *service) RecordPayment(ctx context.Context, actor auth.Actor, in Input) (*Receipt, error) {
	ctx, span := tracer.Start(ctx, "payment.RecordPayment")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", in.OrderID.String()))

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "RecordPayment"),
		zap.String("actor", actor.String()),
		zap.String("order_id", in.OrderID.String()),
		zap.String("amount", in.Amount.String()),
		zap.String("payment_method", string(in.Method)),
	)

	if err := auth.Require(actor, auth.CapRecordPayment); err != nil {
		return nil, err
	}
	amount := ledger.Round(in.Amount)
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !in.Method.Valid() {
		return nil, ErrUnknownMethod
	}

	key := lock.OrderKey(in.OrderID)
	release, err := s.locker.Acquire(ctx, key)
	if err != nil {
		log.Warn("order lock not acquired", zap.Error(err))
		return nil, err
	}
	defer release()

	recordedBy := actor.ID
	var (
		receipt  *Receipt
		order    *OrderLedger
		debited  bool
		previous ledger.Snapshot
	)

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.repo.LockOrder(ctx, in.OrderID)
		if err != nil {
			return err
		}
		order = o
		previous = o.Snapshot

		if o.Status == ledger.OrderCancelled {
			return ErrOrderCancelled
		}
		pending := ledger.Round(o.Snapshot.Pending)
		if amount.GreaterThan(pending) {
			return &ExceedsPendingError{Amount: amount, Pending: pending}
		}

		p := &Payment{
			OrderID:    o.OrderID,
			Amount:     amount,
			Method:     in.Method,
			Status:     StatusCompleted,
			RecordedBy: &recordedBy,
			Notes:      in.Notes,
		}
		if err := s.repo.Insert(ctx, p); err != nil {
			return err
		}

		if in.Method.DebitsWallet() {
			if _, err := s.wallet.Debit(ctx, o.UserID, amount, wallet.Reference{
				Type:        "payment",
				ID:          p.ID,
				Description: "Payment for Order #" + o.OrderNumber,
			}); err != nil {
				return err
			}
			debited = true
		}

		history, err := s.repo.ListByOrder(ctx, o.OrderID)
		if err != nil {
			return err
		}
		entries := make([]ledger.Entry, 0, len(history))
		for _, h := range history {
			entries = append(entries, h.Entry())
		}
		snap := ledger.Recompute(o.Total, entries)

		if err := s.repo.SaveLedger(ctx, o.OrderID, snap); err != nil {
			return err
		}

		receipt = &Receipt{
			Payment:       p,
			OrderID:       o.OrderID,
			PaidAmount:    snap.Paid,
			PendingAmount: snap.Pending,
			PaymentStatus: snap.Status,
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "record payment failed")
		return nil, s.fail(ctx, log, err, order, debited, amount)
	}

	s.metrics.Inc(metrics.PaymentsRecorded)
	log.Info("payment recorded",
		zap.String("paid_before", previous.Paid.String()),
		zap.String("paid_after", receipt.PaidAmount.String()),
		zap.String("pending_after", receipt.PendingAmount.String()),
		zap.String("payment_status", string(receipt.PaymentStatus)),
	)
	s.recorder.Record(ctx, audit.Activity{
		Actor:      actor,
		Action:     "payment.recorded",
		EntityType: "order",
		EntityID:   in.OrderID.String(),
		Details: map[string]any{
			"payment_id":     receipt.Payment.ID.String(),
			"amount":         amount.StringFixed(ledger.MinorUnits),
			"payment_method": string(in.Method),
			"pending_after":  receipt.PendingAmount.StringFixed(ledger.MinorUnits),
		},
	})
	return receipt, nil
}

func (s *service) fail(ctx context.Context, log *zap.Logger, err error, order *OrderLedger, debited bool, amount decimal.Decimal) error {
	var commitErr *db.CommitError
	if errors.As(err, &commitErr) && debited && order != nil {
		s.metrics.Inc(metrics.CriticalAlertsSent)
		s.alerter.Critical(ctx, "credit wallet debited for a payment whose commit outcome is unknown", map[string]string{
			"order_id":     order.OrderID.String(),
			"order_number": order.OrderNumber,
			"client_id":    order.UserID.String(),
			"amount":       amount.StringFixed(ledger.MinorUnits),
		})
		return apperr.Persistence("payment_commit_unknown", err).WithOrder(order.OrderID.String())
	}

	switch apperr.KindOf(err) {
	case apperr.KindInternal, apperr.KindPersistence, apperr.KindConflict:
		log.Error("failed to record payment", zap.Error(err))
	default:
		s.metrics.Inc(metrics.PaymentsRejected)
		log.Info("payment rejected", zap.String("reason", err.Error()))
	}
	return db.Wrap(err, "payment_record_failed")
}

func (s *service) History(ctx context.Context, actor auth.Actor, orderID uuid.UUID) ([]Payment, error) {
	ctx, span := tracer.Start(ctx, "payment.History")
	defer span.End()

	o, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, db.Wrap(err, "payment_history_failed")
	}
	if o.UserID != actor.ID {
		if err := auth.Require(actor, auth.CapViewAnyClientFinance); err != nil {
			return nil, err
		}
	}

	payments, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, db.Wrap(err, "payment_history_failed")
	}
	return payments, nil
}
