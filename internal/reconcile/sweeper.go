// Package reconcile periodically checks every order's stored ledger against
// its payment history and repairs rows that drifted.
package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"distromart-be/internal/audit"
	"distromart-be/internal/db"
	"distromart-be/internal/ledger"
	"distromart-be/internal/lock"
	"distromart-be/internal/logger"
	"distromart-be/internal/metrics"
	"distromart-be/internal/payment"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("distromart-be/internal/reconcile")

// LedgerStore is the order ledger access the repair path needs. The payment
// repository satisfies it.
type LedgerStore interface {
	LockOrder(ctx context.Context, orderID uuid.UUID) (*payment.OrderLedger, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]payment.Payment, error)
	SaveLedger(ctx context.Context, orderID uuid.UUID, s ledger.Snapshot) error
}

type Deps struct {
	Repo    Repository
	Ledgers LedgerStore
	Tx      db.Transactor
	Locker  lock.Locker
	Alerter audit.Alerter
	Metrics *metrics.Registry
}

type Sweeper struct {
	repo    Repository
	ledgers LedgerStore
	tx      db.Transactor
	locker  lock.Locker
	alerter audit.Alerter
	metrics *metrics.Registry

	cron    *cron.Cron
	running sync.Mutex
}

func NewSweeper(d Deps) *Sweeper {
	s := &Sweeper{
		repo:    d.Repo,
		ledgers: d.Ledgers,
		tx:      d.Tx,
		locker:  d.Locker,
		alerter: d.Alerter,
		metrics: d.Metrics,
	}
	if s.alerter == nil {
		s.alerter = audit.LogAlerter{}
	}
	if s.metrics == nil {
		s.metrics = metrics.Default
	}
	return s
}

// Run scans every order once. Drifted ledgers are recomputed under the
// order lock; orders without items are only reported.
func (s *Sweeper) Run(ctx context.Context) (*Result, error) {
	ctx, span := tracer.Start(ctx, "reconcile.Run")
	defer span.End()

	// overlapping cron ticks skip instead of queueing
	if !s.running.TryLock() {
		return nil, ErrAlreadyRunning
	}
	defer s.running.Unlock()

	timer := metrics.StartTimer()
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "reconcile"),
		zap.String("method", "Run"),
	)

	candidates, err := s.repo.Candidates(ctx)
	if err != nil {
		log.Error("failed to load ledger candidates", zap.Error(err))
		return nil, db.Wrap(err, "reconcile_failed")
	}

	res := &Result{Scanned: len(candidates), Repaired: []Repair{}, Failed: []uuid.UUID{}, MissingItems: []uuid.UUID{}}
	for _, c := range candidates {
		if c.ItemCount == 0 {
			res.MissingItems = append(res.MissingItems, c.OrderID)
			log.Warn("order has no items",
				zap.String("order_id", c.OrderID.String()),
				zap.String("order_number", c.OrderNumber),
			)
		}
		if c.Stored.Equal(c.Expected()) {
			continue
		}

		repair, err := s.repair(ctx, c.OrderID)
		if err != nil {
			res.Failed = append(res.Failed, c.OrderID)
			log.Error("failed to repair order ledger",
				zap.String("order_id", c.OrderID.String()),
				zap.Error(err),
			)
			continue
		}
		if repair != nil {
			res.Repaired = append(res.Repaired, *repair)
		}
	}

	if len(res.MissingItems) > 0 {
		s.alerter.Critical(ctx, "orders exist without items", map[string]string{
			"count": fmt.Sprint(len(res.MissingItems)),
		})
	}

	log.Info("reconciliation finished",
		zap.Int("scanned", res.Scanned),
		zap.Int("repaired", len(res.Repaired)),
		zap.Int("failed", len(res.Failed)),
		zap.Int("missing_items", len(res.MissingItems)),
		zap.Duration("duration", timer.Duration()),
	)
	return res, nil
}

// repair recomputes one order from its full payment history. It returns nil
// when the row turned out to be consistent once locked.
func (s *Sweeper) repair(ctx context.Context, orderID uuid.UUID) (*Repair, error) {
	key := lock.OrderKey(orderID)
	release, err := s.locker.Acquire(ctx, key)
	if err != nil {
		return nil, err
	}
	defer release()

	var out *Repair
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		o, err := s.ledgers.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		history, err := s.ledgers.ListByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		entries := make([]ledger.Entry, 0, len(history))
		for _, p := range history {
			entries = append(entries, p.Entry())
		}
		fresh := ledger.Recompute(o.Total, entries)
		if o.Snapshot.Equal(fresh) {
			return nil
		}
		if err := s.ledgers.SaveLedger(ctx, orderID, fresh); err != nil {
			return err
		}
		out = &Repair{OrderID: orderID, OrderNumber: o.OrderNumber, Before: o.Snapshot, After: fresh}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if out != nil {
		s.metrics.Inc(metrics.LedgerRepaired)
		logger.FromCtx(ctx).Warn("order ledger repaired",
			zap.String("order_id", orderID.String()),
			zap.String("order_number", out.OrderNumber),
			zap.String("paid_before", out.Before.Paid.String()),
			zap.String("paid_after", out.After.Paid.String()),
			zap.String("pending_before", out.Before.Pending.String()),
			zap.String("pending_after", out.After.Pending.String()),
			zap.String("status_before", string(out.Before.Status)),
			zap.String("status_after", string(out.After.Status)),
		)
	}
	return out, nil
}

// Start schedules Run on spec, a six-field cron expression with seconds.
func (s *Sweeper) Start(ctx context.Context, spec string) error {
	c := cron.New(cron.WithSeconds())
	_, err := c.AddFunc(spec, func() {
		runCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		defer cancel()
		if _, err := s.Run(runCtx); err != nil {
			logger.FromCtx(ctx).Warn("scheduled reconciliation skipped", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add reconcile job: %w", err)
	}
	s.cron = c
	c.Start()
	logger.FromCtx(ctx).Info("reconciliation scheduled", zap.String("schedule", spec))
	return nil
}

// Stop waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}
