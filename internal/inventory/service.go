package inventory

import (
	"context"
	"strings"

	"distromart-be/internal/audit"
	"distromart-be/internal/auth"
	"distromart-be/internal/db"
	"distromart-be/internal/logger"
	"distromart-be/internal/metrics"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("distromart-be/internal/inventory")

const defaultHistoryLimit = 100

type Service interface {
	AdjustStock(ctx context.Context, actor auth.Actor, in Adjustment) (*Log, error)
	History(ctx context.Context, actor auth.Actor, productID uuid.UUID, limit int) ([]Log, error)
}

type service struct {
	repo     Repository
	tx       db.Transactor
	recorder audit.Recorder
	metrics  *metrics.Registry
}

// NewService falls back to metrics.Default when reg is nil.
func NewService(repo Repository, tx db.Transactor, recorder audit.Recorder, reg *metrics.Registry) Service {
	if reg == nil {
		reg = metrics.Default
	}
	return &service{repo: repo, tx: tx, recorder: recorder, metrics: reg}
}

func (s *service) AdjustStock(ctx context.Context, actor auth.Actor, in Adjustment) (*Log, error) {
	ctx, span := tracer.Start(ctx, "inventory.AdjustStock")
	defer span.End()
	span.SetAttributes(
		attribute.String("product_id", in.ProductID.String()),
		attribute.Int("delta", in.Delta),
	)

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "AdjustStock"),
		zap.String("product_id", in.ProductID.String()),
		zap.Int("delta", in.Delta),
	)

	if err := auth.Require(actor, auth.CapAdjustStock); err != nil {
		return nil, err
	}
	if in.Delta == 0 {
		return nil, ErrZeroDelta
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}

	actorID := actor.ID
	var entry *Log
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		entry, err = s.repo.Adjust(ctx, in.ProductID, in.Delta, reason, &actorID)
		return err
	})
	if err != nil {
		log.Warn("stock adjustment failed", zap.Error(err))
		return nil, db.Wrap(err, "stock_adjust_failed")
	}

	s.metrics.Inc(metrics.StockAdjusted)
	log.Info("stock adjusted",
		zap.Int("previous", entry.PreviousQuantity),
		zap.Int("new", entry.NewQuantity),
	)
	s.recorder.Record(ctx, audit.Activity{
		Actor:      actor,
		Action:     "inventory.adjusted",
		EntityType: "product",
		EntityID:   in.ProductID.String(),
		Details: map[string]any{
			"previous": entry.PreviousQuantity,
			"new":      entry.NewQuantity,
			"reason":   reason,
		},
	})
	return entry, nil
}

func (s *service) History(ctx context.Context, actor auth.Actor, productID uuid.UUID, limit int) ([]Log, error) {
	ctx, span := tracer.Start(ctx, "inventory.History")
	defer span.End()

	if err := auth.Require(actor, auth.CapAdjustStock); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = defaultHistoryLimit
	}

	logs, err := s.repo.History(ctx, productID, limit)
	if err != nil {
		return nil, db.Wrap(err, "stock_history_failed")
	}
	return logs, nil
}
