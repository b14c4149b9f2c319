package report

import (
	"context"
	"time"

	"distromart-be/internal/auth"
	"distromart-be/internal/db"
	"distromart-be/internal/inventory"
	"distromart-be/internal/logger"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("distromart-be/internal/report")

// LowStocker lists active products at or under a stock threshold.
type LowStocker interface {
	LowStock(ctx context.Context, threshold int) ([]inventory.Product, error)
}

type Service interface {
	BrandPending(ctx context.Context, actor auth.Actor) ([]BrandPending, error)
	SalesmanPerformance(ctx context.Context, actor auth.Actor, salesmanID uuid.UUID, from, to *time.Time) (*SalesmanPerformance, error)
	Dashboard(ctx context.Context, actor auth.Actor) (*Dashboard, error)
	OverdueCollections(ctx context.Context, actor auth.Actor, asOf time.Time) ([]OverdueOrder, error)
}

type service struct {
	repo      Repository
	stock     LowStocker
	threshold int
}

func NewService(repo Repository, stock LowStocker, lowStockThreshold int) Service {
	return &service{repo: repo, stock: stock, threshold: lowStockThreshold}
}

func (s *service) BrandPending(ctx context.Context, actor auth.Actor) ([]BrandPending, error) {
	ctx, span := tracer.Start(ctx, "report.BrandPending")
	defer span.End()

	if err := auth.Require(actor, auth.CapViewReports); err != nil {
		return nil, err
	}

	lines, err := s.repo.OrderLines(ctx)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to load order lines",
			zap.String("layer", "service"),
			zap.String("method", "BrandPending"),
			zap.Error(err),
		)
		return nil, db.Wrap(err, "report_failed")
	}
	return brandPending(lines), nil
}

func (s *service) SalesmanPerformance(ctx context.Context, actor auth.Actor, salesmanID uuid.UUID, from, to *time.Time) (*SalesmanPerformance, error) {
	ctx, span := tracer.Start(ctx, "report.SalesmanPerformance")
	defer span.End()

	// a salesman may always see their own numbers
	if actor.Role != auth.RoleSalesman || actor.ID != salesmanID {
		if err := auth.Require(actor, auth.CapViewReports); err != nil {
			return nil, err
		}
	}

	rows, err := s.repo.Orders(ctx, OrderQuery{RecordedBy: &salesmanID, From: from, To: to})
	if err != nil {
		logger.FromCtx(ctx).Error("failed to load salesman orders",
			zap.String("layer", "service"),
			zap.String("method", "SalesmanPerformance"),
			zap.String("salesman_id", salesmanID.String()),
			zap.Error(err),
		)
		return nil, db.Wrap(err, "report_failed")
	}

	p := performance(salesmanID, rows)
	p.From, p.To = from, to
	return &p, nil
}

func (s *service) Dashboard(ctx context.Context, actor auth.Actor) (*Dashboard, error) {
	ctx, span := tracer.Start(ctx, "report.Dashboard")
	defer span.End()

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Dashboard"),
	)

	if err := auth.Require(actor, auth.CapViewReports); err != nil {
		return nil, err
	}

	rows, err := s.repo.Orders(ctx, OrderQuery{})
	if err != nil {
		log.Error("failed to load orders", zap.Error(err))
		return nil, db.Wrap(err, "report_failed")
	}
	clients, err := s.repo.BoundedClients(ctx)
	if err != nil {
		log.Error("failed to load client limits", zap.Error(err))
		return nil, db.Wrap(err, "report_failed")
	}
	low, err := s.stock.LowStock(ctx, s.threshold)
	if err != nil {
		log.Error("failed to load low stock products", zap.Error(err))
		return nil, db.Wrap(err, "report_failed")
	}

	d := dashboard(rows, clients, low)
	return &d, nil
}

func (s *service) OverdueCollections(ctx context.Context, actor auth.Actor, asOf time.Time) ([]OverdueOrder, error) {
	ctx, span := tracer.Start(ctx, "report.OverdueCollections")
	defer span.End()

	if err := auth.Require(actor, auth.CapViewReports); err != nil {
		return nil, err
	}

	day := truncateDay(asOf)
	rows, err := s.repo.Orders(ctx, OrderQuery{DueBefore: &day})
	if err != nil {
		logger.FromCtx(ctx).Error("failed to load overdue orders",
			zap.String("layer", "service"),
			zap.String("method", "OverdueCollections"),
			zap.Error(err),
		)
		return nil, db.Wrap(err, "report_failed")
	}
	return overdue(rows, asOf), nil
}
