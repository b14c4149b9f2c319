package credit

import (
	"context"

	"distromart-be/internal/apperr"
	"distromart-be/internal/audit"
	"distromart-be/internal/auth"
	"distromart-be/internal/db"
	"distromart-be/internal/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("distromart-be/internal/credit")

type Service interface {
	ValidatePendingLimit(ctx context.Context, actor auth.Actor, clientID uuid.UUID, orderTotal, paidNow decimal.Decimal) (*Result, error)
	FinancialStatus(ctx context.Context, actor auth.Actor, clientID uuid.UUID) (*FinancialStatus, error)
	SetPendingLimit(ctx context.Context, actor auth.Actor, clientID uuid.UUID, limit PendingLimit) error
}

type service struct {
	repo     Repository
	recorder audit.Recorder
}

func NewService(repo Repository, recorder audit.Recorder) Service {
	return &service{repo: repo, recorder: recorder}
}

func authorizeRead(actor auth.Actor, clientID uuid.UUID) error {
	if actor.ID == clientID && actor.Role.IsClient() {
		return nil
	}
	return auth.Require(actor, auth.CapViewAnyClientFinance)
}

func (s *service) ValidatePendingLimit(
	ctx context.Context,
	actor auth.Actor,
	clientID uuid.UUID,
	orderTotal, paidNow decimal.Decimal,
) (*Result, error) {
	ctx, span := tracer.Start(ctx, "credit.ValidatePendingLimit")
	defer span.End()

	if err := authorizeRead(actor, clientID); err != nil {
		return nil, err
	}

	profile, err := s.repo.GetProfile(ctx, clientID)
	if err != nil {
		return nil, db.Wrap(err, "profile_load_failed")
	}

	res := &Result{
		Valid:          true,
		CurrentPending: profile.CurrentPending,
		NewPending:     NewPending(orderTotal, paidNow),
		Limit:          profile.Limit,
	}

	if err := Check(*profile, orderTotal, paidNow); err != nil {
		if apperr.KindOf(err) != apperr.KindValidation {
			return nil, err
		}
		res.Valid = false
		res.Reason = err.Error()
	}

	span.SetAttributes(attribute.Bool("valid", res.Valid))
	return res, nil
}

func (s *service) FinancialStatus(ctx context.Context, actor auth.Actor, clientID uuid.UUID) (*FinancialStatus, error) {
	ctx, span := tracer.Start(ctx, "credit.FinancialStatus")
	defer span.End()

	if err := authorizeRead(actor, clientID); err != nil {
		return nil, err
	}

	profile, err := s.repo.GetProfile(ctx, clientID)
	if err != nil {
		return nil, db.Wrap(err, "profile_load_failed")
	}

	status := &FinancialStatus{
		ClientID:          profile.ClientID,
		Limit:             profile.Limit,
		CurrentPending:    profile.CurrentPending,
		OutstandingOrders: profile.OutstandingOrders,
	}
	if remaining, ok := profile.Remaining(); ok {
		status.RemainingLimit = &remaining
	}
	return status, nil
}

func (s *service) SetPendingLimit(ctx context.Context, actor auth.Actor, clientID uuid.UUID, limit PendingLimit) error {
	ctx, span := tracer.Start(ctx, "credit.SetPendingLimit")
	defer span.End()

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "SetPendingLimit"),
		zap.String("client_id", clientID.String()),
		zap.String("limit", limit.String()),
	)

	if err := auth.Require(actor, auth.CapSetPendingLimit); err != nil {
		return err
	}
	if limit.IsBounded() && limit.Amount().IsNegative() {
		return apperr.Validation("invalid_limit", "pending limit must not be negative")
	}

	profile, err := s.repo.GetProfile(ctx, clientID)
	if err != nil {
		return db.Wrap(err, "profile_load_failed")
	}
	if !auth.Role(profile.Role).IsClient() {
		return ErrNotAClient
	}

	if err := s.repo.UpdateLimit(ctx, clientID, limit); err != nil {
		log.Error("failed to update pending limit", zap.Error(err))
		return db.Wrap(err, "limit_update_failed")
	}

	log.Info("pending limit updated")
	s.recorder.Record(ctx, audit.Activity{
		Actor:      actor,
		Action:     "client.pending_limit_set",
		EntityType: "user",
		EntityID:   clientID.String(),
		Details:    map[string]any{"limit": limit.String()},
	})
	return nil
}

