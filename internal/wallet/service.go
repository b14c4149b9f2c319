package wallet

import (
	"context"

	"distromart-be/internal/auth"
	"distromart-be/internal/db"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("distromart-be/internal/wallet")

const defaultHistoryLimit = 50

type Statement struct {
	Balance      *Balance      `json:"balance"`
	Transactions []Transaction `json:"transactions"`
}

type Service interface {
	Statement(ctx context.Context, actor auth.Actor, userID uuid.UUID) (*Statement, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Statement(ctx context.Context, actor auth.Actor, userID uuid.UUID) (*Statement, error) {
	ctx, span := tracer.Start(ctx, "wallet.Statement")
	defer span.End()

	if actor.ID != userID {
		if err := auth.Require(actor, auth.CapViewAnyClientFinance); err != nil {
			return nil, err
		}
	}

	b, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, db.Wrap(err, "wallet_load_failed")
	}
	txs, err := s.repo.Transactions(ctx, userID, defaultHistoryLimit)
	if err != nil {
		return nil, db.Wrap(err, "wallet_load_failed")
	}
	return &Statement{Balance: b, Transactions: txs}, nil
}
