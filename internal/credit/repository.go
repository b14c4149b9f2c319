package credit

import (
	"context"
	"database/sql"
	"errors"

	"distromart-be/internal/db"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Repository interface {
	GetProfile(ctx context.Context, clientID uuid.UUID) (*Profile, error)
	// LockProfile row-locks the client until the surrounding transaction
	// ends, so concurrent pending-limit decisions for one client serialize.
	LockProfile(ctx context.Context, clientID uuid.UUID) (*Profile, error)
	UpdateLimit(ctx context.Context, clientID uuid.UUID, limit PendingLimit) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const outstandingQuery = `
	SELECT COALESCE(SUM(pending_amount), 0), COUNT(*)
	FROM orders
	WHERE user_id = $1
	  AND status <> 'cancelled'
	  AND payment_status <> 'paid'
`

func (r *repository) GetProfile(ctx context.Context, clientID uuid.UUID) (*Profile, error) {
	return r.loadProfile(ctx, clientID, `
		SELECT id, role, pending_amount_limit
		FROM users
		WHERE id = $1
	`)
}

func (r *repository) LockProfile(ctx context.Context, clientID uuid.UUID) (*Profile, error) {
	return r.loadProfile(ctx, clientID, `
		SELECT id, role, pending_amount_limit
		FROM users
		WHERE id = $1
		FOR UPDATE
	`)
}

func (r *repository) loadProfile(ctx context.Context, clientID uuid.UUID, query string) (*Profile, error) {
	conn := db.Conn(ctx, r.db)

	var p Profile
	err := conn.QueryRowContext(ctx, query, clientID).Scan(&p.ClientID, &p.Role, &p.Limit)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, err
	}

	var pending decimal.Decimal
	if err := conn.QueryRowContext(ctx, outstandingQuery, clientID).Scan(&pending, &p.OutstandingOrders); err != nil {
		return nil, err
	}
	p.CurrentPending = pending

	return &p, nil
}

func (r *repository) UpdateLimit(ctx context.Context, clientID uuid.UUID, limit PendingLimit) error {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE users
		SET pending_amount_limit = $1, updated_at = NOW()
		WHERE id = $2
	`, limit, clientID)
	if err != nil {
		return err
	}

	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrClientNotFound
	}
	return nil
}
