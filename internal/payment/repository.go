package payment

import (
	"context"
	"database/sql"
	"errors"

	"distromart-be/internal/db"
	"distromart-be/internal/ledger"

	"github.com/google/uuid"
)

type Repository interface {
	Insert(ctx context.Context, p *Payment) error
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]Payment, error)
	// LockOrder row-locks the order until the surrounding transaction ends.
	LockOrder(ctx context.Context, orderID uuid.UUID) (*OrderLedger, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderLedger, error)
	SaveLedger(ctx context.Context, orderID uuid.UUID, s ledger.Snapshot) error
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, p *Payment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return db.Conn(ctx, r.db).QueryRowContext(ctx, `
		INSERT INTO payments (
			id, order_id, amount, payment_method, status, recorded_by, notes
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at
	`,
		p.ID,
		p.OrderID,
		ledger.Round(p.Amount),
		string(p.Method),
		string(p.Status),
		p.RecordedBy,
		p.Notes,
	).Scan(&p.CreatedAt)
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]Payment, error) {
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT id, order_id, amount, payment_method, status, recorded_by, notes, created_at
		FROM payments
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var p Payment
		var recordedBy uuid.NullUUID
		if err := rows.Scan(
			&p.ID, &p.OrderID, &p.Amount, &p.Method, &p.Status,
			&recordedBy, &p.Notes, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		if recordedBy.Valid {
			p.RecordedBy = &recordedBy.UUID
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const orderLedgerColumns = `
	SELECT id, order_number, user_id, status, total_amount, paid_amount, pending_amount, payment_status
	FROM orders
	WHERE id = $1
`

func (r *repository) LockOrder(ctx context.Context, orderID uuid.UUID) (*OrderLedger, error) {
	return r.loadOrder(ctx, orderID, orderLedgerColumns+" FOR UPDATE")
}

func (r *repository) GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderLedger, error) {
	return r.loadOrder(ctx, orderID, orderLedgerColumns)
}

func (r *repository) loadOrder(ctx context.Context, orderID uuid.UUID, query string) (*OrderLedger, error) {
	var o OrderLedger
	err := db.Conn(ctx, r.db).QueryRowContext(ctx, query, orderID).Scan(
		&o.OrderID,
		&o.OrderNumber,
		&o.UserID,
		&o.Status,
		&o.Total,
		&o.Snapshot.Paid,
		&o.Snapshot.Pending,
		&o.Snapshot.Status,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repository) SaveLedger(ctx context.Context, orderID uuid.UUID, s ledger.Snapshot) error {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE orders
		SET paid_amount = $2,
		    pending_amount = $3,
		    payment_status = $4,
		    updated_at = NOW()
		WHERE id = $1
	`, orderID, s.Paid, s.Pending, string(s.Status))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOrderNotFound
	}
	return nil
}
