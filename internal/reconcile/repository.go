package reconcile

import (
	"context"
	"database/sql"

	"distromart-be/internal/db"
)

type Repository interface {
	Candidates(ctx context.Context) ([]Candidate, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Candidates(ctx context.Context) ([]Candidate, error) {
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT o.id, o.order_number, o.total_amount,
			o.paid_amount, o.pending_amount, o.payment_status,
			COALESCE((
				SELECT SUM(p.amount) FROM payments p
				WHERE p.order_id = o.id AND p.status = 'completed'
			), 0),
			(SELECT COUNT(*) FROM order_items oi WHERE oi.order_id = o.id)
		FROM orders o
		ORDER BY o.created_at ASC, o.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(
			&c.OrderID, &c.OrderNumber, &c.Total,
			&c.Stored.Paid, &c.Stored.Pending, &c.Stored.Status,
			&c.Collected, &c.ItemCount,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
