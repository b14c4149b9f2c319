package report

import (
	"context"
	"database/sql"
	"fmt"

	"distromart-be/internal/db"
	"distromart-be/internal/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Repository interface {
	Orders(ctx context.Context, q OrderQuery) ([]OrderRow, error)
	OrderLines(ctx context.Context) ([]OrderLine, error)
	BoundedClients(ctx context.Context) ([]ClientLimit, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Orders(ctx context.Context, q OrderQuery) ([]OrderRow, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Orders"),
	)

	query := `
		SELECT id, order_number, user_id, recorded_by, status, payment_status,
			total_amount, paid_amount, pending_amount, pending_payment_due_date, created_at
		FROM orders
		WHERE 1=1`
	args := []any{}
	argIndex := 1

	if q.RecordedBy != nil {
		query += fmt.Sprintf(" AND recorded_by = $%d", argIndex)
		args = append(args, *q.RecordedBy)
		argIndex++
	}
	if q.From != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIndex)
		args = append(args, *q.From)
		argIndex++
	}
	if q.To != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIndex)
		args = append(args, *q.To)
		argIndex++
	}
	if q.DueBefore != nil {
		query += fmt.Sprintf(" AND pending_payment_due_date < $%d", argIndex)
		args = append(args, *q.DueBefore)
	}
	query += " ORDER BY created_at ASC, id"

	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var out []OrderRow
	for rows.Next() {
		var (
			o          OrderRow
			recordedBy uuid.NullUUID
			due        sql.NullTime
		)
		if err := rows.Scan(
			&o.ID, &o.OrderNumber, &o.UserID, &recordedBy, &o.Status, &o.PaymentStatus,
			&o.Total, &o.Paid, &o.Pending, &due, &o.CreatedAt,
		); err != nil {
			log.Error("failed to scan order row", zap.Error(err))
			return nil, err
		}
		if recordedBy.Valid {
			o.RecordedBy = &recordedBy.UUID
		}
		if due.Valid {
			o.PendingDue = &due.Time
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *repository) OrderLines(ctx context.Context) ([]OrderLine, error) {
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT o.id, o.status, o.payment_status, o.pending_amount,
			p.brand_id, COALESCE(b.name, ''), oi.line_total
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		JOIN products p ON p.id = oi.product_id
		LEFT JOIN brands b ON b.id = p.brand_id
		WHERE o.status <> 'cancelled'
		ORDER BY o.id, oi.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderLine
	for rows.Next() {
		var (
			l     OrderLine
			brand uuid.NullUUID
		)
		if err := rows.Scan(&l.OrderID, &l.Status, &l.PaymentStatus, &l.Pending, &brand, &l.BrandName, &l.LineTotal); err != nil {
			return nil, err
		}
		if brand.Valid {
			l.BrandID = &brand.UUID
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *repository) BoundedClients(ctx context.Context) ([]ClientLimit, error) {
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT id, full_name, pending_amount_limit
		FROM users
		WHERE role IN ('customer', 'retailer', 'beauty_parlor')
			AND pending_amount_limit IS NOT NULL
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ClientLimit
	for rows.Next() {
		var c ClientLimit
		if err := rows.Scan(&c.ClientID, &c.FullName, &c.Limit); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
