package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"distromart-be/internal/db"
	"distromart-be/internal/ledger"
	"distromart-be/internal/logger"
	"distromart-be/internal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Repository interface {
	// Insert stores the order row. It reports false, without error, when
	// the order number is already taken.
	Insert(ctx context.Context, o *Order) (bool, error)
	InsertItems(ctx context.Context, orderID uuid.UUID, items []Item) error
	Get(ctx context.Context, orderID uuid.UUID) (*Order, error)
	Items(ctx context.Context, orderID uuid.UUID) ([]Item, error)
	List(ctx context.Context, scope Scope, f Filter) ([]Order, error)
	// Cancel moves a pending order owned by userID to cancelled. It
	// reports false when no row matched.
	Cancel(ctx context.Context, orderID, userID uuid.UUID) (bool, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to Status) (bool, error)
	Assign(ctx context.Context, orderID, assignee uuid.UUID) (bool, error)
	UserRole(ctx context.Context, userID uuid.UUID) (string, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

const orderColumns = `
	o.id, o.order_number, o.user_id, o.recorded_by, o.assigned_to,
	o.subtotal, o.total_amount, o.paid_amount, o.pending_amount, o.payment_status,
	o.status, o.created_via, o.payment_method, o.notes,
	o.initial_payment_required, o.initial_payment_status, o.initial_payment_due_date,
	o.pending_payment_due_date, o.created_at, o.updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*Order, error) {
	var (
		o          Order
		recordedBy uuid.NullUUID
		assignedTo uuid.NullUUID
		required   decimal.NullDecimal
		initStatus sql.NullString
		initDue    sql.NullTime
		pendingDue sql.NullTime
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &recordedBy, &assignedTo,
		&o.Subtotal, &o.TotalAmount, &o.PaidAmount, &o.PendingAmount, &o.PaymentStatus,
		&o.Status, &o.CreatedVia, &o.PaymentMethod, &o.Notes,
		&required, &initStatus, &initDue,
		&pendingDue, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if recordedBy.Valid {
		o.RecordedBy = &recordedBy.UUID
	}
	if assignedTo.Valid {
		o.AssignedTo = &assignedTo.UUID
	}
	if required.Valid {
		o.InitialPaymentRequired = &required.Decimal
	}
	if initStatus.Valid {
		o.InitialPaymentStatus = &initStatus.String
	}
	if initDue.Valid {
		o.InitialPaymentDueDate = &initDue.Time
	}
	if pendingDue.Valid {
		o.PendingPaymentDueDate = &pendingDue.Time
	}
	return &o, nil
}

func (r *repository) Insert(ctx context.Context, o *Order) (bool, error) {
	var required any
	if o.InitialPaymentRequired != nil {
		required = ledger.Round(*o.InitialPaymentRequired)
	}

	err := db.Conn(ctx, r.db).QueryRowContext(ctx, `
		INSERT INTO orders (
			id, order_number, user_id, recorded_by, assigned_to,
			subtotal, total_amount, paid_amount, pending_amount, payment_status,
			status, created_via, payment_method, notes,
			initial_payment_required, initial_payment_status, initial_payment_due_date,
			pending_payment_due_date
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		ON CONFLICT ON CONSTRAINT orders_order_number_key DO NOTHING
		RETURNING created_at, updated_at
	`,
		o.ID,
		o.OrderNumber,
		o.UserID,
		o.RecordedBy,
		o.AssignedTo,
		o.Subtotal,
		o.TotalAmount,
		o.PaidAmount,
		o.PendingAmount,
		string(o.PaymentStatus),
		string(o.Status),
		string(o.CreatedVia),
		string(o.PaymentMethod),
		o.Notes,
		required,
		o.InitialPaymentStatus,
		o.InitialPaymentDueDate,
		o.PendingPaymentDueDate,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *repository) InsertItems(ctx context.Context, orderID uuid.UUID, items []Item) error {
	conn := db.Conn(ctx, r.db)
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		items[i].OrderID = orderID
		_, err := conn.ExecContext(ctx, `
			INSERT INTO order_items (
				id, order_id, product_id, quantity, unit_price, line_total
			) VALUES ($1,$2,$3,$4,$5,$6)
		`,
			items[i].ID,
			orderID,
			items[i].ProductID,
			items[i].Quantity,
			items[i].UnitPrice,
			items[i].LineTotal,
		)
		if err != nil {
			return fmt.Errorf("insert item %s: %w", items[i].ProductID, err)
		}
	}
	return nil
}

func (r *repository) Get(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	row := db.Conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1`, orderID)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *repository) Items(ctx context.Context, orderID uuid.UUID) ([]Item, error) {
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price, line_total
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *repository) List(ctx context.Context, scope Scope, f Filter) ([]Order, error) {
	limit, offset := utils.Page(f.Limit, f.Page)

	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "List"),
		zap.Int("limit", limit),
		zap.Int("offset", offset),
	)

	query := `SELECT ` + orderColumns + ` FROM orders o WHERE 1=1`
	args := []any{}
	argIndex := 1

	// ---------- ACCESS CONTROL ----------
	if scope.UserID != nil {
		query += fmt.Sprintf(" AND o.user_id = $%d", argIndex)
		args = append(args, *scope.UserID)
		argIndex++
	}
	if scope.RecordedBy != nil {
		query += fmt.Sprintf(" AND o.recorded_by = $%d", argIndex)
		args = append(args, *scope.RecordedBy)
		argIndex++
	}

	// ---------- FILTERING ----------
	if f.ClientID != nil {
		query += fmt.Sprintf(" AND o.user_id = $%d", argIndex)
		args = append(args, *f.ClientID)
		argIndex++
	}
	if f.Status != nil {
		query += fmt.Sprintf(" AND o.status = $%d", argIndex)
		args = append(args, string(*f.Status))
		argIndex++
	}
	if f.PaymentStatus != nil {
		query += fmt.Sprintf(" AND o.payment_status = $%d", argIndex)
		args = append(args, string(*f.PaymentStatus))
		argIndex++
	}
	if f.OutstandingOnly {
		query += " AND o.status <> 'cancelled' AND o.payment_status <> 'paid'"
	}
	if f.DateFrom != nil {
		query += fmt.Sprintf(" AND o.created_at >= $%d", argIndex)
		args = append(args, *f.DateFrom)
		argIndex++
	}
	if f.DateTo != nil {
		query += fmt.Sprintf(" AND o.created_at <= $%d", argIndex)
		args = append(args, *f.DateTo)
		argIndex++
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		query += fmt.Sprintf(" AND o.order_number ILIKE $%d", argIndex)
		args = append(args, "%"+s+"%")
		argIndex++
	}

	// ---------- SORTING ----------
	dir := "DESC"
	if f.SortAsc {
		dir = "ASC"
	}
	orderBy := "o.created_at " + dir
	switch f.SortField {
	case SortTotal:
		orderBy = "o.total_amount " + dir
	case SortPending:
		orderBy = "o.pending_amount " + dir
	}
	query += " ORDER BY " + orderBy + ", o.id"

	// ---------- PAGINATION ----------
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	log.Debug("executing list orders query", zap.String("query", query))

	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			log.Error("failed to scan order row", zap.Error(err))
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		log.Error("rows iteration error", zap.Error(err))
		return nil, err
	}
	return orders, nil
}

func (r *repository) Cancel(ctx context.Context, orderID, userID uuid.UUID) (bool, error) {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE orders
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND status = 'pending'
	`, orderID, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *repository) UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to Status) (bool, error) {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE orders
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, orderID, string(from), string(to))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *repository) Assign(ctx context.Context, orderID, assignee uuid.UUID) (bool, error) {
	res, err := db.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE orders
		SET assigned_to = $2, updated_at = NOW()
		WHERE id = $1 AND status <> 'cancelled'
	`, orderID, assignee)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

func (r *repository) UserRole(ctx context.Context, userID uuid.UUID) (string, error) {
	var role string
	err := db.Conn(ctx, r.db).QueryRowContext(ctx, `SELECT role FROM users WHERE id = $1`, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return role, err
}
