package inventory

import (
	"context"
	"database/sql"
	"errors"

	"distromart-be/internal/db"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Repository interface {
	GetProduct(ctx context.Context, productID uuid.UUID) (*Product, error)
	// ProductsForOrder share-locks the listed products so their price and
	// active flag cannot change before the surrounding tx commits. Unknown
	// ids are absent from the result.
	ProductsForOrder(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Product, error)
	// Adjust applies delta only if the result stays non-negative.
	Adjust(ctx context.Context, productID uuid.UUID, delta int, reason string, actorID *uuid.UUID) (*Log, error)
	// DeductForOrder removes up to qty units, stopping at zero, and logs the
	// quantity actually removed.
	DeductForOrder(ctx context.Context, productID uuid.UUID, qty int, reason string, actorID *uuid.UUID) (*Log, error)
	History(ctx context.Context, productID uuid.UUID, limit int) ([]Log, error)
	LowStock(ctx context.Context, threshold int) ([]Product, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetProduct(ctx context.Context, productID uuid.UUID) (*Product, error) {
	var p Product
	var brand uuid.NullUUID
	err := db.Conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT id, brand_id, name, price, stock_quantity, is_active
		FROM products
		WHERE id = $1
	`, productID).Scan(&p.ID, &brand, &p.Name, &p.Price, &p.StockQuantity, &p.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	if brand.Valid {
		p.BrandID = &brand.UUID
	}
	return &p, nil
}

func (r *repository) ProductsForOrder(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Product, error) {
	keys := make(pq.StringArray, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT id, brand_id, name, price, stock_quantity, is_active
		FROM products
		WHERE id = ANY($1::uuid[])
		FOR SHARE
	`, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID]Product, len(ids))
	for rows.Next() {
		var p Product
		var brand uuid.NullUUID
		if err := rows.Scan(&p.ID, &brand, &p.Name, &p.Price, &p.StockQuantity, &p.IsActive); err != nil {
			return nil, err
		}
		if brand.Valid {
			p.BrandID = &brand.UUID
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (r *repository) Adjust(ctx context.Context, productID uuid.UUID, delta int, reason string, actorID *uuid.UUID) (*Log, error) {
	conn := db.Conn(ctx, r.db)

	var newQty int
	err := conn.QueryRowContext(ctx, `
		UPDATE products
		SET stock_quantity = stock_quantity + $2, updated_at = NOW()
		WHERE id = $1 AND stock_quantity + $2 >= 0
		RETURNING stock_quantity
	`, productID, delta).Scan(&newQty)
	if errors.Is(err, sql.ErrNoRows) {
		p, getErr := r.GetProduct(ctx, productID)
		if getErr != nil {
			return nil, getErr
		}
		return nil, &NegativeStockError{Current: p.StockQuantity, Delta: delta}
	}
	if err != nil {
		return nil, err
	}

	return r.appendLog(ctx, conn, &Log{
		ProductID:        productID,
		PreviousQuantity: newQty - delta,
		NewQuantity:      newQty,
		QuantityChange:   delta,
		Reason:           reason,
		ActorID:          actorID,
	})
}

func (r *repository) DeductForOrder(ctx context.Context, productID uuid.UUID, qty int, reason string, actorID *uuid.UUID) (*Log, error) {
	conn := db.Conn(ctx, r.db)

	var prev, next int
	err := conn.QueryRowContext(ctx, `
		WITH locked AS (
			SELECT id, stock_quantity AS previous
			FROM products
			WHERE id = $1
			FOR UPDATE
		)
		UPDATE products p
		SET stock_quantity = GREATEST(locked.previous - $2, 0), updated_at = NOW()
		FROM locked
		WHERE p.id = locked.id
		RETURNING locked.previous, p.stock_quantity
	`, productID, qty).Scan(&prev, &next)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}

	return r.appendLog(ctx, conn, &Log{
		ProductID:        productID,
		PreviousQuantity: prev,
		NewQuantity:      next,
		QuantityChange:   next - prev,
		Reason:           reason,
		ActorID:          actorID,
	})
}

func (r *repository) appendLog(ctx context.Context, conn db.DBTX, l *Log) (*Log, error) {
	l.ID = uuid.New()
	err := conn.QueryRowContext(ctx, `
		INSERT INTO inventory_logs (
			id, product_id, previous_quantity, new_quantity, quantity_change, reason, actor_id
		) VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at
	`,
		l.ID,
		l.ProductID,
		l.PreviousQuantity,
		l.NewQuantity,
		l.QuantityChange,
		l.Reason,
		l.ActorID,
	).Scan(&l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *repository) History(ctx context.Context, productID uuid.UUID, limit int) ([]Log, error) {
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT id, product_id, previous_quantity, new_quantity, quantity_change, reason, actor_id, created_at
		FROM inventory_logs
		WHERE product_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []Log
	for rows.Next() {
		var l Log
		var actor uuid.NullUUID
		if err := rows.Scan(
			&l.ID, &l.ProductID, &l.PreviousQuantity, &l.NewQuantity,
			&l.QuantityChange, &l.Reason, &actor, &l.CreatedAt,
		); err != nil {
			return nil, err
		}
		if actor.Valid {
			l.ActorID = &actor.UUID
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (r *repository) LowStock(ctx context.Context, threshold int) ([]Product, error) {
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT id, brand_id, name, price, stock_quantity, is_active
		FROM products
		WHERE is_active AND stock_quantity <= $1
		ORDER BY stock_quantity ASC, name ASC
	`, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		var brand uuid.NullUUID
		if err := rows.Scan(&p.ID, &brand, &p.Name, &p.Price, &p.StockQuantity, &p.IsActive); err != nil {
			return nil, err
		}
		if brand.Valid {
			p.BrandID = &brand.UUID
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
