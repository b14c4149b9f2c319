package wallet

import (
	"context"
	"database/sql"
	"errors"

	"distromart-be/internal/db"
	"distromart-be/internal/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Repository interface {
	Get(ctx context.Context, userID uuid.UUID) (*Balance, error)
	// GetForUpdate row-locks the wallet. A missing wallet is reported as
	// an InsufficientCreditError with zero balance.
	GetForUpdate(ctx context.Context, userID uuid.UUID, required decimal.Decimal) (*Balance, error)
	Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, ref Reference) (*Transaction, error)
	Transactions(ctx context.Context, userID uuid.UUID, limit int) ([]Transaction, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Get(ctx context.Context, userID uuid.UUID) (*Balance, error) {
	var b Balance
	err := db.Conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT user_id, balance, used_credit, updated_at
		FROM user_credits
		WHERE user_id = $1
	`, userID).Scan(&b.UserID, &b.Balance, &b.UsedCredit, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return &Balance{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) GetForUpdate(ctx context.Context, userID uuid.UUID, required decimal.Decimal) (*Balance, error) {
	var b Balance
	err := db.Conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT user_id, balance, used_credit, updated_at
		FROM user_credits
		WHERE user_id = $1
		FOR UPDATE
	`, userID).Scan(&b.UserID, &b.Balance, &b.UsedCredit, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &InsufficientCreditError{Balance: decimal.Zero, Required: ledger.Round(required)}
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repository) Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, ref Reference) (*Transaction, error) {
	conn := db.Conn(ctx, r.db)
	amount = ledger.Round(amount)

	var after decimal.Decimal
	err := conn.QueryRowContext(ctx, `
		UPDATE user_credits
		SET balance = balance - $2,
		    used_credit = used_credit + $2,
		    updated_at = NOW()
		WHERE user_id = $1 AND balance >= $2
		RETURNING balance
	`, userID, amount).Scan(&after)
	if errors.Is(err, sql.ErrNoRows) {
		current := decimal.Zero
		if b, getErr := r.Get(ctx, userID); getErr == nil {
			current = b.Balance
		}
		return nil, &InsufficientCreditError{Balance: current, Required: amount}
	}
	if err != nil {
		return nil, err
	}

	tx := &Transaction{
		ID:            uuid.New(),
		UserID:        userID,
		Amount:        amount,
		Type:          TxDebit,
		ReferenceType: ref.Type,
		Description:   ref.Description,
		BalanceAfter:  after,
	}
	var refID *uuid.UUID
	if ref.ID != uuid.Nil {
		id := ref.ID
		refID = &id
		tx.ReferenceID = refID
	}

	err = conn.QueryRowContext(ctx, `
		INSERT INTO credit_transactions (
			id, user_id, amount, type, reference_type, reference_id, description, balance_after
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at
	`,
		tx.ID,
		tx.UserID,
		tx.Amount,
		string(tx.Type),
		tx.ReferenceType,
		refID,
		tx.Description,
		tx.BalanceAfter,
	).Scan(&tx.CreatedAt)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (r *repository) Transactions(ctx context.Context, userID uuid.UUID, limit int) ([]Transaction, error) {
	rows, err := db.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT id, user_id, amount, type, reference_type, reference_id, description, balance_after, created_at
		FROM credit_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		var refID uuid.NullUUID
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.Amount, &t.Type, &t.ReferenceType,
			&refID, &t.Description, &t.BalanceAfter, &t.CreatedAt,
		); err != nil {
			return nil, err
		}
		if refID.Valid {
			id := refID.UUID
			t.ReferenceID = &id
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
