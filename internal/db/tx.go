package db

import (
	"context"
	"database/sql"
	"fmt"

	"distromart-be/internal/logger"

	"go.uber.org/zap"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txKey struct{}

// Conn returns the transaction bound to ctx, or fallback when there is none.
func Conn(ctx context.Context, fallback DBTX) DBTX {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return fallback
}

// InTx reports whether ctx carries a transaction.
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*sql.Tx)
	return ok
}

// Transactor runs fn inside a single database transaction. Repositories
// reached from fn pick the transaction up through Conn.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CommitError marks a failure of COMMIT itself. The outcome of the
// transaction is unknown to the caller at that point.
type CommitError struct {
	Err error
}

func (e *CommitError) Error() string { return "commit failed: " + e.Err.Error() }
func (e *CommitError) Unwrap() error { return e.Err }

type sqlTransactor struct {
	db   *sql.DB
	opts *sql.TxOptions
}

func NewTransactor(db *sql.DB) Transactor {
	return &sqlTransactor{db: db}
}

func (t *sqlTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTx(ctx) {
		return fn(ctx)
	}

	log := logger.FromCtx(ctx).With(zap.String("layer", "db"))

	tx, err := t.db.BeginTx(ctx, t.opts)
	if err != nil {
		log.Error("failed to begin transaction", zap.Error(err))
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				log.Error("failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		committed = true
		log.Error("failed to commit transaction", zap.Error(err))
		return &CommitError{Err: err}
	}
	committed = true
	return nil
}
