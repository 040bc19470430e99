package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"investa/pkg/errors"
	"investa/pkg/logger"
)

type txKey struct{}

// TxManager runs a function inside one database transaction. Repositories in
// this package pick the transaction up from the context, so multi-account
// sequences (withdrawal reservation, deposit approval plus commission
// cascade) commit or roll back as a unit.
type TxManager struct {
	db  *sqlx.DB
	log logger.Logger
}

func NewTxManager(db *sqlx.DB, log logger.Logger) *TxManager {
	return &TxManager{db: db, log: log}
}

func (m *TxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			m.log.Error("rollback failed", map[string]interface{}{"error": rbErr.Error()})
		}
		return err
	}

	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}

// ext returns the context transaction when one is active, else the pool.
func ext(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}
