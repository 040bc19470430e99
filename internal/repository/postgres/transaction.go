package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"investa/internal/domain"
	"investa/pkg/errors"
)

type TransactionRepository struct {
	db *sqlx.DB
}

func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (
			id, account_id, type, method, amount, fees, status, reference,
			admin_notes, fx, created_at, processed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`
	_, err := ext(ctx, r.db).ExecContext(ctx, query,
		tx.ID, tx.AccountID, tx.Type, tx.Method, tx.Amount, tx.Fees, tx.Status,
		tx.Reference, tx.AdminNotes, tx.FX, tx.CreatedAt, tx.ProcessedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			// one_withdrawal_per_day is a partial unique index on
			// (account_id, created day) for withdrawal rows
			if strings.Contains(pqErr.Constraint, "one_withdrawal_per_day") {
				return errors.ErrDuplicateWithdrawal
			}
		}
		return errors.Wrap(err, "failed to create transaction")
	}
	return nil
}

func (r *TransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	var tx domain.Transaction
	query := `
		SELECT id, account_id, type, method, amount, fees, status, reference,
			COALESCE(admin_notes, '') AS admin_notes, fx, created_at, processed_at
		FROM transactions WHERE id = $1
	`
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &tx, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.ErrTransactionNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find transaction")
	}
	return &tx, nil
}

// MarkReviewed transitions a pending transaction to approved or rejected.
// The status guard in the WHERE clause makes the transition single-shot: a
// second review of the same transaction affects zero rows.
func (r *TransactionRepository) MarkReviewed(ctx context.Context, id uuid.UUID, status domain.TransactionStatus, adminNotes string) (*domain.Transaction, error) {
	query := `
		UPDATE transactions SET
			status = $1,
			admin_notes = $2,
			processed_at = NOW()
		WHERE id = $3 AND status = $4
		RETURNING id, account_id, type, method, amount, fees, status, reference,
			COALESCE(admin_notes, '') AS admin_notes, fx, created_at, processed_at
	`
	var tx domain.Transaction
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &tx, query,
		status, adminNotes, id, domain.TransactionStatusPending)
	if err == sql.ErrNoRows {
		// Either unknown or already reviewed; look it up to tell which.
		if _, findErr := r.FindByID(ctx, id); findErr != nil {
			return nil, findErr
		}
		return nil, errors.ErrTransactionNotPending
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to review transaction")
	}
	return &tx, nil
}

func (r *TransactionRepository) FindByAccount(ctx context.Context, accountID uuid.UUID, typeFilter *domain.TransactionType, limit, offset int) ([]*domain.Transaction, error) {
	var txs []*domain.Transaction
	query := `
		SELECT id, account_id, type, method, amount, fees, status, reference,
			COALESCE(admin_notes, '') AS admin_notes, fx, created_at, processed_at
		FROM transactions
		WHERE account_id = $1
	`
	args := []interface{}{accountID}
	if typeFilter != nil {
		query += ` AND type = $2 ORDER BY created_at DESC LIMIT $3 OFFSET $4`
		args = append(args, *typeFilter, limit, offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, limit, offset)
	}

	err := sqlx.SelectContext(ctx, ext(ctx, r.db), &txs, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find transactions by account")
	}
	return txs, nil
}

func (r *TransactionRepository) CountByAccount(ctx context.Context, accountID uuid.UUID, typeFilter *domain.TransactionType) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM transactions WHERE account_id = $1`
	args := []interface{}{accountID}
	if typeFilter != nil {
		query += ` AND type = $2`
		args = append(args, *typeFilter)
	}
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &count, query, args...)
	return count, errors.Wrap(err, "failed to count transactions")
}

func (r *TransactionRepository) FindByStatus(ctx context.Context, status domain.TransactionStatus, limit, offset int) ([]*domain.Transaction, error) {
	var txs []*domain.Transaction
	query := `
		SELECT id, account_id, type, method, amount, fees, status, reference,
			COALESCE(admin_notes, '') AS admin_notes, fx, created_at, processed_at
		FROM transactions
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`
	err := sqlx.SelectContext(ctx, ext(ctx, r.db), &txs, query, status, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find transactions by status")
	}
	return txs, nil
}

// CountApprovedDeposits reports how many approved deposit rows an account
// has; the cascade fires only when the count is exactly one after approval.
func (r *TransactionRepository) CountApprovedDeposits(ctx context.Context, accountID uuid.UUID) (int, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM transactions
		WHERE account_id = $1 AND type = $2 AND status = $3
	`
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &count, query,
		accountID, domain.TransactionTypeDeposit, domain.TransactionStatusApproved)
	return count, errors.Wrap(err, "failed to count approved deposits")
}

func (r *TransactionRepository) CreateSubmission(ctx context.Context, sub *domain.DepositSubmission) error {
	query := `
		INSERT INTO deposit_submissions (transaction_id, payment_method_id, user_reference, proof_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := ext(ctx, r.db).ExecContext(ctx, query,
		sub.TransactionID, sub.PaymentMethodID, sub.UserReference, sub.ProofID, sub.CreatedAt)
	return errors.Wrap(err, "failed to create deposit submission")
}

func (r *TransactionRepository) FindSubmission(ctx context.Context, transactionID uuid.UUID) (*domain.DepositSubmission, error) {
	var sub domain.DepositSubmission
	query := `SELECT * FROM deposit_submissions WHERE transaction_id = $1`
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &sub, query, transactionID)
	if err == sql.ErrNoRows {
		return nil, errors.ErrTransactionNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find deposit submission")
	}
	return &sub, nil
}

// WithdrawalExistsOn reports whether the account already created a withdrawal
// on the given calendar day. The unique index remains the authority; this is
// the cheap pre-check used for fast rejection before password verification.
func (r *TransactionRepository) WithdrawalExistsOn(ctx context.Context, accountID uuid.UUID, day time.Time) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM transactions
			WHERE account_id = $1 AND type = $2 AND created_at::date = $3::date
		)
	`
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &exists, query,
		accountID, domain.TransactionTypeWithdrawal, day)
	return exists, errors.Wrap(err, "failed to check daily withdrawal")
}
