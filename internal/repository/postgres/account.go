package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"investa/internal/domain"
	"investa/pkg/errors"
)

// AccountRepository owns account rows. Every balance mutation is a single
// conditional UPDATE so two concurrent requests can never both pass a
// read-then-write check; a zero rows-affected result means the guard failed.
type AccountRepository struct {
	db *sqlx.DB
}

func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (
			id, deposit_balance, withdrawable_balance, total_invested, total_earned,
			referred_by, status, tx_password_hash, created_at, updated_at
		) VALUES (
			:id, :deposit_balance, :withdrawable_balance, :total_invested, :total_earned,
			:referred_by, :status, :tx_password_hash, :created_at, :updated_at
		)
	`
	_, err := sqlx.NamedExecContext(ctx, ext(ctx, r.db), query, account)
	return errors.Wrap(err, "failed to create account")
}

func (r *AccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	account := &domain.Account{}
	query := `SELECT * FROM accounts WHERE id = $1`
	err := sqlx.GetContext(ctx, ext(ctx, r.db), account, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrAccountNotFound
		}
		return nil, errors.Wrap(err, "failed to find account by id")
	}
	return account, nil
}

func balanceColumn(kind domain.BalanceKind) string {
	if kind == domain.BalanceWithdrawable {
		return "withdrawable_balance"
	}
	return "deposit_balance"
}

// Credit increases the chosen balance. Never fails for a positive amount on
// an existing account.
func (r *AccountRepository) Credit(ctx context.Context, id uuid.UUID, amount decimal.Decimal, kind domain.BalanceKind) error {
	col := balanceColumn(kind)
	query := `
		UPDATE accounts SET
			` + col + ` = ` + col + ` + $1,
			updated_at = NOW()
		WHERE id = $2
	`
	result, err := ext(ctx, r.db).ExecContext(ctx, query, amount, id)
	if err != nil {
		return errors.Wrap(err, "failed to credit account")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.ErrAccountNotFound
	}
	return nil
}

// Debit checks sufficiency and decrements in one statement.
func (r *AccountRepository) Debit(ctx context.Context, id uuid.UUID, amount decimal.Decimal, kind domain.BalanceKind) error {
	col := balanceColumn(kind)
	query := `
		UPDATE accounts SET
			` + col + ` = ` + col + ` - $1,
			updated_at = NOW()
		WHERE id = $2 AND ` + col + ` >= $1
	`
	result, err := ext(ctx, r.db).ExecContext(ctx, query, amount, id)
	if err != nil {
		return errors.Wrap(err, "failed to debit account")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.ErrInsufficientFunds
	}
	return nil
}

// DebitCombined consumes the deposit balance first and takes any remainder
// from the withdrawable balance. The guard covers the sum of both, so the
// deduction is all-or-nothing.
func (r *AccountRepository) DebitCombined(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	query := `
		UPDATE accounts SET
			deposit_balance = deposit_balance - LEAST(deposit_balance, $1),
			withdrawable_balance = withdrawable_balance - ($1 - LEAST(deposit_balance, $1)),
			updated_at = NOW()
		WHERE id = $2 AND deposit_balance + withdrawable_balance >= $1
	`
	result, err := ext(ctx, r.db).ExecContext(ctx, query, amount, id)
	if err != nil {
		return errors.Wrap(err, "failed to debit combined balances")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.ErrInsufficientFunds
	}
	return nil
}

// Refund is the inverse of Debit, used when a withdrawal is rejected.
func (r *AccountRepository) Refund(ctx context.Context, id uuid.UUID, amount decimal.Decimal, kind domain.BalanceKind) error {
	return r.Credit(ctx, id, amount, kind)
}

// CreditEarning credits the withdrawable balance and the total-earned counter
// together; used by the commission cascade.
func (r *AccountRepository) CreditEarning(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	query := `
		UPDATE accounts SET
			withdrawable_balance = withdrawable_balance + $1,
			total_earned = total_earned + $1,
			updated_at = NOW()
		WHERE id = $2
	`
	result, err := ext(ctx, r.db).ExecContext(ctx, query, amount, id)
	if err != nil {
		return errors.Wrap(err, "failed to credit earning")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.ErrAccountNotFound
	}
	return nil
}

// AddInvested bumps the lifetime total-invested counter. The counter never
// decreases; redemptions return principal without touching it.
func (r *AccountRepository) AddInvested(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error {
	query := `UPDATE accounts SET total_invested = total_invested + $1, updated_at = NOW() WHERE id = $2`
	_, err := ext(ctx, r.db).ExecContext(ctx, query, amount, id)
	return errors.Wrap(err, "failed to add invested total")
}

func (r *AccountRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AccountStatus) error {
	query := `UPDATE accounts SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := ext(ctx, r.db).ExecContext(ctx, query, status, id)
	return errors.Wrap(err, "failed to update account status")
}

func (r *AccountRepository) UpdateTxPassword(ctx context.Context, id uuid.UUID, hash string) error {
	query := `UPDATE accounts SET tx_password_hash = $1, updated_at = NOW() WHERE id = $2`
	_, err := ext(ctx, r.db).ExecContext(ctx, query, hash, id)
	return errors.Wrap(err, "failed to update transaction password")
}

func (r *AccountRepository) FindAll(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	var accounts []*domain.Account
	query := `SELECT * FROM accounts ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	err := sqlx.SelectContext(ctx, ext(ctx, r.db), &accounts, query, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find accounts")
	}
	return accounts, nil
}
