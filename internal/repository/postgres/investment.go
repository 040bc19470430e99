package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"investa/internal/domain"
	"investa/pkg/errors"
)

type InvestmentRepository struct {
	db *sqlx.DB
}

func NewInvestmentRepository(db *sqlx.DB) *InvestmentRepository {
	return &InvestmentRepository{db: db}
}

func (r *InvestmentRepository) CreateVIP(ctx context.Context, inv *domain.VIPInvestment) error {
	query := `
		INSERT INTO vip_investments (
			id, account_id, package_id, amount, daily_rate, daily_earnings, status, created_at
		) VALUES (
			:id, :account_id, :package_id, :amount, :daily_rate, :daily_earnings, :status, :created_at
		)
	`
	_, err := sqlx.NamedExecContext(ctx, ext(ctx, r.db), query, inv)
	return errors.Wrap(err, "failed to create vip investment")
}

func (r *InvestmentRepository) CreateStaking(ctx context.Context, inv *domain.StakingInvestment) error {
	query := `
		INSERT INTO staking_investments (
			id, account_id, plan_id, amount, daily_rate, daily_earnings,
			duration_days, unlock_date, status, created_at
		) VALUES (
			:id, :account_id, :plan_id, :amount, :daily_rate, :daily_earnings,
			:duration_days, :unlock_date, :status, :created_at
		)
	`
	_, err := sqlx.NamedExecContext(ctx, ext(ctx, r.db), query, inv)
	return errors.Wrap(err, "failed to create staking investment")
}

func (r *InvestmentRepository) FindVIPByID(ctx context.Context, id uuid.UUID) (*domain.VIPInvestment, error) {
	inv := &domain.VIPInvestment{}
	query := `SELECT * FROM vip_investments WHERE id = $1`
	err := sqlx.GetContext(ctx, ext(ctx, r.db), inv, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.ErrInvestmentNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find vip investment")
	}
	return inv, nil
}

func (r *InvestmentRepository) FindStakingByID(ctx context.Context, id uuid.UUID) (*domain.StakingInvestment, error) {
	inv := &domain.StakingInvestment{}
	query := `SELECT * FROM staking_investments WHERE id = $1`
	err := sqlx.GetContext(ctx, ext(ctx, r.db), inv, query, id)
	if err == sql.ErrNoRows {
		return nil, errors.ErrInvestmentNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to find staking investment")
	}
	return inv, nil
}

func (r *InvestmentRepository) FindVIPByAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.VIPInvestment, error) {
	var invs []*domain.VIPInvestment
	query := `SELECT * FROM vip_investments WHERE account_id = $1 ORDER BY created_at DESC`
	err := sqlx.SelectContext(ctx, ext(ctx, r.db), &invs, query, accountID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find vip investments")
	}
	return invs, nil
}

func (r *InvestmentRepository) FindStakingByAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.StakingInvestment, error) {
	var invs []*domain.StakingInvestment
	query := `SELECT * FROM staking_investments WHERE account_id = $1 ORDER BY created_at DESC`
	err := sqlx.SelectContext(ctx, ext(ctx, r.db), &invs, query, accountID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find staking investments")
	}
	return invs, nil
}

// UpdateVIPStatus guards on the current status so a transition is applied at
// most once.
func (r *InvestmentRepository) UpdateVIPStatus(ctx context.Context, id uuid.UUID, from, to domain.InvestmentStatus) error {
	query := `UPDATE vip_investments SET status = $1 WHERE id = $2 AND status = $3`
	result, err := ext(ctx, r.db).ExecContext(ctx, query, to, id, from)
	if err != nil {
		return errors.Wrap(err, "failed to update vip investment status")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.ErrInvestmentNotFound
	}
	return nil
}

func (r *InvestmentRepository) UpdateStakingStatus(ctx context.Context, id uuid.UUID, from, to domain.InvestmentStatus) error {
	query := `UPDATE staking_investments SET status = $1 WHERE id = $2 AND status = $3`
	result, err := ext(ctx, r.db).ExecContext(ctx, query, to, id, from)
	if err != nil {
		return errors.Wrap(err, "failed to update staking investment status")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to get rows affected")
	}
	if rows == 0 {
		return errors.ErrInvestmentNotFound
	}
	return nil
}
