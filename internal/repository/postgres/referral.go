package postgres

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"investa/internal/domain"
	"investa/pkg/errors"
)

type ReferralRepository struct {
	db *sqlx.DB
}

func NewReferralRepository(db *sqlx.DB) *ReferralRepository {
	return &ReferralRepository{db: db}
}

// CreateBonus inserts a write-once bonus record. The unique index on
// (referred_id, level) backs up the once-per-account cascade rule.
func (r *ReferralRepository) CreateBonus(ctx context.Context, bonus *domain.ReferralBonus) error {
	query := `
		INSERT INTO referral_bonuses (
			id, referrer_id, referred_id, level, amount, percentage, created_at
		) VALUES (
			:id, :referrer_id, :referred_id, :level, :amount, :percentage, :created_at
		)
	`
	_, err := sqlx.NamedExecContext(ctx, ext(ctx, r.db), query, bonus)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			if strings.Contains(pqErr.Constraint, "referral_bonuses_referred_level") {
				return errors.ErrBonusAlreadyGranted
			}
		}
		return errors.Wrap(err, "failed to create referral bonus")
	}
	return nil
}

func (r *ReferralRepository) FindByReferrer(ctx context.Context, referrerID uuid.UUID, limit, offset int) ([]*domain.ReferralBonus, error) {
	var bonuses []*domain.ReferralBonus
	query := `
		SELECT * FROM referral_bonuses
		WHERE referrer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	err := sqlx.SelectContext(ctx, ext(ctx, r.db), &bonuses, query, referrerID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find referral bonuses")
	}
	return bonuses, nil
}

func (r *ReferralRepository) SumByReferrer(ctx context.Context, referrerID uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `SELECT COALESCE(SUM(amount), 0) FROM referral_bonuses WHERE referrer_id = $1`
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &total, query, referrerID)
	return total, errors.Wrap(err, "failed to sum referral bonuses")
}

func (r *ReferralRepository) CountByReferred(ctx context.Context, referredID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM referral_bonuses WHERE referred_id = $1`
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &count, query, referredID)
	return count, errors.Wrap(err, "failed to count referral bonuses")
}
