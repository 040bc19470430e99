// Package referral implements the commission cascade: up to three ancestors
// of a depositing account earn a fixed percentage of its first approved
// deposit.
package referral

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"investa/internal/domain"
	"investa/pkg/errors"
	"investa/pkg/logger"
)

// Commission percentages per referral level. Platform constants, not
// editable per request.
var levelPercentages = []decimal.Decimal{
	decimal.NewFromInt(11),
	decimal.NewFromInt(2),
	decimal.NewFromInt(1),
}

type Engine struct {
	accounts AccountRepository
	bonuses  BonusRepository
	records  TransactionRepository
	logger   logger.Logger
}

func NewEngine(accounts AccountRepository, bonuses BonusRepository, records TransactionRepository, log logger.Logger) *Engine {
	return &Engine{
		accounts: accounts,
		bonuses:  bonuses,
		records:  records,
		logger:   log,
	}
}

// RunCascade walks the referral chain of the depositing account and credits
// each present ancestor. The walk stops at the first absent link; it never
// skips to a farther ancestor.
//
// The caller is expected to invoke this inside the same database transaction
// that approves the triggering deposit, so either every ancestor is credited
// or none is.
func (e *Engine) RunCascade(ctx context.Context, depositorID uuid.UUID, depositAmount decimal.Decimal) error {
	depositor, err := e.accounts.FindByID(ctx, depositorID)
	if err != nil {
		return err
	}

	// Fast path for replays; the unique index on bonus records is the
	// authoritative guard.
	granted, err := e.bonuses.CountByReferred(ctx, depositorID)
	if err != nil {
		return err
	}
	if granted > 0 {
		return errors.ErrBonusAlreadyGranted
	}

	ancestor := depositor.ReferredBy
	for level := 1; level <= len(levelPercentages) && ancestor != nil; level++ {
		referrer, err := e.accounts.FindByID(ctx, *ancestor)
		if err != nil {
			return err
		}

		percentage := levelPercentages[level-1]
		amount := depositAmount.Mul(percentage).Div(decimal.NewFromInt(100))

		if err := e.accounts.CreditEarning(ctx, referrer.ID, amount); err != nil {
			return err
		}

		now := time.Now()
		bonus := &domain.ReferralBonus{
			ID:         uuid.New(),
			ReferrerID: referrer.ID,
			ReferredID: depositorID,
			Level:      level,
			Amount:     amount,
			Percentage: percentage,
			CreatedAt:  now,
		}
		if err := e.bonuses.CreateBonus(ctx, bonus); err != nil {
			return err
		}

		record := &domain.Transaction{
			ID:          uuid.New(),
			AccountID:   referrer.ID,
			Type:        domain.TransactionTypeReferral,
			Amount:      amount,
			Fees:        decimal.Zero,
			Status:      domain.TransactionStatusCompleted,
			Reference:   fmt.Sprintf("REF-L%d-%s", level, depositorID.String()[:8]),
			CreatedAt:   now,
			ProcessedAt: &now,
		}
		if err := e.records.Create(ctx, record); err != nil {
			return err
		}

		e.logger.Info("referral commission credited", map[string]interface{}{
			"referrer_id": referrer.ID,
			"referred_id": depositorID,
			"level":       level,
			"percentage":  percentage.String(),
			"amount":      amount.String(),
		})

		ancestor = referrer.ReferredBy
	}

	return nil
}

type TeamStats struct {
	AccountID   uuid.UUID              `json:"account_id"`
	TotalEarned decimal.Decimal        `json:"total_earned"`
	Bonuses     []*domain.ReferralBonus `json:"bonuses"`
}

// GetReferrerStats summarizes commissions an account has earned from its
// referees.
func (e *Engine) GetReferrerStats(ctx context.Context, referrerID uuid.UUID, limit, offset int) (*TeamStats, error) {
	bonuses, err := e.bonuses.FindByReferrer(ctx, referrerID, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := e.bonuses.SumByReferrer(ctx, referrerID)
	if err != nil {
		return nil, err
	}
	return &TeamStats{
		AccountID:   referrerID,
		TotalEarned: total,
		Bonuses:     bonuses,
	}, nil
}

type AccountRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	CreditEarning(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
}

type BonusRepository interface {
	CreateBonus(ctx context.Context, bonus *domain.ReferralBonus) error
	FindByReferrer(ctx context.Context, referrerID uuid.UUID, limit, offset int) ([]*domain.ReferralBonus, error)
	SumByReferrer(ctx context.Context, referrerID uuid.UUID) (decimal.Decimal, error)
	CountByReferred(ctx context.Context, referredID uuid.UUID) (int, error)
}

type TransactionRepository interface {
	Create(ctx context.Context, tx *domain.Transaction) error
}
