// Package ledger exposes the account ledger: two balances per account and
// atomic credit/debit operations over them.
package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"investa/internal/domain"
	"investa/pkg/errors"
	"investa/pkg/logger"
)

type Service struct {
	repo   Repository
	logger logger.Logger
}

func NewService(repo Repository, log logger.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: log,
	}
}

// Credit increases the chosen balance; never fails for a positive amount on
// an existing account.
func (s *Service) Credit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, kind domain.BalanceKind) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return errors.Wrap(errors.ErrAmountOutOfRange, "credit amount must be positive")
	}
	if err := s.repo.Credit(ctx, accountID, amount, kind); err != nil {
		return err
	}
	s.logger.Debug("account credited", map[string]interface{}{
		"account_id": accountID,
		"amount":     amount.String(),
		"balance":    string(kind),
	})
	return nil
}

// Debit checks sufficiency and decrements in one step. The check and the
// write happen in a single store operation, never as separate reads.
func (s *Service) Debit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, kind domain.BalanceKind) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return errors.Wrap(errors.ErrAmountOutOfRange, "debit amount must be positive")
	}
	if err := s.repo.Debit(ctx, accountID, amount, kind); err != nil {
		return err
	}
	s.logger.Debug("account debited", map[string]interface{}{
		"account_id": accountID,
		"amount":     amount.String(),
		"balance":    string(kind),
	})
	return nil
}

// DebitCombined consumes the deposit balance first, any remainder from the
// withdrawable balance; fails with no partial deduction if the sum is short.
func (s *Service) DebitCombined(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return errors.Wrap(errors.ErrAmountOutOfRange, "debit amount must be positive")
	}
	return s.repo.DebitCombined(ctx, accountID, amount)
}

// Refund reverses a prior debit after a withdrawal rejection.
func (s *Service) Refund(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, kind domain.BalanceKind) error {
	if err := s.repo.Refund(ctx, accountID, amount, kind); err != nil {
		return err
	}
	s.logger.Info("account refunded", map[string]interface{}{
		"account_id": accountID,
		"amount":     amount.String(),
		"balance":    string(kind),
	})
	return nil
}

// CreditEarning credits the withdrawable balance and the total-earned
// counter in one operation.
func (s *Service) CreditEarning(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) error {
	return s.repo.CreditEarning(ctx, accountID, amount)
}

// AddInvested bumps the monotone audit counter after a purchase.
func (s *Service) AddInvested(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) error {
	return s.repo.AddInvested(ctx, accountID, amount)
}

func (s *Service) GetAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	return s.repo.FindByID(ctx, accountID)
}

type BalancesResponse struct {
	AccountID           uuid.UUID       `json:"account_id"`
	DepositBalance      decimal.Decimal `json:"deposit_balance"`
	WithdrawableBalance decimal.Decimal `json:"withdrawable_balance"`
	TotalInvested       decimal.Decimal `json:"total_invested"`
	TotalEarned         decimal.Decimal `json:"total_earned"`
}

func (s *Service) GetBalances(ctx context.Context, accountID uuid.UUID) (*BalancesResponse, error) {
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &BalancesResponse{
		AccountID:           account.ID,
		DepositBalance:      account.DepositBalance,
		WithdrawableBalance: account.WithdrawableBalance,
		TotalInvested:       account.TotalInvested,
		TotalEarned:         account.TotalEarned,
	}, nil
}

type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	Credit(ctx context.Context, id uuid.UUID, amount decimal.Decimal, kind domain.BalanceKind) error
	Debit(ctx context.Context, id uuid.UUID, amount decimal.Decimal, kind domain.BalanceKind) error
	DebitCombined(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
	Refund(ctx context.Context, id uuid.UUID, amount decimal.Decimal, kind domain.BalanceKind) error
	CreditEarning(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
	AddInvested(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
}
