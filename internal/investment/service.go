// Package investment validates and executes VIP and staking purchases
// against the account ledger.
package investment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"investa/internal/domain"
	"investa/internal/ledger"
	"investa/pkg/errors"
	"investa/pkg/logger"
)

type Service struct {
	ledger      *ledger.Service
	investments Repository
	txRecords   TransactionRepository
	catalog     CatalogRepository
	txManager   TxManager
	logger      logger.Logger
}

func NewService(
	ledgerSvc *ledger.Service,
	investments Repository,
	txRecords TransactionRepository,
	catalog CatalogRepository,
	txManager TxManager,
	log logger.Logger,
) *Service {
	return &Service{
		ledger:      ledgerSvc,
		investments: investments,
		txRecords:   txRecords,
		catalog:     catalog,
		txManager:   txManager,
		logger:      log,
	}
}

type CreateVIPRequest struct {
	AccountID uuid.UUID       `json:"account_id" validate:"required"`
	PackageID uuid.UUID       `json:"package_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount" validate:"required,gt=0"`
}

// CreateVIPInvestment buys an open-ended VIP package. The purchase draws
// from the deposit balance; the availability check and the debit target the
// same balance.
func (s *Service) CreateVIPInvestment(ctx context.Context, req *CreateVIPRequest) (*domain.VIPInvestment, error) {
	account, err := s.ledger.GetAccount(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if err := requireActive(account); err != nil {
		return nil, err
	}

	pkg, err := s.catalog.FindVIPPackage(ctx, req.PackageID)
	if err != nil {
		return nil, err
	}
	if req.Amount.LessThan(pkg.MinAmount) || req.Amount.GreaterThan(pkg.MaxAmount) {
		return nil, fmt.Errorf("%w: package %s accepts %s to %s",
			errors.ErrAmountOutOfRange, pkg.Name, pkg.MinAmount.String(), pkg.MaxAmount.String())
	}

	inv := &domain.VIPInvestment{
		ID:            uuid.New(),
		AccountID:     req.AccountID,
		PackageID:     pkg.ID,
		Amount:        req.Amount,
		DailyRate:     pkg.DailyRate,
		DailyEarnings: dailyEarnings(req.Amount, pkg.DailyRate),
		Status:        domain.InvestmentStatusActive,
		CreatedAt:     time.Now(),
	}

	err = s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.ledger.Debit(ctx, req.AccountID, req.Amount, domain.BalanceDeposit); err != nil {
			return err
		}
		if err := s.investments.CreateVIP(ctx, inv); err != nil {
			return err
		}
		if err := s.ledger.AddInvested(ctx, req.AccountID, req.Amount); err != nil {
			return err
		}
		return s.txRecords.Create(ctx, investmentRecord(req.AccountID, req.Amount, "VIP-"+pkg.Name))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("vip investment created", map[string]interface{}{
		"investment_id": inv.ID,
		"account_id":    req.AccountID,
		"package_id":    pkg.ID,
		"amount":        req.Amount.String(),
	})
	return inv, nil
}

type CreateStakingRequest struct {
	AccountID uuid.UUID       `json:"account_id" validate:"required"`
	PlanID    uuid.UUID       `json:"plan_id" validate:"required"`
	Amount    decimal.Decimal `json:"amount" validate:"required,gt=0"`
}

// CreateStakingInvestment locks funds into a fixed-duration plan. Staking
// spends the combined pool: deposit balance first, then withdrawable.
func (s *Service) CreateStakingInvestment(ctx context.Context, req *CreateStakingRequest) (*domain.StakingInvestment, error) {
	account, err := s.ledger.GetAccount(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if err := requireActive(account); err != nil {
		return nil, err
	}

	plan, err := s.catalog.FindStakingPlan(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	if req.Amount.LessThan(plan.MinAmount) {
		return nil, fmt.Errorf("%w: plan %s requires at least %s",
			errors.ErrBelowMinimumStake, plan.Name, plan.MinAmount.String())
	}

	now := time.Now()
	inv := &domain.StakingInvestment{
		ID:            uuid.New(),
		AccountID:     req.AccountID,
		PlanID:        plan.ID,
		Amount:        req.Amount,
		DailyRate:     plan.DailyRate,
		DailyEarnings: dailyEarnings(req.Amount, plan.DailyRate),
		DurationDays:  plan.DurationDays,
		UnlockDate:    now.AddDate(0, 0, plan.DurationDays),
		Status:        domain.InvestmentStatusActive,
		CreatedAt:     now,
	}

	err = s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.ledger.DebitCombined(ctx, req.AccountID, req.Amount); err != nil {
			return err
		}
		if err := s.investments.CreateStaking(ctx, inv); err != nil {
			return err
		}
		if err := s.ledger.AddInvested(ctx, req.AccountID, req.Amount); err != nil {
			return err
		}
		return s.txRecords.Create(ctx, investmentRecord(req.AccountID, req.Amount, "STK-"+plan.Name))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("staking investment created", map[string]interface{}{
		"investment_id": inv.ID,
		"account_id":    req.AccountID,
		"plan_id":       plan.ID,
		"amount":        req.Amount.String(),
		"unlock_date":   inv.UnlockDate,
	})
	return inv, nil
}

// RedeemStaking completes a matured staking position and returns the
// principal to the withdrawable balance. Positions still inside their lock
// period cannot be redeemed. The total-invested counter records lifetime
// purchases and is not touched here.
func (s *Service) RedeemStaking(ctx context.Context, accountID, investmentID uuid.UUID) (*domain.StakingInvestment, error) {
	inv, err := s.investments.FindStakingByID(ctx, investmentID)
	if err != nil {
		return nil, err
	}
	if inv.AccountID != accountID {
		return nil, errors.ErrInvestmentNotFound
	}
	if inv.Status != domain.InvestmentStatusActive {
		return nil, errors.ErrInvestmentNotFound
	}
	if time.Now().Before(inv.UnlockDate) {
		return nil, fmt.Errorf("%w: unlocks at %s",
			errors.ErrInvestmentLocked, inv.UnlockDate.Format(time.RFC3339))
	}

	err = s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.investments.UpdateStakingStatus(ctx, inv.ID,
			domain.InvestmentStatusActive, domain.InvestmentStatusCompleted); err != nil {
			return err
		}
		return s.ledger.Credit(ctx, accountID, inv.Amount, domain.BalanceWithdrawable)
	})
	if err != nil {
		return nil, err
	}

	inv.Status = domain.InvestmentStatusCompleted
	s.logger.Info("staking investment redeemed", map[string]interface{}{
		"investment_id": inv.ID,
		"account_id":    accountID,
		"amount":        inv.Amount.String(),
	})
	return inv, nil
}

// CloseVIPInvestment ends an open-ended VIP position and returns the
// principal to the deposit balance it was paid from. The total-invested
// counter records lifetime purchases and is not touched here.
func (s *Service) CloseVIPInvestment(ctx context.Context, accountID, investmentID uuid.UUID) (*domain.VIPInvestment, error) {
	inv, err := s.investments.FindVIPByID(ctx, investmentID)
	if err != nil {
		return nil, err
	}
	if inv.AccountID != accountID {
		return nil, errors.ErrInvestmentNotFound
	}
	if inv.Status != domain.InvestmentStatusActive {
		return nil, errors.ErrInvestmentNotFound
	}

	err = s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.investments.UpdateVIPStatus(ctx, inv.ID,
			domain.InvestmentStatusActive, domain.InvestmentStatusCompleted); err != nil {
			return err
		}
		return s.ledger.Credit(ctx, accountID, inv.Amount, domain.BalanceDeposit)
	})
	if err != nil {
		return nil, err
	}

	inv.Status = domain.InvestmentStatusCompleted
	s.logger.Info("vip investment closed", map[string]interface{}{
		"investment_id": inv.ID,
		"account_id":    accountID,
		"amount":        inv.Amount.String(),
	})
	return inv, nil
}

func (s *Service) GetAccountInvestments(ctx context.Context, accountID uuid.UUID) ([]*domain.VIPInvestment, []*domain.StakingInvestment, error) {
	vip, err := s.investments.FindVIPByAccount(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}
	staking, err := s.investments.FindStakingByAccount(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}
	return vip, staking, nil
}

func (s *Service) ListVIPPackages(ctx context.Context) ([]*domain.VIPPackage, error) {
	return s.catalog.ListVIPPackages(ctx)
}

func (s *Service) ListStakingPlans(ctx context.Context) ([]*domain.StakingPlan, error) {
	return s.catalog.ListStakingPlans(ctx)
}

func requireActive(account *domain.Account) error {
	switch account.Status {
	case domain.AccountStatusBlocked:
		return errors.ErrAccountBlocked
	case domain.AccountStatusInactive:
		return errors.ErrAccountInactive
	}
	return nil
}

func dailyEarnings(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(decimal.NewFromInt(100))
}

func investmentRecord(accountID uuid.UUID, amount decimal.Decimal, product string) *domain.Transaction {
	now := time.Now()
	return &domain.Transaction{
		ID:          uuid.New(),
		AccountID:   accountID,
		Type:        domain.TransactionTypeInvestment,
		Amount:      amount,
		Fees:        decimal.Zero,
		Status:      domain.TransactionStatusCompleted,
		Reference:   fmt.Sprintf("%s-%d-%s", product, now.Unix(), uuid.New().String()[:8]),
		CreatedAt:   now,
		ProcessedAt: &now,
	}
}

type Repository interface {
	CreateVIP(ctx context.Context, inv *domain.VIPInvestment) error
	CreateStaking(ctx context.Context, inv *domain.StakingInvestment) error
	FindVIPByID(ctx context.Context, id uuid.UUID) (*domain.VIPInvestment, error)
	FindStakingByID(ctx context.Context, id uuid.UUID) (*domain.StakingInvestment, error)
	FindVIPByAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.VIPInvestment, error)
	FindStakingByAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.StakingInvestment, error)
	UpdateVIPStatus(ctx context.Context, id uuid.UUID, from, to domain.InvestmentStatus) error
	UpdateStakingStatus(ctx context.Context, id uuid.UUID, from, to domain.InvestmentStatus) error
}

type TransactionRepository interface {
	Create(ctx context.Context, tx *domain.Transaction) error
}

type CatalogRepository interface {
	FindVIPPackage(ctx context.Context, id uuid.UUID) (*domain.VIPPackage, error)
	FindStakingPlan(ctx context.Context, id uuid.UUID) (*domain.StakingPlan, error)
	ListVIPPackages(ctx context.Context) ([]*domain.VIPPackage, error)
	ListStakingPlans(ctx context.Context) ([]*domain.StakingPlan, error)
}

type TxManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
