// Package lifecycle owns the pending/approved/rejected state machine for
// deposits and withdrawals, drives ledger credits, debits and refunds, and
// triggers the referral commission cascade on first approved deposits.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"investa/internal/domain"
	"investa/pkg/errors"
	"investa/pkg/logger"
	"investa/pkg/validator"
)

type Service struct {
	ledger       Ledger
	transactions TransactionRepository
	bankCards    BankCardRepository
	catalog      CatalogRepository
	settings     SettingsService
	cascade      CascadeEngine
	notifier     Notifier
	txManager    TxManager
	baseCurrency string
	logger       logger.Logger
}

func NewService(
	ledgerSvc Ledger,
	transactions TransactionRepository,
	bankCards BankCardRepository,
	catalog CatalogRepository,
	settingsSvc SettingsService,
	cascade CascadeEngine,
	notifier Notifier,
	txManager TxManager,
	baseCurrency string,
	log logger.Logger,
) *Service {
	return &Service{
		ledger:       ledgerSvc,
		transactions: transactions,
		bankCards:    bankCards,
		catalog:      catalog,
		settings:     settingsSvc,
		cascade:      cascade,
		notifier:     notifier,
		txManager:    txManager,
		baseCurrency: baseCurrency,
		logger:       log,
	}
}

type SubmitDepositRequest struct {
	AccountID       uuid.UUID       `json:"account_id" validate:"required"`
	PaymentMethodID uuid.UUID       `json:"payment_method_id" validate:"required"`
	Amount          decimal.Decimal `json:"amount" validate:"required,gt=0"`
	UserReference   string          `json:"user_reference" validate:"required"`
	ProofID         string          `json:"proof_id"`
}

// SubmitDeposit records a pending deposit plus the user-supplied proof. No
// balance changes until an admin approves. Foreign-currency amounts are
// converted to the base currency before any ledger math, with the original
// amount and rate kept as structured metadata.
func (s *Service) SubmitDeposit(ctx context.Context, req *SubmitDepositRequest) (*domain.Transaction, error) {
	account, err := s.ledger.GetAccount(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if err := requireActive(account); err != nil {
		return nil, err
	}

	method, err := s.catalog.FindPaymentMethod(ctx, req.PaymentMethodID)
	if err != nil {
		return nil, err
	}

	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrSettingsUnavailable, err.Error())
	}

	amount := req.Amount
	var fx *domain.ForeignAmount
	if method.Currency != "" && method.Currency != s.baseCurrency {
		amount = req.Amount.Mul(cfg.ExchangeRate)
		fx = &domain.ForeignAmount{
			OriginalAmount:   req.Amount,
			OriginalCurrency: method.Currency,
			ExchangeRate:     cfg.ExchangeRate,
		}
	}

	if amount.LessThan(cfg.MinDeposit) {
		return nil, fmt.Errorf("%w: minimum is %s", errors.ErrBelowMinimumDeposit, cfg.MinDeposit.String())
	}

	methodName := method.Name
	now := time.Now()
	tx := &domain.Transaction{
		ID:        uuid.New(),
		AccountID: req.AccountID,
		Type:      domain.TransactionTypeDeposit,
		Method:    &methodName,
		Amount:    amount,
		Fees:      decimal.Zero,
		Status:    domain.TransactionStatusPending,
		Reference: s.generateReference("DEP"),
		FX:        fx,
		CreatedAt: now,
	}

	err = s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.transactions.Create(ctx, tx); err != nil {
			return err
		}
		return s.transactions.CreateSubmission(ctx, &domain.DepositSubmission{
			TransactionID:   tx.ID,
			PaymentMethodID: req.PaymentMethodID,
			UserReference:   validator.Sanitize(req.UserReference),
			ProofID:         validator.Sanitize(req.ProofID),
			CreatedAt:       now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("deposit submitted", map[string]interface{}{
		"transaction_id": tx.ID,
		"account_id":     req.AccountID,
		"amount":         amount.String(),
		"method":         methodName,
	})
	return tx, nil
}

type SubmitWithdrawalRequest struct {
	AccountID           uuid.UUID        `json:"account_id" validate:"required"`
	Amount              decimal.Decimal  `json:"amount" validate:"required,gt=0"`
	PaymentMethodID     uuid.UUID        `json:"payment_method_id" validate:"required"`
	TransactionPassword string           `json:"transaction_password" validate:"required"`
	OriginalAmount      *decimal.Decimal `json:"original_amount,omitempty"`
}

// SubmitWithdrawal reserves funds immediately: the withdrawable balance is
// debited by amount plus fees at submission, before any admin review, so
// the money cannot be spent twice while the request sits in the queue.
func (s *Service) SubmitWithdrawal(ctx context.Context, req *SubmitWithdrawalRequest) (*domain.Transaction, error) {
	account, err := s.ledger.GetAccount(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if err := requireActive(account); err != nil {
		return nil, err
	}

	// One withdrawal per calendar day. The partial unique index on the
	// transactions table is the authority; this early check just avoids
	// doing password work for an obvious duplicate.
	exists, err := s.transactions.WithdrawalExistsOn(ctx, req.AccountID, time.Now())
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.ErrDuplicateWithdrawal
	}

	hasCard, err := s.bankCards.HasActive(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if !hasCard {
		return nil, errors.ErrNoWithdrawalDestination
	}

	if bcrypt.CompareHashAndPassword([]byte(account.TxPasswordHash), []byte(req.TransactionPassword)) != nil {
		return nil, errors.ErrInvalidTransactionPassword
	}

	method, err := s.catalog.FindPaymentMethod(ctx, req.PaymentMethodID)
	if err != nil {
		return nil, err
	}

	cfg, err := s.settings.Get(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrSettingsUnavailable, err.Error())
	}

	if hour := time.Now().Hour(); hour < cfg.WithdrawalStartHour || hour >= cfg.WithdrawalEndHour {
		return nil, errors.ErrWithdrawalWindowClosed
	}

	amount := req.Amount
	var fx *domain.ForeignAmount
	if req.OriginalAmount != nil && method.Currency != "" && method.Currency != s.baseCurrency {
		amount = req.OriginalAmount.Mul(cfg.ExchangeRate)
		fx = &domain.ForeignAmount{
			OriginalAmount:   *req.OriginalAmount,
			OriginalCurrency: method.Currency,
			ExchangeRate:     cfg.ExchangeRate,
		}
	}

	if amount.LessThan(cfg.MinWithdrawal) {
		return nil, fmt.Errorf("%w: minimum is %s", errors.ErrBelowMinimumWithdraw, cfg.MinWithdrawal.String())
	}

	fees := amount.Mul(cfg.WithdrawalFeeRate).Div(decimal.NewFromInt(100))
	total := amount.Add(fees)

	methodName := method.Name
	tx := &domain.Transaction{
		ID:        uuid.New(),
		AccountID: req.AccountID,
		Type:      domain.TransactionTypeWithdrawal,
		Method:    &methodName,
		Amount:    amount,
		Fees:      fees,
		Status:    domain.TransactionStatusPending,
		Reference: s.generateReference("WDR"),
		FX:        fx,
		CreatedAt: time.Now(),
	}

	// Insert and debit inside one database transaction: the unique index
	// closes the race between two concurrent submissions passing the daily
	// check, and a failed debit rolls the row back out.
	err = s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.transactions.Create(ctx, tx); err != nil {
			return err
		}
		return s.ledger.Debit(ctx, req.AccountID, total, domain.BalanceWithdrawable)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("withdrawal submitted", map[string]interface{}{
		"transaction_id": tx.ID,
		"account_id":     req.AccountID,
		"amount":         amount.String(),
		"fees":           fees.String(),
	})
	return tx, nil
}

// Approve transitions a pending transaction to approved. A deposit approval
// credits the deposit balance and, if it is the account's first approved
// deposit, runs the commission cascade in the same database transaction. A
// withdrawal approval changes no balances: the funds were reserved at
// submission.
func (s *Service) Approve(ctx context.Context, transactionID uuid.UUID, adminNotes string) (*domain.Transaction, error) {
	var reviewed *domain.Transaction
	var firstDeposit bool

	err := s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		tx, err := s.transactions.MarkReviewed(ctx, transactionID, domain.TransactionStatusApproved, validator.Sanitize(adminNotes))
		if err != nil {
			return err
		}
		reviewed = tx

		if tx.Type == domain.TransactionTypeDeposit {
			if err := s.ledger.Credit(ctx, tx.AccountID, tx.Amount, domain.BalanceDeposit); err != nil {
				return err
			}
			approved, err := s.transactions.CountApprovedDeposits(ctx, tx.AccountID)
			if err != nil {
				return err
			}
			if approved == 1 {
				firstDeposit = true
				if err := s.cascade.RunCascade(ctx, tx.AccountID, tx.Amount); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("transaction approved", map[string]interface{}{
		"transaction_id": reviewed.ID,
		"account_id":     reviewed.AccountID,
		"type":           string(reviewed.Type),
		"first_deposit":  firstDeposit,
	})

	go func() {
		event := "DEPOSIT_APPROVED"
		if reviewed.Type == domain.TransactionTypeWithdrawal {
			event = "WITHDRAWAL_APPROVED"
		}
		_ = s.notifier.Notify(context.Background(), reviewed.AccountID, event, map[string]interface{}{
			"amount": reviewed.Amount.String(),
		})
	}()

	return reviewed, nil
}

// Reject transitions a pending transaction to rejected. A rejected deposit
// changes no balances (nothing was credited); a rejected withdrawal refunds
// the reserved amount plus fees.
func (s *Service) Reject(ctx context.Context, transactionID uuid.UUID, adminNotes string) (*domain.Transaction, error) {
	var reviewed *domain.Transaction

	err := s.txManager.WithinTransaction(ctx, func(ctx context.Context) error {
		tx, err := s.transactions.MarkReviewed(ctx, transactionID, domain.TransactionStatusRejected, validator.Sanitize(adminNotes))
		if err != nil {
			return err
		}
		reviewed = tx

		if tx.Type == domain.TransactionTypeWithdrawal {
			return s.ledger.Refund(ctx, tx.AccountID, tx.Amount.Add(tx.Fees), domain.BalanceWithdrawable)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("transaction rejected", map[string]interface{}{
		"transaction_id": reviewed.ID,
		"account_id":     reviewed.AccountID,
		"type":           string(reviewed.Type),
	})

	go func() {
		event := "DEPOSIT_REJECTED"
		if reviewed.Type == domain.TransactionTypeWithdrawal {
			event = "WITHDRAWAL_REJECTED"
		}
		_ = s.notifier.Notify(context.Background(), reviewed.AccountID, event, map[string]interface{}{
			"amount": reviewed.Amount.String(),
			"reason": reviewed.AdminNotes,
		})
	}()

	return reviewed, nil
}

func (s *Service) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return s.transactions.FindByID(ctx, id)
}

// DepositDetail pairs a deposit transaction with the payment evidence the
// account holder submitted for review.
type DepositDetail struct {
	Transaction *domain.Transaction       `json:"transaction"`
	Submission  *domain.DepositSubmission `json:"submission"`
}

// GetDepositDetail loads a deposit and its submission for admin review.
func (s *Service) GetDepositDetail(ctx context.Context, id uuid.UUID) (*DepositDetail, error) {
	tx, err := s.transactions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.Type != domain.TransactionTypeDeposit {
		return nil, errors.ErrTransactionNotFound
	}
	sub, err := s.transactions.FindSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	return &DepositDetail{Transaction: tx, Submission: sub}, nil
}

func (s *Service) ListTransactions(ctx context.Context, accountID uuid.UUID, typeFilter *domain.TransactionType, limit, offset int) ([]*domain.Transaction, int, error) {
	txs, err := s.transactions.FindByAccount(ctx, accountID, typeFilter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.transactions.CountByAccount(ctx, accountID, typeFilter)
	if err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

func (s *Service) ListPending(ctx context.Context, limit, offset int) ([]*domain.Transaction, error) {
	return s.transactions.FindByStatus(ctx, domain.TransactionStatusPending, limit, offset)
}

func (s *Service) ListPaymentMethods(ctx context.Context) ([]*domain.PaymentMethod, error) {
	return s.catalog.ListPaymentMethods(ctx)
}

func (s *Service) generateReference(prefix string) string {
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().Unix(), uuid.New().String()[:8])
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

// Dependency contracts

type Ledger interface {
	GetAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)
	Credit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, kind domain.BalanceKind) error
	Debit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, kind domain.BalanceKind) error
	Refund(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, kind domain.BalanceKind) error
}

type TransactionRepository interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	CreateSubmission(ctx context.Context, sub *domain.DepositSubmission) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	FindSubmission(ctx context.Context, transactionID uuid.UUID) (*domain.DepositSubmission, error)
	MarkReviewed(ctx context.Context, id uuid.UUID, status domain.TransactionStatus, adminNotes string) (*domain.Transaction, error)
	FindByAccount(ctx context.Context, accountID uuid.UUID, typeFilter *domain.TransactionType, limit, offset int) ([]*domain.Transaction, error)
	CountByAccount(ctx context.Context, accountID uuid.UUID, typeFilter *domain.TransactionType) (int, error)
	FindByStatus(ctx context.Context, status domain.TransactionStatus, limit, offset int) ([]*domain.Transaction, error)
	CountApprovedDeposits(ctx context.Context, accountID uuid.UUID) (int, error)
	WithdrawalExistsOn(ctx context.Context, accountID uuid.UUID, day time.Time) (bool, error)
}

type BankCardRepository interface {
	HasActive(ctx context.Context, accountID uuid.UUID) (bool, error)
}

type CatalogRepository interface {
	FindPaymentMethod(ctx context.Context, id uuid.UUID) (*domain.PaymentMethod, error)
	ListPaymentMethods(ctx context.Context) ([]*domain.PaymentMethod, error)
}

type SettingsService interface {
	Get(ctx context.Context) (*domain.PlatformSettings, error)
}

type CascadeEngine interface {
	RunCascade(ctx context.Context, depositorID uuid.UUID, depositAmount decimal.Decimal) error
}

type Notifier interface {
	Notify(ctx context.Context, accountID uuid.UUID, eventType string, data map[string]interface{}) error
}

type TxManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
