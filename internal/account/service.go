// Package account manages account provisioning, transaction passwords and
// withdrawal destinations.
package account

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"investa/internal/domain"
	"investa/pkg/errors"
	"investa/pkg/logger"
	"investa/pkg/validator"
)

type Service struct {
	accounts  Repository
	bankCards BankCardRepository
	jwtSecret string
	jwtExpiry time.Duration
	logger    logger.Logger
}

func NewService(accounts Repository, bankCards BankCardRepository, jwtSecret string, jwtExpiry time.Duration, log logger.Logger) *Service {
	return &Service{
		accounts:  accounts,
		bankCards: bankCards,
		jwtSecret: jwtSecret,
		jwtExpiry: jwtExpiry,
		logger:    log,
	}
}

type OpenAccountRequest struct {
	TransactionPassword string     `json:"transaction_password" validate:"required,min=6"`
	ReferrerID          *uuid.UUID `json:"referrer_id,omitempty"`
}

// Open provisions a new account with zero balances. When a referrer is
// given it must resolve to an existing account; the link is immutable and
// drives the commission cascade on the account's first approved deposit.
func (s *Service) Open(ctx context.Context, req *OpenAccountRequest) (*domain.Account, error) {
	if req.ReferrerID != nil {
		if _, err := s.accounts.FindByID(ctx, *req.ReferrerID); err != nil {
			return nil, errors.Wrap(err, "referrer lookup failed")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.TransactionPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash transaction password")
	}

	now := time.Now()
	account := &domain.Account{
		ID:                  uuid.New(),
		DepositBalance:      decimal.Zero,
		WithdrawableBalance: decimal.Zero,
		TotalInvested:       decimal.Zero,
		TotalEarned:         decimal.Zero,
		ReferredBy:          req.ReferrerID,
		Status:              domain.AccountStatusActive,
		TxPasswordHash:      string(hash),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("account opened", map[string]interface{}{
		"account_id": account.ID,
		"referred":   account.ReferredBy != nil,
	})
	return account, nil
}

// IssueToken signs a bearer token for the account. Role is carried as a
// claim so admin endpoints can be gated without a second lookup.
func (s *Service) IssueToken(accountID uuid.UUID, role string) (string, time.Time, error) {
	expiresAt := time.Now().Add(s.jwtExpiry)
	claims := jwt.MapClaims{
		"account_id": accountID.String(),
		"role":       role,
		"exp":        expiresAt.Unix(),
		"iat":        time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "failed to sign token")
	}
	return signed, expiresAt, nil
}

type BindCardRequest struct {
	AccountID     uuid.UUID `json:"account_id" validate:"required"`
	HolderName    string    `json:"holder_name" validate:"required"`
	CardNumber    string    `json:"card_number" validate:"required"`
	BankName      string    `json:"bank_name" validate:"required"`
	WalletAddress *string   `json:"wallet_address,omitempty"`
}

// BindCard registers a withdrawal destination. An account holds at most one
// active card; a second bind returns ErrCardAlreadyBound.
func (s *Service) BindCard(ctx context.Context, req *BindCardRequest) (*domain.BankCard, error) {
	card := &domain.BankCard{
		ID:            uuid.New(),
		AccountID:     req.AccountID,
		HolderName:    validator.Sanitize(req.HolderName),
		CardNumber:    validator.Sanitize(req.CardNumber),
		BankName:      validator.Sanitize(req.BankName),
		WalletAddress: req.WalletAddress,
		IsActive:      true,
		CreatedAt:     time.Now(),
	}

	if err := s.bankCards.Create(ctx, card); err != nil {
		return nil, err
	}

	s.logger.Info("bank card bound", map[string]interface{}{"account_id": req.AccountID})
	return card, nil
}

func (s *Service) GetCards(ctx context.Context, accountID uuid.UUID) ([]*domain.BankCard, error) {
	return s.bankCards.FindByAccount(ctx, accountID)
}

// ChangeTransactionPassword rotates the password used to authorize
// withdrawals. The caller must present the current password.
func (s *Service) ChangeTransactionPassword(ctx context.Context, accountID uuid.UUID, current, next string) error {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(account.TxPasswordHash), []byte(current)) != nil {
		return errors.ErrInvalidTransactionPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "failed to hash transaction password")
	}

	return s.accounts.UpdateTxPassword(ctx, accountID, string(hash))
}

func (s *Service) UpdateStatus(ctx context.Context, accountID uuid.UUID, status domain.AccountStatus) error {
	return s.accounts.UpdateStatus(ctx, accountID, status)
}

// ListAccounts pages through all accounts, newest first.
func (s *Service) ListAccounts(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	return s.accounts.FindAll(ctx, limit, offset)
}

// Repository is the persistence contract for accounts.
type Repository interface {
	Create(ctx context.Context, account *domain.Account) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	FindAll(ctx context.Context, limit, offset int) ([]*domain.Account, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AccountStatus) error
	UpdateTxPassword(ctx context.Context, id uuid.UUID, hash string) error
}

// BankCardRepository is the persistence contract for withdrawal destinations.
type BankCardRepository interface {
	Create(ctx context.Context, card *domain.BankCard) error
	FindByAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.BankCard, error)
}
