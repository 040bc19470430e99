package account

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"investa/internal/domain"
	"investa/pkg/errors"
	"investa/pkg/logger"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockRepository) FindAll(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Account), args.Error(1)
}

func (m *MockRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.AccountStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockRepository) UpdateTxPassword(ctx context.Context, id uuid.UUID, hash string) error {
	args := m.Called(ctx, id, hash)
	return args.Error(0)
}

type MockBankCardRepository struct {
	mock.Mock
}

func (m *MockBankCardRepository) Create(ctx context.Context, card *domain.BankCard) error {
	args := m.Called(ctx, card)
	return args.Error(0)
}

func (m *MockBankCardRepository) FindByAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.BankCard, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.BankCard), args.Error(1)
}

func newTestService(accounts *MockRepository, cards *MockBankCardRepository) *Service {
	return NewService(accounts, cards, "test-secret", 15*time.Minute, logger.NewNop())
}

func TestOpenLinksReferrer(t *testing.T) {
	accounts := new(MockRepository)
	cards := new(MockBankCardRepository)
	service := newTestService(accounts, cards)
	ctx := context.Background()

	referrerID := uuid.New()
	accounts.On("FindByID", ctx, referrerID).Return(&domain.Account{ID: referrerID}, nil)

	var created *domain.Account
	accounts.On("Create", ctx, mock.AnythingOfType("*domain.Account")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*domain.Account) }).Return(nil)

	acct, err := service.Open(ctx, &OpenAccountRequest{
		TransactionPassword: "secret123",
		ReferrerID:          &referrerID,
	})

	require.NoError(t, err)
	require.NotNil(t, acct.ReferredBy)
	assert.Equal(t, referrerID, *acct.ReferredBy)
	assert.Equal(t, domain.AccountStatusActive, acct.Status)
	assert.True(t, acct.DepositBalance.IsZero())
	assert.True(t, acct.WithdrawableBalance.IsZero())

	// The stored hash verifies against the chosen password.
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.TxPasswordHash), []byte("secret123")))
}

func TestOpenRejectsUnknownReferrer(t *testing.T) {
	accounts := new(MockRepository)
	cards := new(MockBankCardRepository)
	service := newTestService(accounts, cards)
	ctx := context.Background()

	referrerID := uuid.New()
	accounts.On("FindByID", ctx, referrerID).Return(nil, errors.ErrAccountNotFound)

	_, err := service.Open(ctx, &OpenAccountRequest{
		TransactionPassword: "secret123",
		ReferrerID:          &referrerID,
	})

	assert.ErrorIs(t, err, errors.ErrAccountNotFound)
	accounts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestBindCardPropagatesAlreadyBound(t *testing.T) {
	accounts := new(MockRepository)
	cards := new(MockBankCardRepository)
	service := newTestService(accounts, cards)
	ctx := context.Background()

	cards.On("Create", ctx, mock.AnythingOfType("*domain.BankCard")).Return(errors.ErrCardAlreadyBound)

	_, err := service.BindCard(ctx, &BindCardRequest{
		AccountID:  uuid.New(),
		HolderName: "Awa Diop",
		CardNumber: "0011223344",
		BankName:   "Ecobank",
	})

	assert.ErrorIs(t, err, errors.ErrCardAlreadyBound)
}

func TestChangeTransactionPassword(t *testing.T) {
	accounts := new(MockRepository)
	cards := new(MockBankCardRepository)
	service := newTestService(accounts, cards)
	ctx := context.Background()

	accountID := uuid.New()
	hash, _ := bcrypt.GenerateFromPassword([]byte("old-pass"), bcrypt.MinCost)
	accounts.On("FindByID", ctx, accountID).Return(&domain.Account{
		ID:             accountID,
		TxPasswordHash: string(hash),
	}, nil)
	accounts.On("UpdateTxPassword", ctx, accountID, mock.AnythingOfType("string")).Return(nil)

	err := service.ChangeTransactionPassword(ctx, accountID, "old-pass", "new-pass")
	assert.NoError(t, err)

	err = service.ChangeTransactionPassword(ctx, accountID, "wrong", "new-pass")
	assert.ErrorIs(t, err, errors.ErrInvalidTransactionPassword)
}

func TestIssueToken(t *testing.T) {
	accounts := new(MockRepository)
	cards := new(MockBankCardRepository)
	service := newTestService(accounts, cards)

	token, expiresAt, err := service.IssueToken(uuid.New(), "user")

	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 2*time.Second)
}
