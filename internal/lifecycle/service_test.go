package lifecycle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"investa/internal/domain"
	"investa/pkg/errors"
	"investa/pkg/logger"
)

// --- Mocks ---

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) GetAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockLedger) Credit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, kind domain.BalanceKind) error {
	args := m.Called(ctx, accountID, amount, kind)
	return args.Error(0)
}

func (m *MockLedger) Debit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, kind domain.BalanceKind) error {
	args := m.Called(ctx, accountID, amount, kind)
	return args.Error(0)
}

func (m *MockLedger) Refund(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, kind domain.BalanceKind) error {
	args := m.Called(ctx, accountID, amount, kind)
	return args.Error(0)
}

type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) CreateSubmission(ctx context.Context, sub *domain.DepositSubmission) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindSubmission(ctx context.Context, transactionID uuid.UUID) (*domain.DepositSubmission, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DepositSubmission), args.Error(1)
}

func (m *MockTransactionRepository) MarkReviewed(ctx context.Context, id uuid.UUID, status domain.TransactionStatus, adminNotes string) (*domain.Transaction, error) {
	args := m.Called(ctx, id, status, adminNotes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindByAccount(ctx context.Context, accountID uuid.UUID, typeFilter *domain.TransactionType, limit, offset int) ([]*domain.Transaction, error) {
	args := m.Called(ctx, accountID, typeFilter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) CountByAccount(ctx context.Context, accountID uuid.UUID, typeFilter *domain.TransactionType) (int, error) {
	args := m.Called(ctx, accountID, typeFilter)
	return args.Int(0), args.Error(1)
}

func (m *MockTransactionRepository) FindByStatus(ctx context.Context, status domain.TransactionStatus, limit, offset int) ([]*domain.Transaction, error) {
	args := m.Called(ctx, status, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) CountApprovedDeposits(ctx context.Context, accountID uuid.UUID) (int, error) {
	args := m.Called(ctx, accountID)
	return args.Int(0), args.Error(1)
}

func (m *MockTransactionRepository) WithdrawalExistsOn(ctx context.Context, accountID uuid.UUID, day time.Time) (bool, error) {
	args := m.Called(ctx, accountID, day)
	return args.Bool(0), args.Error(1)
}

type MockBankCardRepository struct {
	mock.Mock
}

func (m *MockBankCardRepository) HasActive(ctx context.Context, accountID uuid.UUID) (bool, error) {
	args := m.Called(ctx, accountID)
	return args.Bool(0), args.Error(1)
}

type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) FindPaymentMethod(ctx context.Context, id uuid.UUID) (*domain.PaymentMethod, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentMethod), args.Error(1)
}

func (m *MockCatalogRepository) ListPaymentMethods(ctx context.Context) ([]*domain.PaymentMethod, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PaymentMethod), args.Error(1)
}

type MockCascadeEngine struct {
	mock.Mock
}

func (m *MockCascadeEngine) RunCascade(ctx context.Context, depositorID uuid.UUID, depositAmount decimal.Decimal) error {
	args := m.Called(ctx, depositorID, depositAmount)
	return args.Error(0)
}

type stubSettings struct {
	settings *domain.PlatformSettings
}

func (s *stubSettings) Get(ctx context.Context) (*domain.PlatformSettings, error) {
	return s.settings, nil
}

// nopNotifier swallows the fire-and-forget notifications Approve/Reject send.
type nopNotifier struct{}

func (nopNotifier) Notify(ctx context.Context, accountID uuid.UUID, eventType string, data map[string]interface{}) error {
	return nil
}

type fakeTxManager struct{}

func (fakeTxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// --- Helpers ---

func defaultSettings() *domain.PlatformSettings {
	return &domain.PlatformSettings{
		WithdrawalFeeRate:   decimal.NewFromInt(10),
		MinDeposit:          decimal.NewFromInt(3000),
		MinWithdrawal:       decimal.NewFromInt(1000),
		ExchangeRate:        decimal.NewFromInt(600),
		WithdrawalStartHour: 0,
		WithdrawalEndHour:   24,
	}
}

type testEnv struct {
	ledger    *MockLedger
	txRepo    *MockTransactionRepository
	bankCards *MockBankCardRepository
	catalog   *MockCatalogRepository
	cascade   *MockCascadeEngine
	settings  *stubSettings
	service   *Service
}

func newTestEnv() *testEnv {
	env := &testEnv{
		ledger:    new(MockLedger),
		txRepo:    new(MockTransactionRepository),
		bankCards: new(MockBankCardRepository),
		catalog:   new(MockCatalogRepository),
		cascade:   new(MockCascadeEngine),
		settings:  &stubSettings{settings: defaultSettings()},
	}
	env.service = NewService(
		env.ledger, env.txRepo, env.bankCards, env.catalog,
		env.settings, env.cascade, nopNotifier{}, fakeTxManager{},
		"XOF", logger.NewNop(),
	)
	return env
}

func activeAccount(id uuid.UUID, password string) *domain.Account {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return &domain.Account{
		ID:             id,
		Status:         domain.AccountStatusActive,
		TxPasswordHash: string(hash),
	}
}

// --- Deposit submission ---

func TestSubmitDeposit(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	accountID := uuid.New()
	methodID := uuid.New()

	env.ledger.On("GetAccount", ctx, accountID).Return(activeAccount(accountID, "pw"), nil)
	env.catalog.On("FindPaymentMethod", ctx, methodID).Return(&domain.PaymentMethod{
		ID: methodID, Name: "Orange Money", Currency: "XOF", IsActive: true,
	}, nil)

	var createdTx *domain.Transaction
	env.txRepo.On("Create", ctx, mock.AnythingOfType("*domain.Transaction")).
		Run(func(args mock.Arguments) { createdTx = args.Get(1).(*domain.Transaction) }).Return(nil)
	env.txRepo.On("CreateSubmission", ctx, mock.AnythingOfType("*domain.DepositSubmission")).Return(nil)

	tx, err := env.service.SubmitDeposit(ctx, &SubmitDepositRequest{
		AccountID:       accountID,
		PaymentMethodID: methodID,
		Amount:          decimal.NewFromInt(5000),
		UserReference:   "OM-12345",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusPending, tx.Status)
	assert.Equal(t, domain.TransactionTypeDeposit, tx.Type)
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(5000)))
	assert.Nil(t, tx.FX)
	assert.Equal(t, createdTx.ID, tx.ID)

	// No balance movement before review.
	env.ledger.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitDepositForeignCurrency(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	accountID := uuid.New()
	methodID := uuid.New()

	env.ledger.On("GetAccount", ctx, accountID).Return(activeAccount(accountID, "pw"), nil)
	env.catalog.On("FindPaymentMethod", ctx, methodID).Return(&domain.PaymentMethod{
		ID: methodID, Name: "USDT TRC20", Currency: "USDT", IsActive: true,
	}, nil)
	env.txRepo.On("Create", ctx, mock.Anything).Return(nil)
	env.txRepo.On("CreateSubmission", ctx, mock.Anything).Return(nil)

	tx, err := env.service.SubmitDeposit(ctx, &SubmitDepositRequest{
		AccountID:       accountID,
		PaymentMethodID: methodID,
		Amount:          decimal.NewFromInt(10),
		UserReference:   "tx-hash",
	})

	require.NoError(t, err)
	// 10 USDT at rate 600 books as 6,000 in base currency.
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(6000)))
	require.NotNil(t, tx.FX)
	assert.True(t, tx.FX.OriginalAmount.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "USDT", tx.FX.OriginalCurrency)
	assert.True(t, tx.FX.ExchangeRate.Equal(decimal.NewFromInt(600)))
}

func TestSubmitDepositBelowMinimum(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	accountID := uuid.New()
	methodID := uuid.New()

	env.ledger.On("GetAccount", ctx, accountID).Return(activeAccount(accountID, "pw"), nil)
	env.catalog.On("FindPaymentMethod", ctx, methodID).Return(&domain.PaymentMethod{
		ID: methodID, Name: "Orange Money", Currency: "XOF", IsActive: true,
	}, nil)

	_, err := env.service.SubmitDeposit(ctx, &SubmitDepositRequest{
		AccountID:       accountID,
		PaymentMethodID: methodID,
		Amount:          decimal.NewFromInt(2999),
		UserReference:   "OM-1",
	})

	assert.ErrorIs(t, err, errors.ErrBelowMinimumDeposit)
	env.txRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// --- Withdrawal submission ---

func TestSubmitWithdrawalReservesFunds(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	accountID := uuid.New()
	methodID := uuid.New()

	env.ledger.On("GetAccount", ctx, accountID).Return(activeAccount(accountID, "secret123"), nil)
	env.txRepo.On("WithdrawalExistsOn", ctx, accountID, mock.AnythingOfType("time.Time")).Return(false, nil)
	env.bankCards.On("HasActive", ctx, accountID).Return(true, nil)
	env.catalog.On("FindPaymentMethod", ctx, methodID).Return(&domain.PaymentMethod{
		ID: methodID, Name: "Orange Money", Currency: "XOF", IsActive: true,
	}, nil)
	env.txRepo.On("Create", ctx, mock.AnythingOfType("*domain.Transaction")).Return(nil)

	var reserved decimal.Decimal
	env.ledger.On("Debit", ctx, accountID, mock.AnythingOfType("decimal.Decimal"), domain.BalanceWithdrawable).
		Run(func(args mock.Arguments) { reserved = args.Get(2).(decimal.Decimal) }).Return(nil)

	tx, err := env.service.SubmitWithdrawal(ctx, &SubmitWithdrawalRequest{
		AccountID:           accountID,
		Amount:              decimal.NewFromInt(2000),
		PaymentMethodID:     methodID,
		TransactionPassword: "secret123",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.TransactionStatusPending, tx.Status)
	assert.True(t, tx.Fees.Equal(decimal.NewFromInt(200)), "10%% fee on 2000")
	require.NotNil(t, tx.Method)
	assert.Equal(t, "Orange Money", *tx.Method)
	// Amount plus fees leaves the balance at submission.
	assert.True(t, reserved.Equal(decimal.NewFromInt(2200)))
}

func TestSubmitWithdrawalForeignCurrency(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	accountID := uuid.New()
	methodID := uuid.New()

	env.ledger.On("GetAccount", ctx, accountID).Return(activeAccount(accountID, "secret123"), nil)
	env.txRepo.On("WithdrawalExistsOn", ctx, accountID, mock.Anything).Return(false, nil)
	env.bankCards.On("HasActive", ctx, accountID).Return(true, nil)
	env.catalog.On("FindPaymentMethod", ctx, methodID).Return(&domain.PaymentMethod{
		ID: methodID, Name: "USDT TRC20", Currency: "USDT", IsActive: true,
	}, nil)
	env.txRepo.On("Create", ctx, mock.Anything).Return(nil)
	env.ledger.On("Debit", ctx, accountID, mock.Anything, domain.BalanceWithdrawable).Return(nil)

	original := decimal.NewFromInt(5)
	tx, err := env.service.SubmitWithdrawal(ctx, &SubmitWithdrawalRequest{
		AccountID:           accountID,
		Amount:              decimal.NewFromInt(3000),
		PaymentMethodID:     methodID,
		TransactionPassword: "secret123",
		OriginalAmount:      &original,
	})

	require.NoError(t, err)
	// 5 USDT at rate 600 books as 3,000 in base currency.
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(3000)))
	require.NotNil(t, tx.FX)
	// The currency comes from the payment-method catalog, not the channel name.
	assert.Equal(t, "USDT", tx.FX.OriginalCurrency)
	assert.True(t, tx.FX.OriginalAmount.Equal(original))
	assert.True(t, tx.FX.ExchangeRate.Equal(decimal.NewFromInt(600)))
}

func TestSubmitWithdrawalSecondSameDay(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	accountID := uuid.New()

	env.ledger.On("GetAccount", ctx, accountID).Return(activeAccount(accountID, "secret123"), nil)
	env.txRepo.On("WithdrawalExistsOn", ctx, accountID, mock.AnythingOfType("time.Time")).Return(true, nil)

	_, err := env.service.SubmitWithdrawal(ctx, &SubmitWithdrawalRequest{
		AccountID:           accountID,
		Amount:              decimal.NewFromInt(2000),
		PaymentMethodID:     uuid.New(),
		TransactionPassword: "secret123",
	})

	assert.ErrorIs(t, err, errors.ErrDuplicateWithdrawal)
	env.ledger.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitWithdrawalRequiresCard(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	accountID := uuid.New()

	env.ledger.On("GetAccount", ctx, accountID).Return(activeAccount(accountID, "secret123"), nil)
	env.txRepo.On("WithdrawalExistsOn", ctx, accountID, mock.Anything).Return(false, nil)
	env.bankCards.On("HasActive", ctx, accountID).Return(false, nil)

	_, err := env.service.SubmitWithdrawal(ctx, &SubmitWithdrawalRequest{
		AccountID:           accountID,
		Amount:              decimal.NewFromInt(2000),
		PaymentMethodID:     uuid.New(),
		TransactionPassword: "secret123",
	})

	assert.ErrorIs(t, err, errors.ErrNoWithdrawalDestination)
}

func TestSubmitWithdrawalWrongPassword(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	accountID := uuid.New()

	env.ledger.On("GetAccount", ctx, accountID).Return(activeAccount(accountID, "secret123"), nil)
	env.txRepo.On("WithdrawalExistsOn", ctx, accountID, mock.Anything).Return(false, nil)
	env.bankCards.On("HasActive", ctx, accountID).Return(true, nil)

	_, err := env.service.SubmitWithdrawal(ctx, &SubmitWithdrawalRequest{
		AccountID:           accountID,
		Amount:              decimal.NewFromInt(2000),
		PaymentMethodID:     uuid.New(),
		TransactionPassword: "wrong",
	})

	assert.ErrorIs(t, err, errors.ErrInvalidTransactionPassword)
	env.ledger.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitWithdrawalOutsideWindow(t *testing.T) {
	env := newTestEnv()
	// A zero-width window is always closed.
	env.settings.settings.WithdrawalStartHour = 0
	env.settings.settings.WithdrawalEndHour = 0
	ctx := context.Background()
	accountID := uuid.New()
	methodID := uuid.New()

	env.ledger.On("GetAccount", ctx, accountID).Return(activeAccount(accountID, "secret123"), nil)
	env.txRepo.On("WithdrawalExistsOn", ctx, accountID, mock.Anything).Return(false, nil)
	env.bankCards.On("HasActive", ctx, accountID).Return(true, nil)
	env.catalog.On("FindPaymentMethod", ctx, methodID).Return(&domain.PaymentMethod{
		ID: methodID, Name: "Orange Money", Currency: "XOF", IsActive: true,
	}, nil)

	_, err := env.service.SubmitWithdrawal(ctx, &SubmitWithdrawalRequest{
		AccountID:           accountID,
		Amount:              decimal.NewFromInt(2000),
		PaymentMethodID:     methodID,
		TransactionPassword: "secret123",
	})

	assert.ErrorIs(t, err, errors.ErrWithdrawalWindowClosed)
}

func TestSubmitWithdrawalBelowMinimum(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	accountID := uuid.New()
	methodID := uuid.New()

	env.ledger.On("GetAccount", ctx, accountID).Return(activeAccount(accountID, "secret123"), nil)
	env.txRepo.On("WithdrawalExistsOn", ctx, accountID, mock.Anything).Return(false, nil)
	env.bankCards.On("HasActive", ctx, accountID).Return(true, nil)
	env.catalog.On("FindPaymentMethod", ctx, methodID).Return(&domain.PaymentMethod{
		ID: methodID, Name: "Orange Money", Currency: "XOF", IsActive: true,
	}, nil)

	_, err := env.service.SubmitWithdrawal(ctx, &SubmitWithdrawalRequest{
		AccountID:           accountID,
		Amount:              decimal.NewFromInt(999),
		PaymentMethodID:     methodID,
		TransactionPassword: "secret123",
	})

	assert.ErrorIs(t, err, errors.ErrBelowMinimumWithdraw)
}

// --- Review ---

func TestApproveFirstDepositRunsCascade(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	accountID := uuid.New()
	txID := uuid.New()

	pending := &domain.Transaction{
		ID:        txID,
		AccountID: accountID,
		Type:      domain.TransactionTypeDeposit,
		Amount:    decimal.NewFromInt(10000),
		Status:    domain.TransactionStatusApproved,
	}
	env.txRepo.On("MarkReviewed", ctx, txID, domain.TransactionStatusApproved, "ok").Return(pending, nil)
	env.ledger.On("Credit", ctx, accountID, mock.AnythingOfType("decimal.Decimal"), domain.BalanceDeposit).Return(nil)
	env.txRepo.On("CountApprovedDeposits", ctx, accountID).Return(1, nil)
	env.cascade.On("RunCascade", ctx, accountID, mock.AnythingOfType("decimal.Decimal")).Return(nil)

	tx, err := env.service.Approve(ctx, txID, "ok")

	require.NoError(t, err)
	assert.Equal(t, txID, tx.ID)
	env.cascade.AssertExpectations(t)
}

func TestApproveSecondDepositSkipsCascade(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	accountID := uuid.New()
	txID := uuid.New()

	pending := &domain.Transaction{
		ID:        txID,
		AccountID: accountID,
		Type:      domain.TransactionTypeDeposit,
		Amount:    decimal.NewFromInt(5000),
		Status:    domain.TransactionStatusApproved,
	}
	env.txRepo.On("MarkReviewed", ctx, txID, domain.TransactionStatusApproved, "").Return(pending, nil)
	env.ledger.On("Credit", ctx, accountID, mock.Anything, domain.BalanceDeposit).Return(nil)
	env.txRepo.On("CountApprovedDeposits", ctx, accountID).Return(2, nil)

	_, err := env.service.Approve(ctx, txID, "")

	require.NoError(t, err)
	env.cascade.AssertNotCalled(t, "RunCascade", mock.Anything, mock.Anything, mock.Anything)
}

func TestApproveWithdrawalMovesNoFunds(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	txID := uuid.New()

	approved := &domain.Transaction{
		ID:        txID,
		AccountID: uuid.New(),
		Type:      domain.TransactionTypeWithdrawal,
		Amount:    decimal.NewFromInt(2000),
		Fees:      decimal.NewFromInt(200),
		Status:    domain.TransactionStatusApproved,
	}
	env.txRepo.On("MarkReviewed", ctx, txID, domain.TransactionStatusApproved, "").Return(approved, nil)

	_, err := env.service.Approve(ctx, txID, "")

	require.NoError(t, err)
	env.ledger.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	env.ledger.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestApproveNonPending(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	txID := uuid.New()

	env.txRepo.On("MarkReviewed", ctx, txID, domain.TransactionStatusApproved, "").
		Return(nil, errors.ErrTransactionNotPending)

	_, err := env.service.Approve(ctx, txID, "")

	assert.ErrorIs(t, err, errors.ErrTransactionNotPending)
}

func TestRejectWithdrawalRefundsAmountPlusFees(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	accountID := uuid.New()
	txID := uuid.New()

	rejected := &domain.Transaction{
		ID:        txID,
		AccountID: accountID,
		Type:      domain.TransactionTypeWithdrawal,
		Amount:    decimal.NewFromInt(2000),
		Fees:      decimal.NewFromInt(200),
		Status:    domain.TransactionStatusRejected,
	}
	env.txRepo.On("MarkReviewed", ctx, txID, domain.TransactionStatusRejected, "suspicious").Return(rejected, nil)

	var refunded decimal.Decimal
	env.ledger.On("Refund", ctx, accountID, mock.AnythingOfType("decimal.Decimal"), domain.BalanceWithdrawable).
		Run(func(args mock.Arguments) { refunded = args.Get(2).(decimal.Decimal) }).Return(nil)

	_, err := env.service.Reject(ctx, txID, "suspicious")

	require.NoError(t, err)
	assert.True(t, refunded.Equal(decimal.NewFromInt(2200)))
}

func TestRejectDepositMovesNoFunds(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	txID := uuid.New()

	rejected := &domain.Transaction{
		ID:        txID,
		AccountID: uuid.New(),
		Type:      domain.TransactionTypeDeposit,
		Amount:    decimal.NewFromInt(5000),
		Status:    domain.TransactionStatusRejected,
	}
	env.txRepo.On("MarkReviewed", ctx, txID, domain.TransactionStatusRejected, "no proof").Return(rejected, nil)

	_, err := env.service.Reject(ctx, txID, "no proof")

	require.NoError(t, err)
	env.ledger.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	env.ledger.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// fakeLedger reproduces the conditional-debit semantics of the account
// repository under a mutex: a debit only succeeds while the balance covers it.
type fakeLedger struct {
	mu      sync.Mutex
	account *domain.Account
}

func (f *fakeLedger) GetAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *f.account
	return &copied, nil
}

func (f *fakeLedger) Credit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, kind domain.BalanceKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if kind == domain.BalanceDeposit {
		f.account.DepositBalance = f.account.DepositBalance.Add(amount)
	} else {
		f.account.WithdrawableBalance = f.account.WithdrawableBalance.Add(amount)
	}
	return nil
}

func (f *fakeLedger) Debit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, kind domain.BalanceKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if kind == domain.BalanceDeposit {
		if f.account.DepositBalance.LessThan(amount) {
			return errors.ErrInsufficientFunds
		}
		f.account.DepositBalance = f.account.DepositBalance.Sub(amount)
		return nil
	}
	if f.account.WithdrawableBalance.LessThan(amount) {
		return errors.ErrInsufficientFunds
	}
	f.account.WithdrawableBalance = f.account.WithdrawableBalance.Sub(amount)
	return nil
}

func (f *fakeLedger) Refund(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal, kind domain.BalanceKind) error {
	return f.Credit(ctx, accountID, amount, kind)
}

func (f *fakeLedger) withdrawable() decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.account.WithdrawableBalance
}

// Ten simultaneous submissions race for a balance that only covers four
// reservations. The daily-limit unique index is the repository's concern;
// this exercises the reservation guard alone.
func TestConcurrentWithdrawalSubmissions(t *testing.T) {
	accountID := uuid.New()
	methodID := uuid.New()
	acct := activeAccount(accountID, "secret123")
	acct.WithdrawableBalance = decimal.NewFromInt(9000)
	ledgerFake := &fakeLedger{account: acct}

	txRepo := new(MockTransactionRepository)
	bankCards := new(MockBankCardRepository)
	catalog := new(MockCatalogRepository)
	txRepo.On("WithdrawalExistsOn", mock.Anything, accountID, mock.Anything).Return(false, nil)
	txRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
	bankCards.On("HasActive", mock.Anything, accountID).Return(true, nil)
	catalog.On("FindPaymentMethod", mock.Anything, methodID).Return(&domain.PaymentMethod{
		ID: methodID, Name: "Orange Money", Currency: "XOF", IsActive: true,
	}, nil)

	service := NewService(
		ledgerFake, txRepo, bankCards, catalog,
		&stubSettings{settings: defaultSettings()}, new(MockCascadeEngine),
		nopNotifier{}, fakeTxManager{}, "XOF", logger.NewNop(),
	)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.SubmitWithdrawal(ctx, &SubmitWithdrawalRequest{
				AccountID:           accountID,
				Amount:              decimal.NewFromInt(2000),
				PaymentMethodID:     methodID,
				TransactionPassword: "secret123",
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, errors.ErrInsufficientFunds)
		}
	}

	// 9,000 / 2,200 reserved per request (amount plus 10% fee): exactly four.
	assert.Equal(t, 4, succeeded)
	assert.True(t, ledgerFake.withdrawable().Equal(decimal.NewFromInt(200)))
}
