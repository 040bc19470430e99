// Package domain holds the core entities of the ledger and commission engine.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BalanceKind selects which of an account's two balances an operation targets.
type BalanceKind string

const (
	// BalanceDeposit holds funds from approved deposits; usable only for investing.
	BalanceDeposit BalanceKind = "deposit"
	// BalanceWithdrawable holds commissions, bonuses and completed earnings;
	// usable for investing or withdrawal.
	BalanceWithdrawable BalanceKind = "withdrawable"
)

// Account is the balance-bearing ledger record for one user.
type Account struct {
	ID                  uuid.UUID       `json:"id" db:"id"`
	DepositBalance      decimal.Decimal `json:"deposit_balance" db:"deposit_balance"`
	WithdrawableBalance decimal.Decimal `json:"withdrawable_balance" db:"withdrawable_balance"`
	TotalInvested       decimal.Decimal `json:"total_invested" db:"total_invested"`
	TotalEarned         decimal.Decimal `json:"total_earned" db:"total_earned"`
	ReferredBy          *uuid.UUID      `json:"referred_by,omitempty" db:"referred_by"`
	Status              AccountStatus   `json:"status" db:"status"`
	TxPasswordHash      string          `json:"-" db:"tx_password_hash"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at" db:"updated_at"`
}

type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusInactive AccountStatus = "inactive"
	AccountStatusBlocked  AccountStatus = "blocked"
)

// VIPInvestment is an open-ended investment into a VIP package.
type VIPInvestment struct {
	ID            uuid.UUID        `json:"id" db:"id"`
	AccountID     uuid.UUID        `json:"account_id" db:"account_id"`
	PackageID     uuid.UUID        `json:"package_id" db:"package_id"`
	Amount        decimal.Decimal  `json:"amount" db:"amount"`
	DailyRate     decimal.Decimal  `json:"daily_rate" db:"daily_rate"`
	DailyEarnings decimal.Decimal  `json:"daily_earnings" db:"daily_earnings"`
	Status        InvestmentStatus `json:"status" db:"status"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
}

// StakingInvestment is a fixed-duration investment into a staking plan.
type StakingInvestment struct {
	ID            uuid.UUID        `json:"id" db:"id"`
	AccountID     uuid.UUID        `json:"account_id" db:"account_id"`
	PlanID        uuid.UUID        `json:"plan_id" db:"plan_id"`
	Amount        decimal.Decimal  `json:"amount" db:"amount"`
	DailyRate     decimal.Decimal  `json:"daily_rate" db:"daily_rate"`
	DailyEarnings decimal.Decimal  `json:"daily_earnings" db:"daily_earnings"`
	DurationDays  int              `json:"duration_days" db:"duration_days"`
	UnlockDate    time.Time        `json:"unlock_date" db:"unlock_date"`
	Status        InvestmentStatus `json:"status" db:"status"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
}

type InvestmentStatus string

const (
	InvestmentStatusActive    InvestmentStatus = "active"
	InvestmentStatusPaused    InvestmentStatus = "paused"
	InvestmentStatusCompleted InvestmentStatus = "completed"
	InvestmentStatusCancelled InvestmentStatus = "cancelled"
)

// Transaction is a money movement against one account. Deposits and
// withdrawals pass through admin review; investment, earning and referral
// rows are internal movements created already completed.
type Transaction struct {
	ID          uuid.UUID         `json:"id" db:"id"`
	AccountID   uuid.UUID         `json:"account_id" db:"account_id"`
	Type        TransactionType   `json:"type" db:"type"`
	Method      *string           `json:"method,omitempty" db:"method"`
	Amount      decimal.Decimal   `json:"amount" db:"amount"`
	Fees        decimal.Decimal   `json:"fees" db:"fees"`
	Status      TransactionStatus `json:"status" db:"status"`
	Reference   string            `json:"reference" db:"reference"`
	AdminNotes  string            `json:"admin_notes" db:"admin_notes"`
	FX          *ForeignAmount    `json:"fx,omitempty" db:"fx"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time        `json:"processed_at,omitempty" db:"processed_at"`
}

type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeInvestment TransactionType = "investment"
	TransactionTypeEarning    TransactionType = "earning"
	TransactionTypeReferral   TransactionType = "referral"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusApproved  TransactionStatus = "approved"
	TransactionStatusRejected  TransactionStatus = "rejected"
	TransactionStatusCompleted TransactionStatus = "completed"
)

// ForeignAmount records the original currency details of a converted
// deposit or withdrawal as structured metadata.
type ForeignAmount struct {
	OriginalAmount   decimal.Decimal `json:"original_amount"`
	OriginalCurrency string          `json:"original_currency"`
	ExchangeRate     decimal.Decimal `json:"exchange_rate"`
}

func (f ForeignAmount) Value() (driver.Value, error) {
	return json.Marshal(f)
}

func (f *ForeignAmount) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, f)
}

// DepositSubmission links a pending deposit to the user-supplied proof.
type DepositSubmission struct {
	TransactionID   uuid.UUID `json:"transaction_id" db:"transaction_id"`
	PaymentMethodID uuid.UUID `json:"payment_method_id" db:"payment_method_id"`
	UserReference   string    `json:"user_reference" db:"user_reference"`
	ProofID         string    `json:"proof_id" db:"proof_id"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// ReferralBonus is the write-once audit record of one cascade credit.
type ReferralBonus struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	ReferrerID uuid.UUID       `json:"referrer_id" db:"referrer_id"`
	ReferredID uuid.UUID       `json:"referred_id" db:"referred_id"`
	Level      int             `json:"level" db:"level"`
	Amount     decimal.Decimal `json:"amount" db:"amount"`
	Percentage decimal.Decimal `json:"percentage" db:"percentage"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// VIPPackage is an open-ended catalog product with an amount range.
type VIPPackage struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	MinAmount decimal.Decimal `json:"min_amount" db:"min_amount"`
	MaxAmount decimal.Decimal `json:"max_amount" db:"max_amount"`
	DailyRate decimal.Decimal `json:"daily_rate" db:"daily_rate"`
	IsActive  bool            `json:"is_active" db:"is_active"`
}

// StakingPlan is a fixed-duration catalog product.
type StakingPlan struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	Name         string          `json:"name" db:"name"`
	MinAmount    decimal.Decimal `json:"min_amount" db:"min_amount"`
	DailyRate    decimal.Decimal `json:"daily_rate" db:"daily_rate"`
	DurationDays int             `json:"duration_days" db:"duration_days"`
	IsActive     bool            `json:"is_active" db:"is_active"`
}

// PaymentMethod is a payment channel for deposits and withdrawals.
type PaymentMethod struct {
	ID       uuid.UUID `json:"id" db:"id"`
	Name     string    `json:"name" db:"name"`
	Currency string    `json:"currency" db:"currency"`
	IsActive bool      `json:"is_active" db:"is_active"`
}

// BankCard is a registered withdrawal destination.
type BankCard struct {
	ID            uuid.UUID `json:"id" db:"id"`
	AccountID     uuid.UUID `json:"account_id" db:"account_id"`
	HolderName    string    `json:"holder_name" db:"holder_name"`
	CardNumber    string    `json:"card_number" db:"card_number"`
	BankName      string    `json:"bank_name" db:"bank_name"`
	WalletAddress *string   `json:"wallet_address,omitempty" db:"wallet_address"`
	IsActive      bool      `json:"is_active" db:"is_active"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// PlatformSettings are admin-managed platform constants read by the engine.
type PlatformSettings struct {
	WithdrawalFeeRate   decimal.Decimal `json:"withdrawal_fee_rate" db:"withdrawal_fee_rate"`
	MinDeposit          decimal.Decimal `json:"min_deposit" db:"min_deposit"`
	MinWithdrawal       decimal.Decimal `json:"min_withdrawal" db:"min_withdrawal"`
	ExchangeRate        decimal.Decimal `json:"exchange_rate" db:"exchange_rate"`
	WithdrawalStartHour int             `json:"withdrawal_start_hour" db:"withdrawal_start_hour"`
	WithdrawalEndHour   int             `json:"withdrawal_end_hour" db:"withdrawal_end_hour"`
	UpdatedAt           time.Time       `json:"updated_at" db:"updated_at"`
}
