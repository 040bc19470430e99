// Package errors provides common, reusable error values and helpers.
package errors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrAccountInactive   = errors.New("account is not active")
	ErrAccountBlocked    = errors.New("account is blocked")
	ErrInsufficientFunds = errors.New("insufficient funds")

	// Catalog errors
	ErrPackageNotFound       = errors.New("vip package not found or inactive")
	ErrPlanNotFound          = errors.New("staking plan not found or inactive")
	ErrPaymentMethodNotFound = errors.New("payment method not found or inactive")

	// Amount errors
	ErrAmountOutOfRange     = errors.New("amount outside package limits")
	ErrBelowMinimumDeposit  = errors.New("amount below minimum deposit")
	ErrBelowMinimumWithdraw = errors.New("amount below minimum withdrawal")
	ErrBelowMinimumStake    = errors.New("amount below plan minimum")

	// Transaction lifecycle errors
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrTransactionNotPending  = errors.New("transaction is not pending")
	ErrDuplicateWithdrawal    = errors.New("withdrawal already requested today")
	ErrWithdrawalWindowClosed = errors.New("withdrawals are closed at this hour")

	// Withdrawal precondition errors
	ErrNoWithdrawalDestination    = errors.New("no active bank card or wallet on file")
	ErrCardAlreadyBound           = errors.New("an active card is already bound")
	ErrInvalidTransactionPassword = errors.New("invalid transaction password")

	// Referral errors
	ErrBonusAlreadyGranted = errors.New("referral bonus already granted for this level")

	// Settings errors
	ErrSettingsUnavailable = errors.New("platform settings unavailable")

	// Investment errors
	ErrInvestmentNotFound = errors.New("investment not found")
	ErrInvestmentLocked   = errors.New("investment is still locked")
)

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
