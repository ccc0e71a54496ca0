/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All engine error types in one place. Callers classify failures with
  errors.Is/errors.As; the API layer maps them to HTTP status codes and
  the uniform result envelope.

ERROR CATEGORIES:
  1. Validation errors - Malformed input, no writes attempted
  2. Business rejections - Insufficient funds, no writes for that step
  3. Not found - Referenced wallet/transaction missing
  4. Collaborator failures - Store/blob errors, wrapped with %w

SEE ALSO:
  - engine.go: Produces these errors
  - api/handlers.go: Maps them to HTTP responses
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidTransaction is returned for malformed transaction input
	// (non-positive amount, missing wallet id, missing type).
	ErrInvalidTransaction = errors.New("invalid transaction")

	// ErrInvalidWallet is returned for malformed wallet input.
	ErrInvalidWallet = errors.New("invalid wallet")

	// ErrInsufficientFunds is returned when an expense would drive a
	// wallet balance negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrWalletNotFound is returned when a wallet id does not resolve.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrTransactionNotFound is returned when a transaction id does not resolve.
	ErrTransactionNotFound = errors.New("transaction not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientFundsError reports which wallet fell short and by how much.
type InsufficientFundsError struct {
	WalletID  WalletID
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds in wallet %s: available %s, requested %s",
		e.WalletID, e.Available, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error {
	return ErrInsufficientFunds
}

// ValidationError names the field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidTransaction
}

// SagaError reports which step of an ordered write chain failed and
// which steps had already committed. The completed list lets an operator
// (or a future resume path) see exactly where the chain stopped instead
// of guessing from wallet state.
type SagaError struct {
	Step      string
	Completed []string
	Err       error
}

func (e *SagaError) Error() string {
	return fmt.Sprintf("wallet write %q failed after %d committed step(s): %v",
		e.Step, len(e.Completed), e.Err)
}

func (e *SagaError) Unwrap() error {
	return e.Err
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWalletNotFound) ||
		errors.Is(err, ErrTransactionNotFound)
}

// IsClientError returns true if the error is the caller's fault and
// retrying the same input cannot succeed.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidTransaction) ||
		errors.Is(err, ErrInvalidWallet) ||
		errors.Is(err, ErrInsufficientFunds)
}
