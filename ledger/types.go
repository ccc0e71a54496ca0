/*
Package ledger provides the wallet ledger consistency engine.

PURPOSE:
  This package contains the domain types and algorithms that keep a
  wallet's cached balance and lifetime income/expense totals consistent
  with the set of transactions referencing it. The underlying document
  store offers no cross-document transactions, so every multi-wallet
  mutation here is an explicit, ordered sequence of single-document
  writes with the guards running before the first write lands.

KEY CONCEPTS IN THIS FILE (types.go):
  - Wallet: A named monetary account with cached aggregate fields
  - Transaction: A single income or expense event against one wallet
  - Bucket: Tagged variant selecting totalIncome vs totalExpenses
  - ImageRef: An asset that is either uploaded (URL) or pending (local)
  - WalletUpdate: A partial wallet write with merge semantics

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for all money, never float arithmetic
  2. Single writer: only the engine mutates wallet aggregate fields
  3. Type safety: typed IDs prevent mixing wallet/transaction/user ids
  4. Sign discipline: Amount is always a positive magnitude; the sign
     of its effect on a balance is derived from Type, never stored

SEE ALSO:
  - engine.go: Create/update/delete orchestration
  - stats.go: Period bucketing for charts
  - store.go: Persistence and blob store interfaces
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type WalletID string
type TransactionID string
type UserID string

// =============================================================================
// MONEY HELPERS
// =============================================================================

// NewMoney builds a decimal amount from a float. Convenience for callers
// and tests; the engine itself only ever adds and subtracts decimals.
func NewMoney(value float64) decimal.Decimal {
	return decimal.NewFromFloat(value)
}

// MustMoney parses a decimal string, returning zero on malformed input.
func MustMoney(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// =============================================================================
// TRANSACTION TYPE AND BUCKET
// =============================================================================

type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// Valid reports whether t is one of the two known transaction types.
func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

// Bucket selects which lifetime total a transaction contributes to.
// This is the single point mapping a type tag to an aggregate field;
// nothing else in the engine switches on the raw type string.
type Bucket int

const (
	BucketIncome Bucket = iota
	BucketExpense
)

// Bucket returns the aggregate bucket for this transaction type.
func (t TransactionType) Bucket() Bucket {
	if t == TypeIncome {
		return BucketIncome
	}
	return BucketExpense
}

// =============================================================================
// IMAGE REFERENCE
// =============================================================================

// ImageRef points at an asset that is either already uploaded (URL set)
// or still waiting for upload (LocalURI set). A ref that carries a URL
// passes through the blob store unchanged.
type ImageRef struct {
	URL      string `json:"url,omitempty"`
	LocalURI string `json:"local_uri,omitempty"`
}

func (r ImageRef) IsZero() bool {
	return r.URL == "" && r.LocalURI == ""
}

// NeedsUpload reports whether the ref is a pending local file.
func (r ImageRef) NeedsUpload() bool {
	return r.URL == "" && r.LocalURI != ""
}

// =============================================================================
// WALLET - Named account with cached aggregates
// =============================================================================

// Wallet is a monetary account. Balance, TotalIncome and TotalExpenses
// are caches over the live transaction set:
//
//	Balance == sum(income amounts) - sum(expense amounts)
//
// over all transactions currently referencing the wallet. They are
// mutated ONLY through engine operations; no other code path writes them.
type Wallet struct {
	ID            WalletID        `json:"id"`
	Name          string          `json:"name"`
	Balance       decimal.Decimal `json:"balance"`
	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	Image         ImageRef        `json:"image,omitempty"`
	Owner         UserID          `json:"owner"`
	CreatedAt     time.Time       `json:"created_at"`
}

// =============================================================================
// TRANSACTION - Single income or expense event
// =============================================================================

// Transaction records one income or expense against exactly one wallet.
// Amount is a positive magnitude; Date is used for statistics bucketing
// only and carries no ordering invariant.
type Transaction struct {
	ID          TransactionID   `json:"id"`
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category,omitempty"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description,omitempty"`
	Image       ImageRef        `json:"image,omitempty"`
	WalletID    WalletID        `json:"wallet_id"`
	Owner       UserID          `json:"owner"`
}

// =============================================================================
// WALLET UPDATE - Partial write with merge semantics
// =============================================================================

// WalletUpdate is the payload of the wallet mutation primitive. Nil
// fields are left untouched by the store. The engine computes target
// values; the store persists them verbatim and performs no arithmetic.
type WalletUpdate struct {
	Name          *string
	Balance       *decimal.Decimal
	TotalIncome   *decimal.Decimal
	TotalExpenses *decimal.Decimal
	Image         *ImageRef
}

// IsZero reports whether the update would write nothing.
func (u WalletUpdate) IsZero() bool {
	return u.Name == nil && u.Balance == nil && u.TotalIncome == nil &&
		u.TotalExpenses == nil && u.Image == nil
}
