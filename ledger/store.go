/*
store.go - Persistence and blob store interfaces

PURPOSE:
  Defines the contracts between the engine and its collaborators: a
  document store holding wallets and transactions, and a blob store
  holding uploaded assets. The document store is deliberately modest -
  get/create/partial-update/delete by id, field-equality and range
  queries, bounded batch delete - because the engine must hold its
  invariants without cross-document transactions.

MERGE SEMANTICS:
  UpdateWallet and UpdateTransaction are partial writes: fields the
  caller did not set are left untouched. This is the storage half of the
  wallet mutation primitive; all arithmetic stays in the engine.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite store
  - ledger/store/memory.go: In-memory store for tests and dev

SEE ALSO:
  - engine.go: The only writer of wallet aggregate fields
  - blob/uploader.go: HTTP blob store implementation
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// DOCUMENT STORE INTERFACES
// =============================================================================

// WalletStore persists wallet documents.
type WalletStore interface {
	// GetWallet returns the wallet or ErrWalletNotFound.
	GetWallet(ctx context.Context, id WalletID) (Wallet, error)

	// CreateWallet stores a new wallet and returns its assigned id.
	CreateWallet(ctx context.Context, w Wallet) (WalletID, error)

	// UpdateWallet applies a partial write with merge semantics.
	// Returns ErrWalletNotFound if the id does not resolve.
	UpdateWallet(ctx context.Context, id WalletID, update WalletUpdate) error

	// DeleteWallet removes the wallet document.
	DeleteWallet(ctx context.Context, id WalletID) error

	// WalletsByOwner returns the owner's wallets, newest first.
	WalletsByOwner(ctx context.Context, owner UserID) ([]Wallet, error)
}

// TransactionQuery selects transactions by field equality and date range.
// Zero values mean "no constraint". Results are ordered by Date
// descending; Limit bounds the page size when positive.
type TransactionQuery struct {
	Owner    UserID
	WalletID WalletID
	From     time.Time
	To       time.Time
	Limit    int
}

// TransactionStore persists transaction documents.
type TransactionStore interface {
	// GetTransaction returns the transaction or ErrTransactionNotFound.
	GetTransaction(ctx context.Context, id TransactionID) (Transaction, error)

	// CreateTransaction stores a new transaction and returns its id.
	CreateTransaction(ctx context.Context, tx Transaction) (TransactionID, error)

	// UpdateTransaction rewrites the row identified by tx.ID.
	// Returns ErrTransactionNotFound if the id does not resolve.
	UpdateTransaction(ctx context.Context, tx Transaction) error

	// DeleteTransaction removes a single transaction document.
	DeleteTransaction(ctx context.Context, id TransactionID) error

	// QueryTransactions returns matching transactions, date descending.
	QueryTransactions(ctx context.Context, q TransactionQuery) ([]Transaction, error)

	// DeleteTransactionsBatch removes the given ids as one atomic batch.
	DeleteTransactionsBatch(ctx context.Context, ids []TransactionID) error
}

// Store is the full document store the engine operates on.
type Store interface {
	WalletStore
	TransactionStore
}

// =============================================================================
// BLOB STORE
// =============================================================================

// BlobStore uploads binary assets and returns stable URLs.
type BlobStore interface {
	// Upload stores the file behind ref under folder and returns its URL.
	// A ref that already carries a URL is returned unchanged.
	Upload(ctx context.Context, ref ImageRef, folder string) (string, error)
}
