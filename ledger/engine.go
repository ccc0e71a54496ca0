/*
engine.go - Ledger consistency orchestration

PURPOSE:
  The single entry point for every operation that touches wallet
  aggregate fields. The engine keeps this invariant across create,
  update, delete and wallet-reassignment:

    wallet.Balance       == sum(income amounts) - sum(expense amounts)
    wallet.TotalIncome   == sum(income amounts)
    wallet.TotalExpenses == sum(expense amounts)

  over all transactions currently referencing the wallet, and never
  lets a committed expense drive a balance negative.

REVERT-AND-APPLY:
  Editing a transaction's type, amount or wallet is a compensating
  sequence: undo the old effect on the original wallet, then apply the
  new effect to the destination wallet (which may be the same wallet,
  freshly re-read after the revert). The store has no multi-document
  transactions, so the sequence runs as a saga of ordered single-wallet
  writes with every guard evaluated before the first write commits.

PARTIAL-FAILURE BIAS:
  - Delete: wallet is corrected before the row is removed. A failure
    between the two leaves an orphaned row and a correct wallet.
  - Save: wallet mutation commits before the receipt upload and the row
    write. An upload failure after that point leaves the wallet updated
    with no saved row. The ordering is deliberate: the monetary effect
    is the part that must never silently drift.
  - Wallet delete cascade: the wallet document goes first; transaction
    pages are deleted best-effort afterwards.

CONCURRENCY:
  Single-writer-per-operation. No locks, no retries, no optimistic
  version checks on wallet documents; concurrent edits to the same
  wallet from two callers can lose updates. Acceptable for a
  single-user personal ledger and called out here rather than hidden.

SEE ALSO:
  - store.go: Collaborator contracts
  - stats.go: Period aggregation (same arithmetic rules)
  - errors.go: Error taxonomy
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// cascadePageSize bounds each query-and-batch-delete page of the wallet
// deletion cascade.
const cascadePageSize = 100

// Folder names in the blob store.
const (
	walletFolder      = "wallets"
	transactionFolder = "transactions"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine orchestrates all wallet and transaction mutations. It is the
// sole writer of wallet aggregate fields.
type Engine struct {
	store Store
	blobs BlobStore
	now   func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine's time source. Used by tests and by
// callers that need deterministic statistics windows.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine over the given document and blob stores.
func NewEngine(store Store, blobs BlobStore, opts ...Option) *Engine {
	e := &Engine{store: store, blobs: blobs, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// =============================================================================
// EFFECT ARITHMETIC - Pure helpers, the only money math in the module
// =============================================================================

// applyEffect computes the wallet fields after adding a transaction's
// effect. This is the wallet mutation primitive's arithmetic half: the
// returned update carries absolute target values, never deltas.
func applyEffect(w Wallet, t TransactionType, amount decimal.Decimal) WalletUpdate {
	switch t.Bucket() {
	case BucketIncome:
		balance := w.Balance.Add(amount)
		income := w.TotalIncome.Add(amount)
		return WalletUpdate{Balance: &balance, TotalIncome: &income}
	default:
		balance := w.Balance.Sub(amount)
		expenses := w.TotalExpenses.Add(amount)
		return WalletUpdate{Balance: &balance, TotalExpenses: &expenses}
	}
}

// revertEffect undoes exactly what applyEffect would have done.
func revertEffect(w Wallet, t TransactionType, amount decimal.Decimal) WalletUpdate {
	switch t.Bucket() {
	case BucketIncome:
		balance := w.Balance.Sub(amount)
		income := w.TotalIncome.Sub(amount)
		return WalletUpdate{Balance: &balance, TotalIncome: &income}
	default:
		balance := w.Balance.Add(amount)
		expenses := w.TotalExpenses.Sub(amount)
		return WalletUpdate{Balance: &balance, TotalExpenses: &expenses}
	}
}

// financialChange reports whether an edit touches any field that affects
// wallet aggregates. Metadata-only edits skip wallet mutation entirely,
// which also avoids redundant rounding.
func financialChange(old, new Transaction) bool {
	return old.Type != new.Type ||
		!old.Amount.Equal(new.Amount) ||
		old.WalletID != new.WalletID
}

// =============================================================================
// WALLET OPERATIONS
// =============================================================================

// SaveWallet creates a wallet or edits its metadata.
//
// Creation seeds Balance, TotalIncome and TotalExpenses to zero and
// stamps CreatedAt. Metadata edits write name and image only - monetary
// fields are never touched on this path.
func (e *Engine) SaveWallet(ctx context.Context, w Wallet) (Wallet, error) {
	if w.Name == "" {
		return Wallet{}, fmt.Errorf("%w: name is required", ErrInvalidWallet)
	}

	if w.Image.NeedsUpload() {
		url, err := e.blobs.Upload(ctx, w.Image, walletFolder)
		if err != nil {
			return Wallet{}, fmt.Errorf("upload wallet image: %w", err)
		}
		w.Image = ImageRef{URL: url}
	}

	if w.ID == "" {
		w.Balance = decimal.Zero
		w.TotalIncome = decimal.Zero
		w.TotalExpenses = decimal.Zero
		w.CreatedAt = e.now()

		id, err := e.store.CreateWallet(ctx, w)
		if err != nil {
			return Wallet{}, fmt.Errorf("create wallet: %w", err)
		}
		w.ID = id
		return w, nil
	}

	update := WalletUpdate{Name: &w.Name}
	if !w.Image.IsZero() {
		img := w.Image
		update.Image = &img
	}
	if err := e.store.UpdateWallet(ctx, w.ID, update); err != nil {
		return Wallet{}, err
	}
	return w, nil
}

// DeleteWallet removes a wallet, then cascades over every transaction
// referencing it in bounded batch-deleted pages. The wallet delete is
// not rolled back if the cascade fails part-way; orphaned transactions
// are cleaned up by re-running the delete.
func (e *Engine) DeleteWallet(ctx context.Context, id WalletID) error {
	if err := e.store.DeleteWallet(ctx, id); err != nil {
		return err
	}
	return e.deleteTransactionsByWallet(ctx, id)
}

func (e *Engine) deleteTransactionsByWallet(ctx context.Context, id WalletID) error {
	for {
		page, err := e.store.QueryTransactions(ctx, TransactionQuery{
			WalletID: id,
			Limit:    cascadePageSize,
		})
		if err != nil {
			return fmt.Errorf("query cascade page: %w", err)
		}
		if len(page) == 0 {
			return nil
		}

		ids := make([]TransactionID, len(page))
		for i, tx := range page {
			ids[i] = tx.ID
		}
		if err := e.store.DeleteTransactionsBatch(ctx, ids); err != nil {
			return fmt.Errorf("delete cascade page: %w", err)
		}
	}
}

// =============================================================================
// SAVE TRANSACTION - Create or update, maintaining the wallet invariant
// =============================================================================

// SaveTransaction is the single entry point for adding a new transaction
// or editing an existing one. It returns the saved transaction with its
// id populated.
//
// Ordering note: the wallet mutation commits before the receipt upload
// and the row write. A failure in either later step leaves the wallet
// updated with no matching row; callers see the error and the wallet
// keeps the new balance.
func (e *Engine) SaveTransaction(ctx context.Context, tx Transaction) (Transaction, error) {
	if err := validateTransaction(tx); err != nil {
		return Transaction{}, err
	}

	if tx.ID == "" {
		if err := e.applyNewTransaction(ctx, tx); err != nil {
			return Transaction{}, err
		}
	} else {
		prior, err := e.store.GetTransaction(ctx, tx.ID)
		if err != nil {
			return Transaction{}, err
		}
		// Another user's row reads as missing.
		if prior.Owner != tx.Owner {
			return Transaction{}, ErrTransactionNotFound
		}
		if financialChange(prior, tx) {
			if err := e.moveEffect(ctx, prior, tx); err != nil {
				return Transaction{}, err
			}
		}
	}

	if tx.Image.NeedsUpload() {
		url, err := e.blobs.Upload(ctx, tx.Image, transactionFolder)
		if err != nil {
			return Transaction{}, fmt.Errorf("upload receipt: %w", err)
		}
		tx.Image = ImageRef{URL: url}
	}

	if tx.ID == "" {
		id, err := e.store.CreateTransaction(ctx, tx)
		if err != nil {
			return Transaction{}, fmt.Errorf("create transaction: %w", err)
		}
		tx.ID = id
	} else {
		if err := e.store.UpdateTransaction(ctx, tx); err != nil {
			return Transaction{}, err
		}
	}
	return tx, nil
}

func validateTransaction(tx Transaction) error {
	if !tx.Type.Valid() {
		return &ValidationError{Field: "type", Reason: "must be income or expense"}
	}
	if !tx.Amount.IsPositive() {
		return &ValidationError{Field: "amount", Reason: "must be greater than zero"}
	}
	if tx.WalletID == "" {
		return &ValidationError{Field: "wallet_id", Reason: "is required"}
	}
	return nil
}

// applyNewTransaction handles the brand-new path: one guard, one wallet
// write. Nothing is written when the guard rejects.
func (e *Engine) applyNewTransaction(ctx context.Context, tx Transaction) error {
	w, err := e.store.GetWallet(ctx, tx.WalletID)
	if err != nil {
		return err
	}

	// A wallet owned by someone else reads as missing.
	if w.Owner != tx.Owner {
		return ErrWalletNotFound
	}

	if tx.Type == TypeExpense && w.Balance.Sub(tx.Amount).IsNegative() {
		return &InsufficientFundsError{
			WalletID:  w.ID,
			Available: w.Balance,
			Requested: tx.Amount,
		}
	}

	return e.store.UpdateWallet(ctx, w.ID, applyEffect(w, tx.Type, tx.Amount))
}

// moveEffect relocates a transaction's monetary effect from its stored
// version to its edited version: revert on the original wallet, apply on
// the destination wallet. Guards run against staged values before any
// write commits, so a rejection leaves both wallets unmodified.
func (e *Engine) moveEffect(ctx context.Context, prior, next Transaction) error {
	source, err := e.store.GetWallet(ctx, prior.WalletID)
	if err != nil {
		return err
	}

	reverted := revertEffect(source, prior.Type, prior.Amount)
	sameWallet := prior.WalletID == next.WalletID

	// Destination existence is checked before the first write; an edit
	// pointing at a dead wallet must not strand a committed revert.
	var dest Wallet
	if !sameWallet {
		dest, err = e.store.GetWallet(ctx, next.WalletID)
		if err != nil {
			return err
		}
		// A destination owned by someone else reads as missing.
		if dest.Owner != next.Owner {
			return ErrWalletNotFound
		}
	}

	if next.Type == TypeExpense {
		if sameWallet {
			// The edit itself must not go negative once the old effect
			// is backed out.
			if reverted.Balance.LessThan(next.Amount) {
				return &InsufficientFundsError{
					WalletID:  source.ID,
					Available: *reverted.Balance,
					Requested: next.Amount,
				}
			}
		} else if dest.Balance.LessThan(next.Amount) {
			return &InsufficientFundsError{
				WalletID:  dest.ID,
				Available: dest.Balance,
				Requested: next.Amount,
			}
		}
	}

	saga := newWalletSaga()
	saga.add("revert source wallet", func(ctx context.Context) error {
		return e.store.UpdateWallet(ctx, source.ID, reverted)
	})
	saga.add("apply destination wallet", func(ctx context.Context) error {
		// Re-fetch: when source == destination this picks up the revert
		// that just committed.
		w, err := e.store.GetWallet(ctx, next.WalletID)
		if err != nil {
			return err
		}
		return e.store.UpdateWallet(ctx, w.ID, applyEffect(w, next.Type, next.Amount))
	})
	return saga.run(ctx)
}

// =============================================================================
// DELETE TRANSACTION
// =============================================================================

// DeleteTransaction removes a transaction and reverses its effect on the
// given wallet. The wallet write commits before the row delete: a
// failure between the two leaves an orphaned row and a wallet that
// already reflects the deletion, which is the bias this module chooses
// (wallet correctness over row cleanliness).
//
// The caller supplies walletID and is trusted to pass the transaction's
// stored wallet.
func (e *Engine) DeleteTransaction(ctx context.Context, id TransactionID, walletID WalletID) error {
	tx, err := e.store.GetTransaction(ctx, id)
	if err != nil {
		return err
	}

	w, err := e.store.GetWallet(ctx, walletID)
	if err != nil {
		return err
	}

	// The row and the wallet being reverted must belong to the same user.
	if tx.Owner != w.Owner {
		return ErrTransactionNotFound
	}

	reverted := revertEffect(w, tx.Type, tx.Amount)

	// Defensive: reversing an expense adds money back and cannot go
	// negative unless prior state was already inconsistent. Reject
	// rather than compound the corruption.
	if tx.Type == TypeExpense && reverted.Balance.IsNegative() {
		return &InsufficientFundsError{
			WalletID:  w.ID,
			Available: w.Balance,
			Requested: tx.Amount,
		}
	}

	saga := newWalletSaga()
	saga.add("revert wallet", func(ctx context.Context) error {
		return e.store.UpdateWallet(ctx, w.ID, reverted)
	})
	saga.add("delete transaction row", func(ctx context.Context) error {
		return e.store.DeleteTransaction(ctx, tx.ID)
	})
	return saga.run(ctx)
}

// =============================================================================
// QUERIES (read-only passthroughs used by the API layer)
// =============================================================================

// Wallet returns a single wallet.
func (e *Engine) Wallet(ctx context.Context, id WalletID) (Wallet, error) {
	return e.store.GetWallet(ctx, id)
}

// Wallets returns the owner's wallets, newest first.
func (e *Engine) Wallets(ctx context.Context, owner UserID) ([]Wallet, error) {
	return e.store.WalletsByOwner(ctx, owner)
}

// Transactions returns the owner's transactions matching the query.
func (e *Engine) Transactions(ctx context.Context, q TransactionQuery) ([]Transaction, error) {
	return e.store.QueryTransactions(ctx, q)
}
