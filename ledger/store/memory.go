// Package store provides in-memory ledger.Store and ledger.BlobStore
// implementations for tests and development.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/fintrack/wallet-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory document store (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	wallets      map[ledger.WalletID]ledger.Wallet
	transactions map[ledger.TransactionID]ledger.Transaction
}

func NewMemory() *Memory {
	return &Memory{
		wallets:      make(map[ledger.WalletID]ledger.Wallet),
		transactions: make(map[ledger.TransactionID]ledger.Transaction),
	}
}

// =============================================================================
// WALLET STORE
// =============================================================================

func (m *Memory) GetWallet(_ context.Context, id ledger.WalletID) (ledger.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.wallets[id]
	if !ok {
		return ledger.Wallet{}, ledger.ErrWalletNotFound
	}
	return w, nil
}

func (m *Memory) CreateWallet(_ context.Context, w ledger.Wallet) (ledger.WalletID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if w.ID == "" {
		w.ID = ledger.WalletID(uuid.NewString())
	}
	m.wallets[w.ID] = w
	return w.ID, nil
}

// UpdateWallet applies a partial write; nil fields are left untouched.
func (m *Memory) UpdateWallet(_ context.Context, id ledger.WalletID, update ledger.WalletUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.wallets[id]
	if !ok {
		return ledger.ErrWalletNotFound
	}
	if update.Name != nil {
		w.Name = *update.Name
	}
	if update.Balance != nil {
		w.Balance = *update.Balance
	}
	if update.TotalIncome != nil {
		w.TotalIncome = *update.TotalIncome
	}
	if update.TotalExpenses != nil {
		w.TotalExpenses = *update.TotalExpenses
	}
	if update.Image != nil {
		w.Image = *update.Image
	}
	m.wallets[id] = w
	return nil
}

func (m *Memory) DeleteWallet(_ context.Context, id ledger.WalletID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.wallets[id]; !ok {
		return ledger.ErrWalletNotFound
	}
	delete(m.wallets, id)
	return nil
}

func (m *Memory) WalletsByOwner(_ context.Context, owner ledger.UserID) ([]ledger.Wallet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.Wallet
	for _, w := range m.wallets {
		if w.Owner == owner {
			result = append(result, w)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// =============================================================================
// TRANSACTION STORE
// =============================================================================

func (m *Memory) GetTransaction(_ context.Context, id ledger.TransactionID) (ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tx, ok := m.transactions[id]
	if !ok {
		return ledger.Transaction{}, ledger.ErrTransactionNotFound
	}
	return tx, nil
}

func (m *Memory) CreateTransaction(_ context.Context, tx ledger.Transaction) (ledger.TransactionID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if tx.ID == "" {
		tx.ID = ledger.TransactionID(uuid.NewString())
	}
	m.transactions[tx.ID] = tx
	return tx.ID, nil
}

func (m *Memory) UpdateTransaction(_ context.Context, tx ledger.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.transactions[tx.ID]; !ok {
		return ledger.ErrTransactionNotFound
	}
	m.transactions[tx.ID] = tx
	return nil
}

func (m *Memory) DeleteTransaction(_ context.Context, id ledger.TransactionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.transactions[id]; !ok {
		return ledger.ErrTransactionNotFound
	}
	delete(m.transactions, id)
	return nil
}

func (m *Memory) QueryTransactions(_ context.Context, q ledger.TransactionQuery) ([]ledger.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ledger.Transaction
	for _, tx := range m.transactions {
		if q.Owner != "" && tx.Owner != q.Owner {
			continue
		}
		if q.WalletID != "" && tx.WalletID != q.WalletID {
			continue
		}
		if !q.From.IsZero() && tx.Date.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && tx.Date.After(q.To) {
			continue
		}
		result = append(result, tx)
	}

	// Date descending, matching the store contract.
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.After(result[j].Date)
	})

	if q.Limit > 0 && len(result) > q.Limit {
		result = result[:q.Limit]
	}
	return result, nil
}

// DeleteTransactionsBatch removes all ids or none.
func (m *Memory) DeleteTransactionsBatch(_ context.Context, ids []ledger.TransactionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		if _, ok := m.transactions[id]; !ok {
			return ledger.ErrTransactionNotFound
		}
	}
	for _, id := range ids {
		delete(m.transactions, id)
	}
	return nil
}

// =============================================================================
// MEMORY BLOB STORE
// =============================================================================

// Upload records an upload attempt against the in-memory blob store.
type Upload struct {
	Ref    ledger.ImageRef
	Folder string
	URL    string
}

// Blobs is an in-memory ledger.BlobStore. Set Fail to make every pending
// upload return that error; URL pass-through values still succeed.
type Blobs struct {
	mu      sync.Mutex
	Fail    error
	uploads []Upload
}

func NewBlobs() *Blobs {
	return &Blobs{}
}

func (b *Blobs) Upload(_ context.Context, ref ledger.ImageRef, folder string) (string, error) {
	if ref.URL != "" {
		return ref.URL, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.Fail != nil {
		return "", b.Fail
	}
	url := "https://blobs.local/" + folder + "/" + uuid.NewString()
	b.uploads = append(b.uploads, Upload{Ref: ref, Folder: folder, URL: url})
	return url, nil
}

// Uploads returns a copy of the recorded uploads.
func (b *Blobs) Uploads() []Upload {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Upload(nil), b.uploads...)
}
