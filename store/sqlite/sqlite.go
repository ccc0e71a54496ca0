/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements the document-store contracts (ledger.Store, auth.UserStore)
  using SQLite. In production, the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  ledger.WalletStore:      Wallet documents with merge-semantics updates
  ledger.TransactionStore: Transaction documents, queries, batch delete
  auth.UserStore:          User accounts

MERGE SEMANTICS:
  UpdateWallet builds its SET clause from the fields the caller actually
  set, so a metadata edit can never clobber monetary fields and the
  engine's mutation primitive stays a single-document write.

DECIMAL COLUMNS:
  Monetary values are stored as TEXT holding decimal strings. SQLite's
  REAL would reintroduce exactly the float drift the engine exists to
  avoid.

KEY TABLES:
  wallets:      Wallet documents with cached aggregates
  transactions: Income/expense rows referencing a wallet
  users:        Accounts with bcrypt password hashes

INDEXES:
  - idx_transactions_wallet:     Cascade pages and recomputation (hot path)
  - idx_transactions_owner_date: Statistics and history queries
  - idx_wallets_owner:           Wallet listing

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/wallet.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := ledger.NewEngine(store, blobs)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/fintrack/wallet-engine/auth"
	"github.com/fintrack/wallet-engine/ledger"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Wallets: balance/total_income/total_expenses are caches maintained
	-- by the engine, never computed here
	CREATE TABLE IF NOT EXISTS wallets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		balance TEXT NOT NULL DEFAULT '0',
		total_income TEXT NOT NULL DEFAULT '0',
		total_expenses TEXT NOT NULL DEFAULT '0',
		image_url TEXT NOT NULL DEFAULT '',
		image_local_uri TEXT NOT NULL DEFAULT '',
		owner TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_wallets_owner
		ON wallets(owner, created_at DESC);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		tx_type TEXT NOT NULL,
		amount TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		tx_date TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		image_local_uri TEXT NOT NULL DEFAULT '',
		wallet_id TEXT NOT NULL,
		owner TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_wallet
		ON transactions(wallet_id);

	CREATE INDEX IF NOT EXISTS idx_transactions_owner_date
		ON transactions(owner, tx_date DESC);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		name TEXT NOT NULL,
		image_url TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// WALLET STORE (ledger.WalletStore interface)
// =============================================================================

func (s *Store) GetWallet(ctx context.Context, id ledger.WalletID) (ledger.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, balance, total_income, total_expenses,
		       image_url, image_local_uri, owner, created_at
		FROM wallets WHERE id = ?`, id)
	return scanWallet(row)
}

func (s *Store) CreateWallet(ctx context.Context, w ledger.Wallet) (ledger.WalletID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w.ID == "" {
		w.ID = ledger.WalletID(uuid.NewString())
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wallets
		(id, name, balance, total_income, total_expenses, image_url, image_local_uri, owner, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID,
		w.Name,
		w.Balance.String(),
		w.TotalIncome.String(),
		w.TotalExpenses.String(),
		w.Image.URL,
		w.Image.LocalURI,
		w.Owner,
		w.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create wallet: %w", err)
	}
	return w.ID, nil
}

// UpdateWallet applies a partial write. The SET clause is built from the
// fields the caller set; everything else stays untouched.
func (s *Store) UpdateWallet(ctx context.Context, id ledger.WalletID, update ledger.WalletUpdate) error {
	if update.IsZero() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var sets []string
	var args []any
	if update.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *update.Name)
	}
	if update.Balance != nil {
		sets = append(sets, "balance = ?")
		args = append(args, update.Balance.String())
	}
	if update.TotalIncome != nil {
		sets = append(sets, "total_income = ?")
		args = append(args, update.TotalIncome.String())
	}
	if update.TotalExpenses != nil {
		sets = append(sets, "total_expenses = ?")
		args = append(args, update.TotalExpenses.String())
	}
	if update.Image != nil {
		sets = append(sets, "image_url = ?", "image_local_uri = ?")
		args = append(args, update.Image.URL, update.Image.LocalURI)
	}
	args = append(args, id)

	result, err := s.db.ExecContext(ctx,
		"UPDATE wallets SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("failed to update wallet: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ledger.ErrWalletNotFound
	}
	return nil
}

func (s *Store) DeleteWallet(ctx context.Context, id ledger.WalletID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, "DELETE FROM wallets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete wallet: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ledger.ErrWalletNotFound
	}
	return nil
}

func (s *Store) WalletsByOwner(ctx context.Context, owner ledger.UserID) ([]ledger.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, balance, total_income, total_expenses,
		       image_url, image_local_uri, owner, created_at
		FROM wallets WHERE owner = ?
		ORDER BY created_at DESC`, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	defer rows.Close()

	var wallets []ledger.Wallet
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWallet(row rowScanner) (ledger.Wallet, error) {
	var w ledger.Wallet
	var balance, income, expenses, createdAt string
	err := row.Scan(&w.ID, &w.Name, &balance, &income, &expenses,
		&w.Image.URL, &w.Image.LocalURI, &w.Owner, &createdAt)
	if err == sql.ErrNoRows {
		return ledger.Wallet{}, ledger.ErrWalletNotFound
	}
	if err != nil {
		return ledger.Wallet{}, fmt.Errorf("failed to scan wallet: %w", err)
	}

	if w.Balance, err = decimal.NewFromString(balance); err != nil {
		return ledger.Wallet{}, fmt.Errorf("corrupt balance %q: %w", balance, err)
	}
	if w.TotalIncome, err = decimal.NewFromString(income); err != nil {
		return ledger.Wallet{}, fmt.Errorf("corrupt total_income %q: %w", income, err)
	}
	if w.TotalExpenses, err = decimal.NewFromString(expenses); err != nil {
		return ledger.Wallet{}, fmt.Errorf("corrupt total_expenses %q: %w", expenses, err)
	}
	if w.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return ledger.Wallet{}, fmt.Errorf("corrupt created_at %q: %w", createdAt, err)
	}
	return w, nil
}

// =============================================================================
// TRANSACTION STORE (ledger.TransactionStore interface)
// =============================================================================

func (s *Store) GetTransaction(ctx context.Context, id ledger.TransactionID) (ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, tx_type, amount, category, tx_date, description,
		       image_url, image_local_uri, wallet_id, owner
		FROM transactions WHERE id = ?`, id)
	return scanTransaction(row)
}

func (s *Store) CreateTransaction(ctx context.Context, tx ledger.Transaction) (ledger.TransactionID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ID == "" {
		tx.ID = ledger.TransactionID(uuid.NewString())
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions
		(id, tx_type, amount, category, tx_date, description, image_url, image_local_uri, wallet_id, owner)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID,
		tx.Type,
		tx.Amount.String(),
		tx.Category,
		tx.Date.UTC().Format(time.RFC3339Nano),
		tx.Description,
		tx.Image.URL,
		tx.Image.LocalURI,
		tx.WalletID,
		tx.Owner,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create transaction: %w", err)
	}
	return tx.ID, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, tx ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `
		UPDATE transactions SET
			tx_type = ?, amount = ?, category = ?, tx_date = ?,
			description = ?, image_url = ?, image_local_uri = ?,
			wallet_id = ?, owner = ?
		WHERE id = ?`,
		tx.Type,
		tx.Amount.String(),
		tx.Category,
		tx.Date.UTC().Format(time.RFC3339Nano),
		tx.Description,
		tx.Image.URL,
		tx.Image.LocalURI,
		tx.WalletID,
		tx.Owner,
		tx.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ledger.ErrTransactionNotFound
	}
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id ledger.TransactionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ledger.ErrTransactionNotFound
	}
	return nil
}

func (s *Store) QueryTransactions(ctx context.Context, q ledger.TransactionQuery) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, tx_type, amount, category, tx_date, description,
		       image_url, image_local_uri, wallet_id, owner
		FROM transactions WHERE 1=1`
	var args []any

	if q.Owner != "" {
		query += " AND owner = ?"
		args = append(args, q.Owner)
	}
	if q.WalletID != "" {
		query += " AND wallet_id = ?"
		args = append(args, q.WalletID)
	}
	if !q.From.IsZero() {
		query += " AND tx_date >= ?"
		args = append(args, q.From.UTC().Format(time.RFC3339Nano))
	}
	if !q.To.IsZero() {
		query += " AND tx_date <= ?"
		args = append(args, q.To.UTC().Format(time.RFC3339Nano))
	}
	query += " ORDER BY tx_date DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []ledger.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// DeleteTransactionsBatch removes the given ids inside one database
// transaction: all rows go or none do.
func (s *Store) DeleteTransactionsBatch(ctx context.Context, ids []ledger.TransactionID) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch delete: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.PrepareContext(ctx, "DELETE FROM transactions WHERE id = ?")
	if err != nil {
		return fmt.Errorf("failed to prepare batch delete: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("failed to batch delete %s: %w", id, err)
		}
	}
	return dbTx.Commit()
}

func scanTransaction(row rowScanner) (ledger.Transaction, error) {
	var tx ledger.Transaction
	var amount, date string
	err := row.Scan(&tx.ID, &tx.Type, &amount, &tx.Category, &date,
		&tx.Description, &tx.Image.URL, &tx.Image.LocalURI, &tx.WalletID, &tx.Owner)
	if err == sql.ErrNoRows {
		return ledger.Transaction{}, ledger.ErrTransactionNotFound
	}
	if err != nil {
		return ledger.Transaction{}, fmt.Errorf("failed to scan transaction: %w", err)
	}

	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return ledger.Transaction{}, fmt.Errorf("corrupt amount %q: %w", amount, err)
	}
	if tx.Date, err = time.Parse(time.RFC3339Nano, date); err != nil {
		return ledger.Transaction{}, fmt.Errorf("corrupt tx_date %q: %w", date, err)
	}
	return tx, nil
}

// =============================================================================
// USER STORE (auth.UserStore interface)
// =============================================================================

func (s *Store) CreateUser(ctx context.Context, u auth.User) (ledger.UserID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = ledger.UserID(uuid.NewString())
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, name, image_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.Name, u.Image.URL,
		u.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return "", auth.ErrEmailTaken
		}
		return "", fmt.Errorf("failed to create user: %w", err)
	}
	return u.ID, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, name, image_url, created_at
		FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (s *Store) UserByID(ctx context.Context, id ledger.UserID) (auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, name, image_url, created_at
		FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (s *Store) UpdateUser(ctx context.Context, u auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		"UPDATE users SET name = ?, image_url = ? WHERE id = ?",
		u.Name, u.Image.URL, u.ID)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

func scanUser(row rowScanner) (auth.User, error) {
	var u auth.User
	var createdAt string
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Image.URL, &createdAt)
	if err == sql.ErrNoRows {
		return auth.User{}, auth.ErrUserNotFound
	}
	if err != nil {
		return auth.User{}, fmt.Errorf("failed to scan user: %w", err)
	}
	if u.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return auth.User{}, fmt.Errorf("corrupt created_at %q: %w", createdAt, err)
	}
	return u, nil
}
