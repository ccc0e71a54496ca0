/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

ENVELOPE:
  Every response is wrapped in the same envelope:
    {"success": true,  "data": ...}
    {"success": false, "msg": "what went wrong"}
  Clients branch on success and never have to sniff payload shapes.

AMOUNTS:
  Amounts cross the wire as JSON numbers for client convenience. All
  arithmetic happens engine-side on exact decimals; the float conversion
  is display-only.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers and the engine, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - server.go: Router setup
*/
package api

import (
	"time"

	"github.com/fintrack/wallet-engine/auth"
	"github.com/fintrack/wallet-engine/ledger"
)

// =============================================================================
// ENVELOPE
// =============================================================================

// Envelope is the uniform response shape for every endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Msg     string `json:"msg,omitempty"`
}

// =============================================================================
// AUTH TYPES
// =============================================================================

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest authenticates an existing account.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries the session token and the authenticated user.
type AuthResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

// UserDTO represents a user in API responses. The password hash never
// leaves the server.
type UserDTO struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Image ImageDTO `json:"image"`
}

// UpdateProfileRequest changes display name and avatar.
type UpdateProfileRequest struct {
	Name  string   `json:"name"`
	Image ImageDTO `json:"image"`
}

// =============================================================================
// WALLET TYPES
// =============================================================================

// ImageDTO is an image reference: a hosted URL, or a local file path
// still waiting to be uploaded.
type ImageDTO struct {
	URL      string `json:"url,omitempty"`
	LocalURI string `json:"localUri,omitempty"`
}

// WalletDTO represents a wallet in API responses.
type WalletDTO struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Balance       float64  `json:"balance"`
	TotalIncome   float64  `json:"totalIncome"`
	TotalExpenses float64  `json:"totalExpenses"`
	Image         ImageDTO `json:"image"`
	CreatedAt     string   `json:"createdAt"`
}

// SaveWalletRequest creates a wallet or edits its metadata.
type SaveWalletRequest struct {
	Name  string   `json:"name"`
	Image ImageDTO `json:"image"`
}

// =============================================================================
// TRANSACTION TYPES
// =============================================================================

// TransactionDTO represents a transaction in API responses.
type TransactionDTO struct {
	ID          string   `json:"id"`
	Type        string   `json:"type"`
	Amount      float64  `json:"amount"`
	Category    string   `json:"category,omitempty"`
	Date        string   `json:"date"`
	Description string   `json:"description,omitempty"`
	Image       ImageDTO `json:"image"`
	WalletID    string   `json:"walletId"`
}

// SaveTransactionRequest creates or edits a transaction.
type SaveTransactionRequest struct {
	Type        string   `json:"type"`
	Amount      float64  `json:"amount"`
	Category    string   `json:"category"`
	Date        string   `json:"date"`
	Description string   `json:"description"`
	Image       ImageDTO `json:"image"`
	WalletID    string   `json:"walletId"`
}

// =============================================================================
// STATISTICS TYPES
// =============================================================================

// StatBucketDTO is one chart bar: income and expense for a label.
type StatBucketDTO struct {
	Label   string  `json:"label"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
}

// StatsDTO is the chart plus the flat list backing it.
type StatsDTO struct {
	Period       string           `json:"period"`
	Buckets      []StatBucketDTO  `json:"buckets"`
	Transactions []TransactionDTO `json:"transactions"`
}

// =============================================================================
// OVERVIEW TYPES
// =============================================================================

// OverviewDTO backs the home screen: total balance across wallets plus
// the most recent activity.
type OverviewDTO struct {
	TotalBalance       float64          `json:"totalBalance"`
	TotalIncome        float64          `json:"totalIncome"`
	TotalExpenses      float64          `json:"totalExpenses"`
	Wallets            []WalletDTO      `json:"wallets"`
	RecentTransactions []TransactionDTO `json:"recentTransactions"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toImageDTO(ref ledger.ImageRef) ImageDTO {
	return ImageDTO{URL: ref.URL, LocalURI: ref.LocalURI}
}

func toImageRef(dto ImageDTO) ledger.ImageRef {
	return ledger.ImageRef{URL: dto.URL, LocalURI: dto.LocalURI}
}

func toWalletDTO(w ledger.Wallet) WalletDTO {
	return WalletDTO{
		ID:            string(w.ID),
		Name:          w.Name,
		Balance:       w.Balance.InexactFloat64(),
		TotalIncome:   w.TotalIncome.InexactFloat64(),
		TotalExpenses: w.TotalExpenses.InexactFloat64(),
		Image:         toImageDTO(w.Image),
		CreatedAt:     w.CreatedAt.Format(time.RFC3339),
	}
}

func toWalletDTOs(wallets []ledger.Wallet) []WalletDTO {
	dtos := make([]WalletDTO, len(wallets))
	for i, w := range wallets {
		dtos[i] = toWalletDTO(w)
	}
	return dtos
}

func toTransactionDTO(tx ledger.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:          string(tx.ID),
		Type:        string(tx.Type),
		Amount:      tx.Amount.InexactFloat64(),
		Category:    tx.Category,
		Date:        tx.Date.Format(time.RFC3339),
		Description: tx.Description,
		Image:       toImageDTO(tx.Image),
		WalletID:    string(tx.WalletID),
	}
}

func toTransactionDTOs(txs []ledger.Transaction) []TransactionDTO {
	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	return dtos
}

func toUserDTO(u auth.User) UserDTO {
	return UserDTO{
		ID:    string(u.ID),
		Email: u.Email,
		Name:  u.Name,
		Image: toImageDTO(u.Image),
	}
}

func toStatsDTO(s ledger.Stats) StatsDTO {
	buckets := make([]StatBucketDTO, len(s.Buckets))
	for i, b := range s.Buckets {
		buckets[i] = StatBucketDTO{
			Label:   b.Label,
			Income:  b.Income.InexactFloat64(),
			Expense: b.Expense.InexactFloat64(),
		}
	}
	return StatsDTO{
		Period:       string(s.Period),
		Buckets:      buckets,
		Transactions: toTransactionDTOs(s.Transactions),
	}
}
