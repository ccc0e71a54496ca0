/*
handlers.go - HTTP API handlers for the wallet engine

PURPOSE:
  Exposes the ledger engine and auth service via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Auth:
    POST   /api/auth/register      Create account, returns token
    POST   /api/auth/login         Authenticate, returns token

  Users:
    GET    /api/users/me           Current profile
    PUT    /api/users/me           Update name/avatar

  Wallets:
    GET    /api/wallets            List caller's wallets
    POST   /api/wallets            Create wallet
    PUT    /api/wallets/{id}       Edit wallet metadata
    DELETE /api/wallets/{id}       Delete wallet and its transactions

  Transactions:
    GET    /api/transactions       List/search (q, wallet_id, limit)
    POST   /api/transactions       Create transaction
    PUT    /api/transactions/{id}  Edit transaction
    DELETE /api/transactions/{id}  Delete (requires wallet_id query param)

  Statistics:
    GET    /api/stats/{period}     weekly | monthly | yearly

  Overview:
    GET    /api/overview           Totals + wallets + recent activity

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Engine: Ledger consistency engine (wallet/transaction semantics)
  - Auth:   Account service (register/login/profile)

REQUEST FLOW:
  1. Parse HTTP request
  2. Resolve acting user from the request context
  3. Call domain logic
  4. Serialize response envelope
  5. Map errors to status codes

ERROR HANDLING:
  Errors are returned in the {success:false, msg} envelope with status:
  - 400: Validation errors, insufficient funds, invalid input
  - 401: Missing/invalid token, bad credentials
  - 404: Wallet/transaction/user not found (or owned by someone else)
  - 409: Email already registered
  - 500: Store or upload failures

OWNERSHIP:
  Every wallet and transaction operation is scoped to the acting user.
  A document owned by someone else reads as not found, so the API leaks
  nothing about other accounts.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/fintrack/wallet-engine/auth"
	"github.com/fintrack/wallet-engine/ledger"
)

// recentLimit caps the transaction list on the overview screen.
const recentLimit = 30

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *ledger.Engine
	Auth   *auth.Service
}

// NewHandler creates a new handler.
func NewHandler(engine *ledger.Engine, authSvc *auth.Service) *Handler {
	return &Handler{Engine: engine, Auth: authSvc}
}

// =============================================================================
// AUTH HANDLERS
// =============================================================================

// Register creates a new account and returns a session token.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, token, err := h.Auth.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeData(w, http.StatusCreated, AuthResponse{Token: token, User: toUserDTO(user)})
}

// Login authenticates an account and returns a session token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, token, err := h.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeData(w, http.StatusOK, AuthResponse{Token: token, User: toUserDTO(user)})
}

// Me returns the authenticated user's profile.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	user, err := h.Auth.User(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeData(w, http.StatusOK, toUserDTO(user))
}

// UpdateMe changes the authenticated user's name and avatar.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.Auth.UpdateProfile(r.Context(), userID, req.Name, toImageRef(req.Image))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeData(w, http.StatusOK, toUserDTO(user))
}

// =============================================================================
// WALLET HANDLERS
// =============================================================================

// ListWallets returns the caller's wallets, newest first.
func (h *Handler) ListWallets(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	wallets, err := h.Engine.Wallets(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeData(w, http.StatusOK, toWalletDTOs(wallets))
}

// CreateWallet creates a wallet with zeroed aggregates.
func (h *Handler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var req SaveWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	wallet, err := h.Engine.SaveWallet(r.Context(), ledger.Wallet{
		Name:  req.Name,
		Image: toImageRef(req.Image),
		Owner: userID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeData(w, http.StatusCreated, toWalletDTO(wallet))
}

// UpdateWallet edits a wallet's name and image. Monetary fields are
// engine-owned and cannot be set through this endpoint.
func (h *Handler) UpdateWallet(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	walletID := ledger.WalletID(chi.URLParam(r, "id"))

	if _, err := h.ownedWallet(r, userID, walletID); err != nil {
		writeDomainError(w, err)
		return
	}

	var req SaveWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := h.Engine.SaveWallet(r.Context(), ledger.Wallet{
		ID:    walletID,
		Name:  req.Name,
		Image: toImageRef(req.Image),
		Owner: userID,
	}); err != nil {
		writeDomainError(w, err)
		return
	}

	// Re-read so the response carries the wallet's real aggregates.
	wallet, err := h.Engine.Wallet(r.Context(), walletID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeData(w, http.StatusOK, toWalletDTO(wallet))
}

// DeleteWallet removes a wallet and every transaction that references it.
func (h *Handler) DeleteWallet(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	walletID := ledger.WalletID(chi.URLParam(r, "id"))

	if _, err := h.ownedWallet(r, userID, walletID); err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.Engine.DeleteWallet(r.Context(), walletID); err != nil {
		writeDomainError(w, err)
		return
	}

	writeData(w, http.StatusOK, nil)
}

// ownedWallet fetches a wallet and hides other users' wallets behind
// not-found.
func (h *Handler) ownedWallet(r *http.Request, userID ledger.UserID, id ledger.WalletID) (ledger.Wallet, error) {
	wallet, err := h.Engine.Wallet(r.Context(), id)
	if err != nil {
		return ledger.Wallet{}, err
	}
	if wallet.Owner != userID {
		return ledger.Wallet{}, ledger.ErrWalletNotFound
	}
	return wallet, nil
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// ListTransactions returns the caller's transactions, newest first.
// Optional filters: wallet_id, limit, and q (matches category,
// description, or type, case-insensitive).
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	query := ledger.TransactionQuery{
		Owner:    userID,
		WalletID: ledger.WalletID(r.URL.Query().Get("wallet_id")),
	}
	search := strings.TrimSpace(r.URL.Query().Get("q"))
	// With a search term the limit applies after filtering, so fetch
	// everything and trim below.
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeFail(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
	}
	if search == "" {
		query.Limit = limit
	}

	txs, err := h.Engine.Transactions(r.Context(), query)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if search != "" {
		txs = filterTransactions(txs, search)
		if limit > 0 && len(txs) > limit {
			txs = txs[:limit]
		}
	}

	writeData(w, http.StatusOK, toTransactionDTOs(txs))
}

// filterTransactions keeps rows whose category, description, or type
// contains the term.
func filterTransactions(txs []ledger.Transaction, term string) []ledger.Transaction {
	term = strings.ToLower(term)
	matched := make([]ledger.Transaction, 0, len(txs))
	for _, tx := range txs {
		if strings.Contains(strings.ToLower(tx.Category), term) ||
			strings.Contains(strings.ToLower(tx.Description), term) ||
			strings.Contains(strings.ToLower(string(tx.Type)), term) {
			matched = append(matched, tx)
		}
	}
	return matched
}

// CreateTransaction records a new income or expense.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	h.saveTransaction(w, r, "")
}

// UpdateTransaction edits an existing transaction, including amount,
// type, and wallet reassignment.
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	h.saveTransaction(w, r, ledger.TransactionID(chi.URLParam(r, "id")))
}

func (h *Handler) saveTransaction(w http.ResponseWriter, r *http.Request, id ledger.TransactionID) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var req SaveTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		writeFail(w, http.StatusBadRequest, "date must be RFC3339 or YYYY-MM-DD")
		return
	}

	tx, err := h.Engine.SaveTransaction(r.Context(), ledger.Transaction{
		ID:          id,
		Type:        ledger.TransactionType(req.Type),
		Amount:      decimal.NewFromFloat(req.Amount),
		Category:    req.Category,
		Date:        date,
		Description: req.Description,
		Image:       toImageRef(req.Image),
		WalletID:    ledger.WalletID(req.WalletID),
		Owner:       userID,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := http.StatusOK
	if id == "" {
		status = http.StatusCreated
	}
	writeData(w, status, toTransactionDTO(tx))
}

// DeleteTransaction removes a transaction and reverts its wallet effect.
// The wallet_id query parameter names the wallet the row belongs to.
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	txID := ledger.TransactionID(chi.URLParam(r, "id"))
	walletID := ledger.WalletID(r.URL.Query().Get("wallet_id"))
	if walletID == "" {
		writeFail(w, http.StatusBadRequest, "wallet_id query parameter is required")
		return
	}

	if _, err := h.ownedWallet(r, userID, walletID); err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.Engine.DeleteTransaction(r.Context(), txID, walletID); err != nil {
		writeDomainError(w, err)
		return
	}

	writeData(w, http.StatusOK, nil)
}

// =============================================================================
// STATISTICS AND OVERVIEW
// =============================================================================

// GetStats returns chart buckets for the requested period.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	period, err := ledger.ParsePeriod(chi.URLParam(r, "period"))
	if err != nil {
		writeFail(w, http.StatusBadRequest, "period must be weekly, monthly, or yearly")
		return
	}

	stats, err := h.Engine.Stats(r.Context(), userID, period)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeData(w, http.StatusOK, toStatsDTO(stats))
}

// GetOverview returns the home-screen payload: totals across all
// wallets plus recent activity. The two reads fan out concurrently.
func (h *Handler) GetOverview(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.UserIDFromContext(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var wallets []ledger.Wallet
	var recent []ledger.Transaction

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		wallets, err = h.Engine.Wallets(ctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = h.Engine.Transactions(ctx, ledger.TransactionQuery{
			Owner: userID,
			Limit: recentLimit,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		writeDomainError(w, err)
		return
	}

	balance, income, expenses := decimal.Zero, decimal.Zero, decimal.Zero
	for _, w := range wallets {
		balance = balance.Add(w.Balance)
		income = income.Add(w.TotalIncome)
		expenses = expenses.Add(w.TotalExpenses)
	}

	writeData(w, http.StatusOK, OverviewDTO{
		TotalBalance:       balance.InexactFloat64(),
		TotalIncome:        income.InexactFloat64(),
		TotalExpenses:      expenses.InexactFloat64(),
		Wallets:            toWalletDTOs(wallets),
		RecentTransactions: toTransactionDTOs(recent),
	})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Success: true, Data: data})
}

func writeFail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Envelope{Success: false, Msg: msg})
}

// writeDomainError maps domain errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		writeFail(w, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrUnauthorized):
		writeFail(w, http.StatusUnauthorized, err.Error())
	case ledger.IsNotFound(err) || errors.Is(err, auth.ErrUserNotFound):
		writeFail(w, http.StatusNotFound, err.Error())
	case ledger.IsClientError(err):
		writeFail(w, http.StatusBadRequest, err.Error())
	default:
		writeFail(w, http.StatusInternalServerError, err.Error())
	}
}
