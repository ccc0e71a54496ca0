package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrack/wallet-engine/api"
	"github.com/fintrack/wallet-engine/auth"
	"github.com/fintrack/wallet-engine/ledger"
	"github.com/fintrack/wallet-engine/ledger/store"
)

// memUsers backs the auth service in router tests.
type memUsers struct {
	mu    sync.Mutex
	users map[ledger.UserID]auth.User
}

func (m *memUsers) CreateUser(_ context.Context, u auth.User) (ledger.UserID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return "", auth.ErrEmailTaken
		}
	}
	u.ID = ledger.UserID(uuid.NewString())
	m.users[u.ID] = u
	return u.ID, nil
}

func (m *memUsers) UserByEmail(_ context.Context, email string) (auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return auth.User{}, auth.ErrUserNotFound
}

func (m *memUsers) UserByID(_ context.Context, id ledger.UserID) (auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return auth.User{}, auth.ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) UpdateUser(_ context.Context, u auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return auth.ErrUserNotFound
	}
	m.users[u.ID] = u
	return nil
}

// testAPI bundles the router with a registered user's token.
type testAPI struct {
	router http.Handler
	token  string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	mem := store.NewMemory()
	blobs := store.NewBlobs()
	engine := ledger.NewEngine(mem, blobs)
	tokens := auth.NewTokenIssuer([]byte("test-secret"), time.Hour)
	authSvc := auth.NewService(&memUsers{users: make(map[ledger.UserID]auth.User)}, blobs, tokens)

	handler := api.NewHandler(engine, authSvc)
	router := api.NewRouter(handler, tokens, []string{"*"})

	a := &testAPI{router: router}
	resp := a.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"email":    "test@example.com",
		"password": "pw123456",
		"name":     "Test",
	})
	require.Equal(t, http.StatusCreated, resp.Code)
	a.token = resp.data(t)["token"].(string)
	return a
}

type apiResponse struct {
	*httptest.ResponseRecorder
}

// envelope decodes the {success, data, msg} wrapper.
func (r apiResponse) envelope(t *testing.T) map[string]any {
	t.Helper()
	var env map[string]any
	require.NoError(t, json.Unmarshal(r.Body.Bytes(), &env))
	return env
}

func (r apiResponse) data(t *testing.T) map[string]any {
	t.Helper()
	env := r.envelope(t)
	require.Equal(t, true, env["success"], "expected success envelope, got: %s", r.Body.String())
	data, _ := env["data"].(map[string]any)
	return data
}

func (r apiResponse) dataList(t *testing.T) []any {
	t.Helper()
	env := r.envelope(t)
	require.Equal(t, true, env["success"], "expected success envelope, got: %s", r.Body.String())
	list, _ := env["data"].([]any)
	return list
}

func (a *testAPI) do(t *testing.T, method, path string, body any) apiResponse {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return apiResponse{rec}
}

func (a *testAPI) createWallet(t *testing.T, name string) string {
	t.Helper()
	resp := a.do(t, http.MethodPost, "/api/wallets", map[string]any{"name": name})
	require.Equal(t, http.StatusCreated, resp.Code)
	return resp.data(t)["id"].(string)
}

func (a *testAPI) addTransaction(t *testing.T, walletID, txType string, amount float64, category string) string {
	t.Helper()
	resp := a.do(t, http.MethodPost, "/api/transactions", map[string]any{
		"type":     txType,
		"amount":   amount,
		"category": category,
		"date":     time.Now().UTC().Format(time.RFC3339),
		"walletId": walletID,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return resp.data(t)["id"].(string)
}

func TestAuthRequired(t *testing.T) {
	a := newTestAPI(t)
	a.token = ""

	resp := a.do(t, http.MethodGet, "/api/wallets", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestLoginEndpoint(t *testing.T) {
	a := newTestAPI(t)

	resp := a.do(t, http.MethodPost, "/api/auth/login", map[string]any{
		"email":    "test@example.com",
		"password": "pw123456",
	})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.NotEmpty(t, resp.data(t)["token"])

	resp = a.do(t, http.MethodPost, "/api/auth/login", map[string]any{
		"email":    "test@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, false, resp.envelope(t)["success"])
}

func TestWalletLifecycle(t *testing.T) {
	a := newTestAPI(t)

	id := a.createWallet(t, "Checking")

	list := a.do(t, http.MethodGet, "/api/wallets", nil)
	require.Equal(t, http.StatusOK, list.Code)
	wallets := list.dataList(t)
	require.Len(t, wallets, 1)
	wallet := wallets[0].(map[string]any)
	assert.Equal(t, "Checking", wallet["name"])
	assert.Equal(t, 0.0, wallet["balance"])

	renamed := a.do(t, http.MethodPut, "/api/wallets/"+id, map[string]any{"name": "Main"})
	require.Equal(t, http.StatusOK, renamed.Code)
	assert.Equal(t, "Main", renamed.data(t)["name"])

	deleted := a.do(t, http.MethodDelete, "/api/wallets/"+id, nil)
	require.Equal(t, http.StatusOK, deleted.Code)

	list = a.do(t, http.MethodGet, "/api/wallets", nil)
	assert.Empty(t, list.dataList(t))
}

func TestTransactionFlow_UpdatesWalletAggregates(t *testing.T) {
	a := newTestAPI(t)
	walletID := a.createWallet(t, "Main")

	a.addTransaction(t, walletID, "income", 100, "salary")
	txID := a.addTransaction(t, walletID, "expense", 30, "groceries")

	wallets := a.do(t, http.MethodGet, "/api/wallets", nil).dataList(t)
	wallet := wallets[0].(map[string]any)
	assert.Equal(t, 70.0, wallet["balance"])
	assert.Equal(t, 100.0, wallet["totalIncome"])
	assert.Equal(t, 30.0, wallet["totalExpenses"])

	// Deleting the expense puts the money back.
	resp := a.do(t, http.MethodDelete, "/api/transactions/"+txID+"?wallet_id="+walletID, nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	wallets = a.do(t, http.MethodGet, "/api/wallets", nil).dataList(t)
	wallet = wallets[0].(map[string]any)
	assert.Equal(t, 100.0, wallet["balance"])
	assert.Equal(t, 0.0, wallet["totalExpenses"])
}

func TestInsufficientFundsIs400(t *testing.T) {
	a := newTestAPI(t)
	walletID := a.createWallet(t, "Empty")

	resp := a.do(t, http.MethodPost, "/api/transactions", map[string]any{
		"type":     "expense",
		"amount":   50,
		"date":     time.Now().UTC().Format(time.RFC3339),
		"walletId": walletID,
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	env := resp.envelope(t)
	assert.Equal(t, false, env["success"])
	assert.Contains(t, env["msg"], "insufficient")
}

func TestValidationErrorIs400(t *testing.T) {
	a := newTestAPI(t)
	walletID := a.createWallet(t, "Main")

	resp := a.do(t, http.MethodPost, "/api/transactions", map[string]any{
		"type":     "transfer",
		"amount":   10,
		"date":     "2025-06-01",
		"walletId": walletID,
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestUnknownWalletIs404(t *testing.T) {
	a := newTestAPI(t)

	resp := a.do(t, http.MethodPut, "/api/wallets/missing", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestTransactionSearch(t *testing.T) {
	a := newTestAPI(t)
	walletID := a.createWallet(t, "Main")

	a.addTransaction(t, walletID, "income", 500, "salary")
	a.addTransaction(t, walletID, "income", 100, "gift")
	txResp := a.do(t, http.MethodPost, "/api/transactions", map[string]any{
		"type":        "expense",
		"amount":      20,
		"category":    "food",
		"description": "lunch with SALARY review team",
		"date":        time.Now().UTC().Format(time.RFC3339),
		"walletId":    walletID,
	})
	require.Equal(t, http.StatusCreated, txResp.Code)

	// Term matches category of one row and description of another,
	// case-insensitive.
	found := a.do(t, http.MethodGet, "/api/transactions?q=salary", nil).dataList(t)
	assert.Len(t, found, 2)

	found = a.do(t, http.MethodGet, "/api/transactions?q=salary&limit=1", nil).dataList(t)
	assert.Len(t, found, 1)

	all := a.do(t, http.MethodGet, "/api/transactions", nil).dataList(t)
	assert.Len(t, all, 3)
}

func TestStatsEndpoint(t *testing.T) {
	a := newTestAPI(t)
	walletID := a.createWallet(t, "Main")
	a.addTransaction(t, walletID, "income", 200, "salary")
	a.addTransaction(t, walletID, "expense", 50, "food")

	resp := a.do(t, http.MethodGet, "/api/stats/weekly", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	data := resp.data(t)
	assert.Equal(t, "weekly", data["period"])
	buckets := data["buckets"].([]any)
	assert.Len(t, buckets, 7)

	resp = a.do(t, http.MethodGet, "/api/stats/quarterly", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestOverviewEndpoint(t *testing.T) {
	a := newTestAPI(t)
	w1 := a.createWallet(t, "Cash")
	w2 := a.createWallet(t, "Bank")
	a.addTransaction(t, w1, "income", 100, "salary")
	a.addTransaction(t, w2, "income", 250, "salary")
	a.addTransaction(t, w2, "expense", 50, "rent")

	resp := a.do(t, http.MethodGet, "/api/overview", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	data := resp.data(t)

	assert.Equal(t, 300.0, data["totalBalance"])
	assert.Equal(t, 350.0, data["totalIncome"])
	assert.Equal(t, 50.0, data["totalExpenses"])
	assert.Len(t, data["wallets"].([]any), 2)
	assert.Len(t, data["recentTransactions"].([]any), 3)
}

func TestProfileEndpoints(t *testing.T) {
	a := newTestAPI(t)

	me := a.do(t, http.MethodGet, "/api/users/me", nil)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Equal(t, "test@example.com", me.data(t)["email"])

	updated := a.do(t, http.MethodPut, "/api/users/me", map[string]any{"name": "Renamed"})
	require.Equal(t, http.StatusOK, updated.Code)
	assert.Equal(t, "Renamed", updated.data(t)["name"])
}

func TestDeleteTransaction_RequiresWalletID(t *testing.T) {
	a := newTestAPI(t)
	walletID := a.createWallet(t, "Main")
	txID := a.addTransaction(t, walletID, "income", 10, "misc")

	resp := a.do(t, http.MethodDelete, "/api/transactions/"+txID, nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestWalletIsolationBetweenUsers(t *testing.T) {
	a := newTestAPI(t)
	walletID := a.createWallet(t, "Mine")

	// Second account must not see or touch the first account's wallet.
	other := a.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"email":    "other@example.com",
		"password": "pw123456",
		"name":     "Other",
	})
	require.Equal(t, http.StatusCreated, other.Code)
	firstToken := a.token
	a.token = other.data(t)["token"].(string)

	assert.Empty(t, a.do(t, http.MethodGet, "/api/wallets", nil).dataList(t))

	resp := a.do(t, http.MethodDelete, "/api/wallets/"+walletID, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	a.token = firstToken
	assert.Len(t, a.do(t, http.MethodGet, "/api/wallets", nil).dataList(t), 1)
}

func TestTransactionIsolationBetweenUsers(t *testing.T) {
	a := newTestAPI(t)
	walletID := a.createWallet(t, "Mine")
	txID := a.addTransaction(t, walletID, "income", 40, "salary")

	other := a.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"email":    "other@example.com",
		"password": "pw123456",
		"name":     "Other",
	})
	require.Equal(t, http.StatusCreated, other.Code)
	firstToken := a.token
	a.token = other.data(t)["token"].(string)
	otherWallet := a.createWallet(t, "Theirs")

	// Recording a transaction against the first user's wallet is refused
	// and never touches its balance.
	resp := a.do(t, http.MethodPost, "/api/transactions", map[string]any{
		"type":     "income",
		"amount":   500,
		"date":     time.Now().UTC().Format(time.RFC3339),
		"walletId": walletID,
	})
	assert.Equal(t, http.StatusNotFound, resp.Code, resp.Body.String())

	// Reassigning one of their own rows into the foreign wallet is
	// refused the same way.
	ownTx := a.addTransaction(t, otherWallet, "income", 10, "misc")
	resp = a.do(t, http.MethodPut, "/api/transactions/"+ownTx, map[string]any{
		"type":     "income",
		"amount":   10,
		"date":     time.Now().UTC().Format(time.RFC3339),
		"walletId": walletID,
	})
	assert.Equal(t, http.StatusNotFound, resp.Code, resp.Body.String())

	// So is editing a row they do not own.
	resp = a.do(t, http.MethodPut, "/api/transactions/"+txID, map[string]any{
		"type":     "income",
		"amount":   999,
		"date":     time.Now().UTC().Format(time.RFC3339),
		"walletId": walletID,
	})
	assert.Equal(t, http.StatusNotFound, resp.Code, resp.Body.String())

	a.token = firstToken
	wallets := a.do(t, http.MethodGet, "/api/wallets", nil).dataList(t)
	wallet := wallets[0].(map[string]any)
	assert.Equal(t, 40.0, wallet["balance"])
	assert.Equal(t, 40.0, wallet["totalIncome"])
}

func TestEnvelopeShape(t *testing.T) {
	a := newTestAPI(t)

	resp := a.do(t, http.MethodGet, "/api/wallets", nil)
	var env api.Envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Empty(t, env.Msg)

	resp = a.do(t, http.MethodGet, "/api/stats/bogus", nil)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Msg)
}
