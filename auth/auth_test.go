package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fintrack/wallet-engine/auth"
	"github.com/fintrack/wallet-engine/ledger"
	"github.com/fintrack/wallet-engine/ledger/store"
)

// memUsers is a minimal in-memory UserStore.
type memUsers struct {
	mu    sync.Mutex
	users map[ledger.UserID]auth.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[ledger.UserID]auth.User)}
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

func newTestService() (*auth.Service, *auth.TokenIssuer, *store.Blobs) {
	tokens := auth.NewTokenIssuer([]byte("test-secret"), time.Hour)
	blobs := store.NewBlobs()
	return auth.NewService(newMemUsers(), blobs, tokens), tokens, blobs
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	user, token, err := svc.Register(ctx, "alice@example.com", "hunter22", "Alice")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.NotEmpty(t, token)
	assert.NotEqual(t, "hunter22", user.PasswordHash, "password must be hashed")

	loggedIn, loginToken, err := svc.Login(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.NotEmpty(t, loginToken)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "bob@example.com", "correct-horse", "Bob")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "bob@example.com", "battery-staple")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLogin_UnknownEmailLooksLikeWrongPassword(t *testing.T) {
	svc, _, _ := newTestService()

	_, _, err := svc.Login(context.Background(), "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials,
		"unknown email and wrong password should be indistinguishable")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, _, err := svc.Register(ctx, "carol@example.com", "pw123456", "Carol")
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, "carol@example.com", "pw654321", "Impostor")
	assert.ErrorIs(t, err, auth.ErrEmailTaken)
}

func TestRegister_MissingFields(t *testing.T) {
	svc, _, _ := newTestService()

	_, _, err := svc.Register(context.Background(), "", "pw", "Name")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestUpdateProfile_UploadsPendingAvatar(t *testing.T) {
	svc, _, blobs := newTestService()
	ctx := context.Background()

	user, _, err := svc.Register(ctx, "dave@example.com", "pw123456", "Dave")
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, user.ID, "David",
		ledger.ImageRef{LocalURI: "file:///tmp/avatar.png"})
	require.NoError(t, err)

	assert.Equal(t, "David", updated.Name)
	assert.NotEmpty(t, updated.Image.URL)
	assert.Empty(t, updated.Image.LocalURI, "local ref replaced by hosted URL")
	uploads := blobs.Uploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "users", uploads[0].Folder)
}

func TestTokenRoundtrip(t *testing.T) {
	tokens := auth.NewTokenIssuer([]byte("secret"), time.Hour)

	token, err := tokens.Issue("user-42")
	require.NoError(t, err)

	id, err := tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, ledger.UserID("user-42"), id)
}

func TestParse_RejectsForeignSignature(t *testing.T) {
	issuer := auth.NewTokenIssuer([]byte("secret-a"), time.Hour)
	verifier := auth.NewTokenIssuer([]byte("secret-b"), time.Hour)

	token, err := issuer.Issue("user-42")
	require.NoError(t, err)

	_, err = verifier.Parse(token)
	assert.ErrorIs(t, err, auth.ErrUnauthorized)
}

func TestMiddleware(t *testing.T) {
	tokens := auth.NewTokenIssuer([]byte("secret"), time.Hour)
	token, err := tokens.Issue("user-42")
	require.NoError(t, err)

	var gotID ledger.UserID
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = auth.UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := tokens.Middleware(next)

	// Valid token reaches the handler with the user id on the context.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ledger.UserID("user-42"), gotID)

	// Missing header is rejected.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Garbage token is rejected.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
