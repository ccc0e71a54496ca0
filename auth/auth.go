/*
Package auth provides user accounts and session tokens.

PURPOSE:
  Registration, login and profile updates for the wallet API. Passwords
  are stored as bcrypt hashes; sessions are stateless JWTs carrying the
  user id. The engine never reads ambient session state - handlers
  resolve the acting user here and pass the id into every ledger call.

SEE ALSO:
  - jwt.go: Token issuing, parsing and the HTTP middleware
  - store/sqlite/sqlite.go: UserStore implementation
*/
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/fintrack/wallet-engine/ledger"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
)

// =============================================================================
// USER MODEL AND STORE
// =============================================================================

type User struct {
	ID           ledger.UserID   `json:"id"`
	Email        string          `json:"email"`
	PasswordHash string          `json:"-"`
	Name         string          `json:"name"`
	Image        ledger.ImageRef `json:"image,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// UserStore persists user accounts.
type UserStore interface {
	// CreateUser stores a new user. Returns ErrEmailTaken on a duplicate email.
	CreateUser(ctx context.Context, u User) (ledger.UserID, error)

	// UserByEmail returns the user or ErrUserNotFound.
	UserByEmail(ctx context.Context, email string) (User, error)

	// UserByID returns the user or ErrUserNotFound.
	UserByID(ctx context.Context, id ledger.UserID) (User, error)

	// UpdateUser rewrites name and image for the given user.
	UpdateUser(ctx context.Context, u User) error
}

// =============================================================================
// SERVICE
// =============================================================================

// Service handles registration, login and profile updates.
type Service struct {
	users  UserStore
	blobs  ledger.BlobStore
	tokens *TokenIssuer
	now    func() time.Time
}

func NewService(users UserStore, blobs ledger.BlobStore, tokens *TokenIssuer) *Service {
	return &Service{users: users, blobs: blobs, tokens: tokens, now: time.Now}
}

// Register creates an account and returns the user plus a session token.
func (s *Service) Register(ctx context.Context, email, password, name string) (User, string, error) {
	if email == "" || password == "" || name == "" {
		return User{}, "", fmt.Errorf("%w: email, password and name are required", ErrInvalidCredentials)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, "", fmt.Errorf("hash password: %w", err)
	}

	user := User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		CreatedAt:    s.now(),
	}
	id, err := s.users.CreateUser(ctx, user)
	if err != nil {
		return User{}, "", err
	}
	user.ID = id

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return User{}, "", err
	}
	return user, token, nil
}

// Login verifies credentials and returns the user plus a session token.
func (s *Service) Login(ctx context.Context, email, password string) (User, string, error) {
	user, err := s.users.UserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		// Same answer as a wrong password so emails cannot be probed.
		return User{}, "", ErrInvalidCredentials
	}
	if err != nil {
		return User{}, "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return User{}, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return User{}, "", err
	}
	return user, token, nil
}

// User returns the account for the given id.
func (s *Service) User(ctx context.Context, id ledger.UserID) (User, error) {
	return s.users.UserByID(ctx, id)
}

// UpdateProfile edits name and avatar. A pending avatar is uploaded to
// the blob store first; a value that is already a URL passes through.
func (s *Service) UpdateProfile(ctx context.Context, id ledger.UserID, name string, image ledger.ImageRef) (User, error) {
	user, err := s.users.UserByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	if image.NeedsUpload() {
		url, err := s.blobs.Upload(ctx, image, "users")
		if err != nil {
			return User{}, fmt.Errorf("upload avatar: %w", err)
		}
		image = ledger.ImageRef{URL: url}
	}

	if name != "" {
		user.Name = name
	}
	if !image.IsZero() {
		user.Image = image
	}
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}
