/*
jwt.go - Session tokens and the HTTP middleware

PURPOSE:
  Stateless sessions: a signed HMAC JWT carrying the user id and an
  expiry. Middleware validates the Authorization header and stashes the
  user id in the request context; handlers read it back with
  UserIDFromContext and pass it explicitly into engine calls.
*/
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fintrack/wallet-engine/ledger"
)

type ctxKey string

const userIDKey ctxKey = "user_id"

// ErrUnauthorized is returned for missing, malformed or expired tokens.
var ErrUnauthorized = errors.New("unauthorized")

// TokenIssuer signs and parses session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret []byte, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, ttl: ttl, now: time.Now}
}

// Issue signs a token for the given user id.
func (t *TokenIssuer) Issue(id ledger.UserID) (string, error) {
	now := t.now()
	claims := jwt.MapClaims{
		"user_id": string(id),
		"iat":     now.Unix(),
		"exp":     now.Add(t.ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse validates a token string and returns the user id it carries.
func (t *TokenIssuer) Parse(tokenStr string) (ledger.UserID, error) {
	token, err := jwt.Parse(tokenStr, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrUnauthorized
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrUnauthorized
	}
	raw, ok := claims["user_id"].(string)
	if !ok || raw == "" {
		return "", ErrUnauthorized
	}
	return ledger.UserID(raw), nil
}

// Middleware rejects requests without a valid bearer token and exposes
// the user id to downstream handlers via the request context.
func (t *TokenIssuer) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		id, err := t.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromContext returns the authenticated user id set by Middleware.
func UserIDFromContext(ctx context.Context) (ledger.UserID, error) {
	id, ok := ctx.Value(userIDKey).(ledger.UserID)
	if !ok || id == "" {
		return "", ErrUnauthorized
	}
	return id, nil
}
