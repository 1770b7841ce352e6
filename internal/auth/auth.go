// Package auth verifies bearer tokens and attaches the account identity to
// request contexts.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingToken indicates the request carried no bearer token.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken indicates the token failed signature or claim checks.
	ErrInvalidToken = errors.New("invalid bearer token")
	// ErrNoSubject indicates a valid token with no account subject.
	ErrNoSubject = errors.New("token has no subject")
)

type contextKey string

const accountIDKey contextKey = "accountID"

// Verifier validates HS256-signed tokens issued by the account service.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier with the shared signing secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses the token string and returns the account ID from its
// subject claim.
func (v *Verifier) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		slog.Debug("Verifier.Verify: token rejected", "error", err)
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrNoSubject
	}
	return claims.Subject, nil
}

// Middleware wraps a handler with bearer verification. The account ID lands
// in the request context for downstream handlers.
func (v *Verifier) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, err := v.authenticate(r)
		if err != nil {
			slog.Warn("auth.Middleware: request rejected", "error", err, "path", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"status":"error","error":"unauthorized"}`))
			return
		}
		next(w, r.WithContext(WithAccountID(r.Context(), accountID)))
	}
}

func (v *Verifier) authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingToken
	}
	tokenString := strings.TrimPrefix(header, "Bearer ")
	if tokenString == header || tokenString == "" {
		return "", ErrMissingToken
	}
	return v.Verify(tokenString)
}

// WithAccountID returns a context carrying the account ID.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, accountIDKey, accountID)
}

// AccountIDFromContext extracts the verified account ID, if any.
func AccountIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(accountIDKey).(string)
	return id, ok && id != ""
}
