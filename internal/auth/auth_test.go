package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-signing-secret"

func signToken(t *testing.T, secret, subject string, method jwt.SigningMethod) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}

func TestVerifyReturnsSubject(t *testing.T) {
	v := NewVerifier(testSecret)
	token := signToken(t, testSecret, "acct-42", jwt.SigningMethodHS256)

	accountID, err := v.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if accountID != "acct-42" {
		t.Errorf("Expected subject acct-42, got %q", accountID)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	v := NewVerifier(testSecret)
	token := signToken(t, "some-other-secret", "acct-42", jwt.SigningMethodHS256)

	if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsWrongAlgorithm(t *testing.T) {
	v := NewVerifier(testSecret)
	token := signToken(t, testSecret, "acct-42", jwt.SigningMethodHS512)

	if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for HS512, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	v := NewVerifier(testSecret)
	claims := jwt.RegisteredClaims{
		Subject:   "acct-42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	if _, err := v.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerifyRejectsEmptySubject(t *testing.T) {
	v := NewVerifier(testSecret)
	token := signToken(t, testSecret, "", jwt.SigningMethodHS256)

	if _, err := v.Verify(token); !errors.Is(err, ErrNoSubject) {
		t.Errorf("Expected ErrNoSubject, got %v", err)
	}
}

func TestMiddlewarePropagatesAccountID(t *testing.T) {
	v := NewVerifier(testSecret)
	token := signToken(t, testSecret, "acct-7", jwt.SigningMethodHS256)

	var gotAccountID string
	handler := v.Middleware(func(w http.ResponseWriter, r *http.Request) {
		gotAccountID, _ = AccountIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest("GET", "/wizard/onboarding", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if gotAccountID != "acct-7" {
		t.Errorf("Expected account ID acct-7 in context, got %q", gotAccountID)
	}
}

func TestMiddlewareRejectsMissingAndBadTokens(t *testing.T) {
	v := NewVerifier(testSecret)
	handler := v.Middleware(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler must not run for unauthorized requests")
	})

	cases := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer not-a-jwt"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest("GET", "/connections", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := httptest.NewRecorder()
		handler(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected status 401, got %d", tc.name, w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("%s: expected JSON content type, got %q", tc.name, ct)
		}
	}
}

func TestAccountIDFromContextMissing(t *testing.T) {
	if id, ok := AccountIDFromContext(httptest.NewRequest("GET", "/", nil).Context()); ok {
		t.Errorf("Expected no account ID in bare context, got %q", id)
	}
}
