package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/getemily/emily-api/internal/auth"
	"github.com/getemily/emily-api/internal/connections"
	"github.com/getemily/emily-api/internal/store"
	"github.com/getemily/emily-api/internal/wizard"
)

const (
	testJWTSecret = "test-signing-secret"
	testAccountID = "acct-test-1"
	testOrigin    = "https://app.getemily.com"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st := store.NewInMemoryStore()
	manager := wizard.NewManager(st, nil)
	submitter := wizard.NewSubmitter(st, manager)
	conns := connections.NewService(st,
		connections.WithGatewayRedirectURI("https://gateway.example.com/oauth/return"),
		connections.WithAllowedOrigins(testOrigin),
	)
	verifier := auth.NewVerifier(testJWTSecret)
	return NewServer(st, manager, submitter, conns, nil, verifier)
}

func bearerToken(t *testing.T, accountID string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   accountID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("Failed to sign test token: %v", err)
	}
	return token
}

// doRequest runs one request through the full route table. An empty token
// sends the request unauthenticated.
func doRequest(t *testing.T, s *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

// envelope mirrors models.APIResponse with the result left raw for
// per-test decoding.
type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("Failed to decode response envelope: %v (body: %s)", err, w.Body.String())
	}
	return env
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	env := decodeEnvelope(t, w)
	if env.Status != "ok" {
		t.Fatalf("Expected ok status, got %q (message: %q)", env.Status, env.Message)
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		t.Fatalf("Failed to decode result: %v (result: %s)", err, env.Result)
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doRequest(t, s, "GET", "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	w = doRequest(t, s, "POST", "/health", "", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405 for POST, got %d", w.Code)
	}
}

func TestProtectedRoutesRejectMissingToken(t *testing.T) {
	s := newTestServer(t)

	paths := []struct {
		method string
		path   string
	}{
		{"GET", "/wizard/onboarding"},
		{"GET", "/connections"},
		{"POST", "/connections/token"},
		{"GET", "/campaigns"},
		{"GET", "/posts"},
		{"GET", "/templates"},
		{"GET", "/image-preferences"},
		{"POST", "/content/generate"},
		{"GET", "/trial"},
	}
	for _, p := range paths {
		w := doRequest(t, s, p.method, p.path, "", nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected status 401, got %d", p.method, p.path, w.Code)
		}
	}
}

func TestProtectedRouteRejectsForgedToken(t *testing.T) {
	s := newTestServer(t)

	claims := jwt.RegisteredClaims{
		Subject:   testAccountID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("wrong-secret"))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}

	w := doRequest(t, s, "GET", "/connections", forged, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for forged token, got %d", w.Code)
	}
}
