package connections

import (
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/getemily/emily-api/internal/models"
	"github.com/getemily/emily-api/internal/util"
)

// DefaultPendingTTL is how long an authorization attempt stays pollable
// before it is treated as abandoned.
const DefaultPendingTTL = 15 * time.Minute

// AuthStatus is the lifecycle state of a pending OAuth authorization.
type AuthStatus string

const (
	// AuthPending means the user has not finished the provider flow yet.
	AuthPending AuthStatus = "pending"
	// AuthCompleted means the gateway reported success.
	AuthCompleted AuthStatus = "completed"
	// AuthFailed means the gateway reported an error.
	AuthFailed AuthStatus = "failed"
	// AuthExpired means the attempt aged out; the client should refetch
	// connections in case it completed out of band.
	AuthExpired AuthStatus = "expired"
)

// PendingAuthorization tracks one in-flight OAuth attempt, keyed by the
// opaque state token embedded in the authorize URL.
type PendingAuthorization struct {
	State     string          `json:"state"`
	AccountID string          `json:"account_id"`
	Platform  models.Platform `json:"platform"`
	Status    AuthStatus      `json:"status"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// CompletionEvent is delivered to subscribers when an authorization resolves.
type CompletionEvent struct {
	State    string
	Platform models.Platform
	Success  bool
	Error    string
}

// AuthTracker owns pending authorizations and completion subscriptions. It
// replaces ambient listeners with an explicit register/unregister lifecycle:
// a subscriber gets a channel and must call its cancel func when done.
type AuthTracker struct {
	mu       sync.Mutex
	pending  map[string]*PendingAuthorization
	watchers map[string][]chan CompletionEvent
	ttl      time.Duration
}

// NewAuthTracker creates a tracker with the given pending TTL; zero means
// DefaultPendingTTL.
func NewAuthTracker(ttl time.Duration) *AuthTracker {
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}
	return &AuthTracker{
		pending:  make(map[string]*PendingAuthorization),
		watchers: make(map[string][]chan CompletionEvent),
		ttl:      ttl,
	}
}

// Begin records a new pending authorization and builds the provider
// authorize URL carrying the state token.
func (t *AuthTracker) Begin(accountID string, spec PlatformSpec, redirectURI string) (*PendingAuthorization, string, error) {
	if spec.AuthorizeURL == "" {
		return nil, "", fmt.Errorf("platform %s has no authorize URL", spec.ID)
	}

	pa := &PendingAuthorization{
		State:     util.GenerateOAuthState(),
		AccountID: accountID,
		Platform:  spec.ID,
		Status:    AuthPending,
		CreatedAt: time.Now(),
	}

	t.mu.Lock()
	t.pruneLocked()
	t.pending[pa.State] = pa
	t.mu.Unlock()

	q := url.Values{}
	q.Set("state", pa.State)
	q.Set("redirect_uri", redirectURI)
	if len(spec.Scopes) > 0 {
		scope := spec.Scopes[0]
		for _, s := range spec.Scopes[1:] {
			scope += " " + s
		}
		q.Set("scope", scope)
	}
	authorizeURL := spec.AuthorizeURL + "?" + q.Encode()

	slog.Debug("AuthTracker.Begin: pending authorization created", "state", pa.State, "accountID", accountID, "platform", spec.ID)
	return pa, authorizeURL, nil
}

// Resolve marks a pending authorization completed or failed and notifies
// subscribers. The returned record carries the account and platform the
// caller needs to create the connection. Each state resolves at most once;
// a replayed callback is treated like an unknown state.
func (t *AuthTracker) Resolve(state string, success bool, errMsg string) (*PendingAuthorization, error) {
	t.mu.Lock()
	pa, ok := t.pending[state]
	if !ok {
		t.mu.Unlock()
		slog.Warn("AuthTracker.Resolve: unknown state", "state", state)
		return nil, models.ErrPendingAuthNotFound
	}
	if pa.Status != AuthPending {
		t.mu.Unlock()
		slog.Warn("AuthTracker.Resolve: state already resolved, rejecting replay", "state", state, "status", pa.Status)
		return nil, models.ErrPendingAuthNotFound
	}
	if success {
		pa.Status = AuthCompleted
	} else {
		pa.Status = AuthFailed
		pa.Error = errMsg
	}
	watchers := t.watchers[state]
	delete(t.watchers, state)
	t.mu.Unlock()

	ev := CompletionEvent{State: state, Platform: pa.Platform, Success: success, Error: errMsg}
	for _, ch := range watchers {
		// Subscriber channels are buffered; a vanished subscriber must not
		// block resolution.
		select {
		case ch <- ev:
		default:
		}
	}
	slog.Debug("AuthTracker.Resolve: authorization resolved", "state", state, "success", success, "watchers", len(watchers))
	return pa, nil
}

// Get returns the current status for a state token. Attempts older than the
// TTL report AuthExpired, which clients treat as "maybe completed, refetch".
func (t *AuthTracker) Get(state string) (*PendingAuthorization, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	pa, ok := t.pending[state]
	if !ok {
		return nil, models.ErrPendingAuthNotFound
	}
	if pa.Status == AuthPending && time.Since(pa.CreatedAt) > t.ttl {
		pa.Status = AuthExpired
	}
	out := *pa
	return &out, nil
}

// Subscribe registers for the completion event of one authorization. The
// returned cancel func unregisters; callers must invoke it when the
// subscription's owner goes away.
func (t *AuthTracker) Subscribe(state string) (<-chan CompletionEvent, func()) {
	ch := make(chan CompletionEvent, 1)
	t.mu.Lock()
	t.watchers[state] = append(t.watchers[state], ch)
	t.mu.Unlock()

	cancel := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		subs := t.watchers[state]
		for i, sub := range subs {
			if sub == ch {
				t.watchers[state] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		if len(t.watchers[state]) == 0 {
			delete(t.watchers, state)
		}
	}
	return ch, cancel
}

// pruneLocked drops resolved and aged-out attempts. Callers hold t.mu.
func (t *AuthTracker) pruneLocked() {
	cutoff := time.Now().Add(-2 * t.ttl)
	for state, pa := range t.pending {
		if pa.CreatedAt.Before(cutoff) {
			delete(t.pending, state)
			delete(t.watchers, state)
		}
	}
}
