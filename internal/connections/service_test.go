package connections

import (
	"errors"
	"testing"
	"time"

	"github.com/getemily/emily-api/internal/models"
	"github.com/getemily/emily-api/internal/store"
)

const testOrigin = "https://app.getemily.com"

func newTestService(t *testing.T) (*Service, *store.InMemoryStore) {
	t.Helper()
	st := store.NewInMemoryStore()
	svc := NewService(st,
		WithGatewayRedirectURI(testRedirectURI),
		WithAllowedOrigins(testOrigin),
	)
	return svc, st
}

func TestListMergesSourcesPerPlatform(t *testing.T) {
	svc, st := newTestService(t)
	now := time.Now()

	seed := []models.ConnectionRecord{
		{ID: "c1", AccountID: "acct-1", Platform: models.PlatformFacebook, Source: models.SourceOAuth, DisplayName: "Acme Page", Active: true, CreatedAt: now, UpdatedAt: now},
		{ID: "c2", AccountID: "acct-1", Platform: "Facebook", Source: models.SourceToken, Active: true, CreatedAt: now, UpdatedAt: now},
		{ID: "c3", AccountID: "acct-1", Platform: models.PlatformTwitter, Source: models.SourceToken, Active: false, CreatedAt: now, UpdatedAt: now},
		{ID: "c4", AccountID: "acct-2", Platform: models.PlatformGoogle, Source: models.SourceOAuth, Active: true, CreatedAt: now, UpdatedAt: now},
	}
	for _, rec := range seed {
		if err := st.AddConnection(rec); err != nil {
			t.Fatalf("AddConnection failed: %v", err)
		}
	}

	statuses, err := svc.List("acct-1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(statuses) != 7 {
		t.Fatalf("Expected one row per registry platform, got %d", len(statuses))
	}

	byID := make(map[models.Platform]models.ConnectionStatus)
	for _, s := range statuses {
		if _, dup := byID[s.Platform]; dup {
			t.Fatalf("Platform %q listed twice", s.Platform)
		}
		byID[s.Platform] = s
	}

	fb := byID[models.PlatformFacebook]
	if !fb.Connected {
		t.Error("Expected Facebook connected")
	}
	if len(fb.Sources) != 2 {
		t.Errorf("Expected oauth and token sources merged, got %v", fb.Sources)
	}
	if fb.DisplayName != "Acme Page" {
		t.Errorf("Expected display name from first record, got %q", fb.DisplayName)
	}
	if byID[models.PlatformTwitter].Connected {
		t.Error("Inactive record must not count as connected")
	}
	if byID[models.PlatformGoogle].Connected {
		t.Error("Other account's connection leaked into listing")
	}

	n, err := svc.ConnectedCount("acct-1")
	if err != nil {
		t.Fatalf("ConnectedCount failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 connected platform, got %d", n)
	}
}

func TestConnectToken(t *testing.T) {
	svc, _ := newTestService(t)

	rec, err := svc.ConnectToken("acct-1", models.TokenConnectionRequest{
		Platform:    "IG",
		AccessToken: "tok-secret-9876",
		DisplayName: "Studio IG",
	})
	if err != nil {
		t.Fatalf("ConnectToken failed: %v", err)
	}
	if rec.Platform != models.PlatformInstagram {
		t.Errorf("Expected normalized platform, got %q", rec.Platform)
	}
	if rec.Source != models.SourceToken {
		t.Errorf("Expected token source, got %q", rec.Source)
	}
	if rec.Metadata["token_suffix"] != "9876" {
		t.Errorf("Expected token suffix metadata, got %v", rec.Metadata)
	}

	connected, err := svc.IsConnected("acct-1", "instagram")
	if err != nil {
		t.Fatalf("IsConnected failed: %v", err)
	}
	if !connected {
		t.Error("Expected Instagram connected after token connect")
	}
}

func TestConnectTokenRejectsOAuthOnlyPlatform(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ConnectToken("acct-1", models.TokenConnectionRequest{
		Platform:    "youtube",
		AccessToken: "tok",
	})
	if !errors.Is(err, ErrAuthKindUnsupported) {
		t.Errorf("Expected ErrAuthKindUnsupported, got %v", err)
	}
}

func TestConnectWordPress(t *testing.T) {
	svc, _ := newTestService(t)

	rec, err := svc.ConnectWordPress("acct-1", models.WordPressConnectionRequest{
		SiteURL:  "https://blog.example.com",
		Username: "editor",
		AppToken: "abcd efgh ijkl",
	})
	if err != nil {
		t.Fatalf("ConnectWordPress failed: %v", err)
	}
	if rec.Platform != models.PlatformWordPress || rec.Source != models.SourceCredentials {
		t.Errorf("Unexpected record: %+v", rec)
	}
	if rec.Metadata["site_url"] != "https://blog.example.com" {
		t.Errorf("Expected site URL metadata, got %v", rec.Metadata)
	}
}

func TestDisconnectRequiresConfirmation(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.ConnectToken("acct-1", models.TokenConnectionRequest{Platform: "facebook", AccessToken: "tok-1"}); err != nil {
		t.Fatalf("ConnectToken failed: %v", err)
	}

	if err := svc.Disconnect("acct-1", "facebook", false); !errors.Is(err, models.ErrConfirmRequired) {
		t.Errorf("Expected ErrConfirmRequired, got %v", err)
	}
	connected, _ := svc.IsConnected("acct-1", "facebook")
	if !connected {
		t.Error("Unconfirmed disconnect must not remove the connection")
	}

	if err := svc.Disconnect("acct-1", "facebook", true); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}
	connected, _ = svc.IsConnected("acct-1", "facebook")
	if connected {
		t.Error("Expected Facebook disconnected")
	}

	if err := svc.Disconnect("acct-1", "facebook", true); !errors.Is(err, models.ErrConnectionNotFound) {
		t.Errorf("Expected ErrConnectionNotFound on repeat, got %v", err)
	}
}

func TestBeginOAuth(t *testing.T) {
	svc, _ := newTestService(t)

	start, err := svc.BeginOAuth("acct-1", "linkedin")
	if err != nil {
		t.Fatalf("BeginOAuth failed: %v", err)
	}
	if start.State == "" || start.AuthorizeURL == "" {
		t.Errorf("Incomplete OAuth start: %+v", start)
	}

	pending, err := svc.PendingOAuth(start.State)
	if err != nil {
		t.Fatalf("PendingOAuth failed: %v", err)
	}
	if pending.Status != AuthPending {
		t.Errorf("Expected pending status, got %q", pending.Status)
	}

	if _, err := svc.BeginOAuth("acct-1", "wordpress"); !errors.Is(err, ErrAuthKindUnsupported) {
		t.Errorf("Expected ErrAuthKindUnsupported for WordPress, got %v", err)
	}
	if _, err := svc.BeginOAuth("acct-1", "friendster"); !errors.Is(err, models.ErrUnknownPlatform) {
		t.Errorf("Expected ErrUnknownPlatform, got %v", err)
	}
}

func TestCompleteOAuthRejectsUnknownOrigin(t *testing.T) {
	svc, _ := newTestService(t)
	start, _ := svc.BeginOAuth("acct-1", "facebook")

	err := svc.CompleteOAuth("https://evil.example.com", OAuthCallbackPayload{
		State:  start.State,
		Status: "success",
	})
	if err == nil {
		t.Fatal("Expected rejection for unknown origin")
	}

	pending, _ := svc.PendingOAuth(start.State)
	if pending.Status != AuthPending {
		t.Errorf("Rejected callback must not resolve the attempt, got %q", pending.Status)
	}

	connected, _ := svc.IsConnected("acct-1", "facebook")
	if connected {
		t.Error("Rejected callback must not create a connection")
	}
}

func TestCompleteOAuthSuccessCreatesConnection(t *testing.T) {
	svc, _ := newTestService(t)
	start, err := svc.BeginOAuth("acct-1", "google")
	if err != nil {
		t.Fatalf("BeginOAuth failed: %v", err)
	}

	err = svc.CompleteOAuth(testOrigin, OAuthCallbackPayload{
		State:       start.State,
		Status:      "success",
		DisplayName: "Acme GMB",
		Metadata:    map[string]string{"location_id": "loc-42"},
	})
	if err != nil {
		t.Fatalf("CompleteOAuth failed: %v", err)
	}

	statuses, err := svc.List("acct-1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	for _, s := range statuses {
		if s.Platform != models.PlatformGoogle {
			continue
		}
		if !s.Connected {
			t.Error("Expected Google connected after OAuth completion")
		}
		if s.DisplayName != "Acme GMB" {
			t.Errorf("Expected gateway display name, got %q", s.DisplayName)
		}
		if len(s.Sources) != 1 || s.Sources[0] != models.SourceOAuth {
			t.Errorf("Expected oauth source, got %v", s.Sources)
		}
	}

	gs, err := svc.GoogleStatus("acct-1")
	if err != nil {
		t.Fatalf("GoogleStatus failed: %v", err)
	}
	if !gs.Connected || gs.NeedsReconnect {
		t.Errorf("Unexpected Google status: %+v", gs)
	}
}

func TestCompleteOAuthFailureCreatesNoConnection(t *testing.T) {
	svc, _ := newTestService(t)
	start, _ := svc.BeginOAuth("acct-1", "facebook")

	err := svc.CompleteOAuth(testOrigin, OAuthCallbackPayload{
		State:  start.State,
		Status: "error",
		Error:  "access_denied",
	})
	if err != nil {
		t.Fatalf("CompleteOAuth failed: %v", err)
	}

	connected, _ := svc.IsConnected("acct-1", "facebook")
	if connected {
		t.Error("Failed authorization must not create a connection")
	}
	pending, _ := svc.PendingOAuth(start.State)
	if pending.Status != AuthFailed || pending.Error != "access_denied" {
		t.Errorf("Unexpected pending state: %+v", pending)
	}
}

func TestCompleteOAuthReplayAddsNoSecondConnection(t *testing.T) {
	svc, st := newTestService(t)
	start, _ := svc.BeginOAuth("acct-1", "google")

	payload := OAuthCallbackPayload{
		State:       start.State,
		Status:      "success",
		DisplayName: "Acme GMB",
	}
	if err := svc.CompleteOAuth(testOrigin, payload); err != nil {
		t.Fatalf("CompleteOAuth failed: %v", err)
	}
	if err := svc.CompleteOAuth(testOrigin, payload); !errors.Is(err, models.ErrPendingAuthNotFound) {
		t.Errorf("Expected replayed callback to be rejected, got %v", err)
	}

	recs, err := st.GetConnections("acct-1")
	if err != nil {
		t.Fatalf("GetConnections failed: %v", err)
	}
	if len(recs) != 1 {
		t.Errorf("Expected exactly one connection record, got %d", len(recs))
	}
}

func TestGoogleStatusNeedsReconnectWhenAbsent(t *testing.T) {
	svc, _ := newTestService(t)
	gs, err := svc.GoogleStatus("acct-1")
	if err != nil {
		t.Fatalf("GoogleStatus failed: %v", err)
	}
	if gs.Connected || !gs.NeedsReconnect {
		t.Errorf("Unexpected Google status for fresh account: %+v", gs)
	}
}
