package connections

import (
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/getemily/emily-api/internal/models"
)

const testRedirectURI = "https://gateway.example.com/oauth/return"

func TestBeginBuildsAuthorizeURL(t *testing.T) {
	tracker := NewAuthTracker(0)
	spec, err := LookupPlatform("facebook")
	if err != nil {
		t.Fatalf("LookupPlatform failed: %v", err)
	}

	pa, authorizeURL, err := tracker.Begin("acct-1", spec, testRedirectURI)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if pa.State == "" {
		t.Error("Expected non-empty state token")
	}
	if pa.Status != AuthPending {
		t.Errorf("Expected pending status, got %q", pa.Status)
	}

	parsed, err := url.Parse(authorizeURL)
	if err != nil {
		t.Fatalf("Authorize URL does not parse: %v", err)
	}
	if !strings.HasPrefix(authorizeURL, spec.AuthorizeURL) {
		t.Errorf("Authorize URL %q does not start with provider base %q", authorizeURL, spec.AuthorizeURL)
	}
	q := parsed.Query()
	if q.Get("state") != pa.State {
		t.Errorf("Expected state %q in URL, got %q", pa.State, q.Get("state"))
	}
	if q.Get("redirect_uri") != testRedirectURI {
		t.Errorf("Expected redirect_uri %q, got %q", testRedirectURI, q.Get("redirect_uri"))
	}
	if !strings.Contains(q.Get("scope"), "pages_manage_posts") {
		t.Errorf("Expected scopes in URL, got %q", q.Get("scope"))
	}
}

func TestBeginRejectsPlatformWithoutAuthorizeURL(t *testing.T) {
	tracker := NewAuthTracker(0)
	wp, _ := LookupPlatform("wordpress")
	if _, _, err := tracker.Begin("acct-1", wp, testRedirectURI); err == nil {
		t.Error("Expected error for platform without authorize URL")
	}
}

func TestResolveNotifiesSubscribers(t *testing.T) {
	tracker := NewAuthTracker(0)
	spec, _ := LookupPlatform("instagram")
	pa, _, err := tracker.Begin("acct-1", spec, testRedirectURI)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	ch, cancel := tracker.Subscribe(pa.State)
	defer cancel()

	resolved, err := tracker.Resolve(pa.State, true, "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Status != AuthCompleted {
		t.Errorf("Expected completed status, got %q", resolved.Status)
	}
	if resolved.AccountID != "acct-1" || resolved.Platform != models.PlatformInstagram {
		t.Errorf("Resolved record lost identity: %+v", resolved)
	}

	select {
	case ev := <-ch:
		if !ev.Success || ev.State != pa.State || ev.Platform != models.PlatformInstagram {
			t.Errorf("Unexpected completion event: %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("Subscriber never received completion event")
	}
}

func TestResolveFailureCarriesError(t *testing.T) {
	tracker := NewAuthTracker(0)
	spec, _ := LookupPlatform("google")
	pa, _, _ := tracker.Begin("acct-1", spec, testRedirectURI)

	resolved, err := tracker.Resolve(pa.State, false, "access_denied")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Status != AuthFailed || resolved.Error != "access_denied" {
		t.Errorf("Expected failed status with error, got %+v", resolved)
	}
}

func TestResolveRejectsReplay(t *testing.T) {
	tracker := NewAuthTracker(0)
	spec, _ := LookupPlatform("facebook")
	pa, _, _ := tracker.Begin("acct-1", spec, testRedirectURI)

	if _, err := tracker.Resolve(pa.State, true, ""); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if _, err := tracker.Resolve(pa.State, true, ""); !errors.Is(err, models.ErrPendingAuthNotFound) {
		t.Errorf("Expected replay rejection, got %v", err)
	}

	// Polling still sees the first resolution.
	got, err := tracker.Get(pa.State)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != AuthCompleted {
		t.Errorf("Expected completed status after replay attempt, got %q", got.Status)
	}
}

func TestResolveUnknownState(t *testing.T) {
	tracker := NewAuthTracker(0)
	if _, err := tracker.Resolve("no-such-state", true, ""); !errors.Is(err, models.ErrPendingAuthNotFound) {
		t.Errorf("Expected ErrPendingAuthNotFound, got %v", err)
	}
}

func TestGetReportsExpiry(t *testing.T) {
	tracker := NewAuthTracker(time.Millisecond)
	spec, _ := LookupPlatform("youtube")
	pa, _, _ := tracker.Begin("acct-1", spec, testRedirectURI)

	time.Sleep(5 * time.Millisecond)

	got, err := tracker.Get(pa.State)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != AuthExpired {
		t.Errorf("Expected expired status, got %q", got.Status)
	}

	if _, err := tracker.Get("missing"); !errors.Is(err, models.ErrPendingAuthNotFound) {
		t.Errorf("Expected ErrPendingAuthNotFound, got %v", err)
	}
}

func TestCancelUnregistersSubscriber(t *testing.T) {
	tracker := NewAuthTracker(0)
	spec, _ := LookupPlatform("linkedin")
	pa, _, _ := tracker.Begin("acct-1", spec, testRedirectURI)

	ch, cancel := tracker.Subscribe(pa.State)
	cancel()

	if _, err := tracker.Resolve(pa.State, true, ""); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	select {
	case ev := <-ch:
		t.Errorf("Cancelled subscriber received event: %+v", ev)
	default:
	}
}
