package connections

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/getemily/emily-api/internal/models"
	"github.com/getemily/emily-api/internal/store"
	"github.com/getemily/emily-api/internal/util"
)

// ErrAuthKindUnsupported indicates a platform does not accept the requested
// connection method.
var ErrAuthKindUnsupported = errors.New("platform does not support this connection method")

// Opts holds configuration for the connection service.
type Opts struct {
	// GatewayRedirectURI is where the OAuth gateway sends the user after the
	// provider flow.
	GatewayRedirectURI string
	// AllowedOrigins are the only origins accepted on completion callbacks.
	AllowedOrigins []string
	// PendingTTL bounds how long an authorization attempt stays pollable.
	PendingTTL time.Duration
}

// Option configures service construction.
type Option func(*Opts)

// WithGatewayRedirectURI sets the OAuth gateway redirect URI.
func WithGatewayRedirectURI(uri string) Option {
	return func(o *Opts) { o.GatewayRedirectURI = uri }
}

// WithAllowedOrigins sets the callback origin allow-list.
func WithAllowedOrigins(origins ...string) Option {
	return func(o *Opts) { o.AllowedOrigins = origins }
}

// WithPendingTTL overrides the pending-authorization TTL.
func WithPendingTTL(ttl time.Duration) Option {
	return func(o *Opts) { o.PendingTTL = ttl }
}

// Service implements the connection panel: merged listings, connect and
// disconnect operations, and the OAuth authorization flow.
type Service struct {
	store          store.Store
	tracker        *AuthTracker
	redirectURI    string
	allowedOrigins []string
}

// NewService creates a connection service backed by the given store.
func NewService(st store.Store, opts ...Option) *Service {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("Creating connections Service", "redirect_set", cfg.GatewayRedirectURI != "", "origins", len(cfg.AllowedOrigins))
	return &Service{
		store:          st,
		tracker:        NewAuthTracker(cfg.PendingTTL),
		redirectURI:    cfg.GatewayRedirectURI,
		allowedOrigins: cfg.AllowedOrigins,
	}
}

// Tracker exposes the authorization tracker for completion subscriptions.
func (s *Service) Tracker() *AuthTracker {
	return s.tracker
}

// List returns one row per registry platform with its connected flag and
// backing sources. OAuth-sourced and token-sourced records for the same
// normalized platform merge into a single row.
func (s *Service) List(accountID string) ([]models.ConnectionStatus, error) {
	records, err := s.store.GetConnections(accountID)
	if err != nil {
		slog.Error("Service.List: failed to fetch connections", "error", err, "accountID", accountID)
		return nil, fmt.Errorf("failed to fetch connections: %w", err)
	}

	byPlatform := make(map[models.Platform]*models.ConnectionStatus)
	for _, rec := range records {
		if !rec.Active {
			continue
		}
		id := models.NormalizePlatform(string(rec.Platform))
		st, ok := byPlatform[id]
		if !ok {
			st = &models.ConnectionStatus{
				Platform:    id,
				DisplayName: rec.DisplayName,
				Connected:   true,
				Metadata:    rec.Metadata,
			}
			byPlatform[id] = st
		}
		st.Sources = appendSource(st.Sources, rec.Source)
		if st.DisplayName == "" {
			st.DisplayName = rec.DisplayName
		}
	}

	out := make([]models.ConnectionStatus, 0, len(registry))
	for _, spec := range AllPlatforms() {
		if st, ok := byPlatform[spec.ID]; ok {
			out = append(out, *st)
			continue
		}
		out = append(out, models.ConnectionStatus{
			Platform:    spec.ID,
			DisplayName: spec.DisplayName,
			Connected:   false,
		})
	}
	slog.Debug("Service.List: merged connection listing", "accountID", accountID, "records", len(records), "connected", len(byPlatform))
	return out, nil
}

// ConnectedCount returns how many distinct platforms are connected.
func (s *Service) ConnectedCount(accountID string) (int, error) {
	statuses, err := s.List(accountID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, st := range statuses {
		if st.Connected {
			n++
		}
	}
	return n, nil
}

// IsConnected reports whether the normalized platform has any active record.
func (s *Service) IsConnected(accountID string, platform string) (bool, error) {
	statuses, err := s.List(accountID)
	if err != nil {
		return false, err
	}
	id := models.NormalizePlatform(platform)
	for _, st := range statuses {
		if st.Platform == id {
			return st.Connected, nil
		}
	}
	return false, nil
}

// ConnectToken creates a token-based connection for a platform that allows it.
func (s *Service) ConnectToken(accountID string, req models.TokenConnectionRequest) (*models.ConnectionRecord, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	spec, err := LookupPlatform(req.Platform)
	if err != nil {
		return nil, err
	}
	if !spec.SupportsAuth(AuthToken) {
		return nil, fmt.Errorf("%w: %s does not accept tokens", ErrAuthKindUnsupported, spec.ID)
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = spec.DisplayName
	}
	now := time.Now()
	rec := models.ConnectionRecord{
		ID:          util.GenerateConnectionID(),
		AccountID:   accountID,
		Platform:    spec.ID,
		Source:      models.SourceToken,
		DisplayName: displayName,
		Active:      true,
		Metadata:    map[string]string{"token_suffix": tokenSuffix(req.AccessToken)},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.AddConnection(rec); err != nil {
		slog.Error("Service.ConnectToken: failed to save connection", "error", err, "accountID", accountID, "platform", spec.ID)
		return nil, fmt.Errorf("failed to save connection: %w", err)
	}
	slog.Info("Service.ConnectToken: connection created", "accountID", accountID, "platform", spec.ID)
	return &rec, nil
}

// ConnectWordPress creates a site-credential connection for a WordPress site.
// The credentials themselves go to the publishing backend; only the site
// identity is kept here.
func (s *Service) ConnectWordPress(accountID string, req models.WordPressConnectionRequest) (*models.ConnectionRecord, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	rec := models.ConnectionRecord{
		ID:          util.GenerateConnectionID(),
		AccountID:   accountID,
		Platform:    models.PlatformWordPress,
		Source:      models.SourceCredentials,
		DisplayName: req.SiteURL,
		Active:      true,
		Metadata:    map[string]string{"site_url": req.SiteURL, "username": req.Username},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.AddConnection(rec); err != nil {
		slog.Error("Service.ConnectWordPress: failed to save connection", "error", err, "accountID", accountID, "site", req.SiteURL)
		return nil, fmt.Errorf("failed to save connection: %w", err)
	}
	slog.Info("Service.ConnectWordPress: connection created", "accountID", accountID, "site", req.SiteURL)
	return &rec, nil
}

// Disconnect removes every record for a platform. The confirmed flag is the
// interactive-confirmation gate; without it nothing is touched.
func (s *Service) Disconnect(accountID string, platform string, confirmed bool) error {
	if !confirmed {
		return models.ErrConfirmRequired
	}
	spec, err := LookupPlatform(platform)
	if err != nil {
		return err
	}
	removed, err := s.store.DeleteConnections(accountID, spec.ID)
	if err != nil {
		slog.Error("Service.Disconnect: failed to delete connections", "error", err, "accountID", accountID, "platform", spec.ID)
		return fmt.Errorf("failed to disconnect %s: %w", spec.ID, err)
	}
	if removed == 0 {
		return models.ErrConnectionNotFound
	}
	slog.Info("Service.Disconnect: platform disconnected", "accountID", accountID, "platform", spec.ID, "removed", removed)
	return nil
}

// OAuthStart is the response to an OAuth connect request.
type OAuthStart struct {
	State        string `json:"state"`
	AuthorizeURL string `json:"authorize_url"`
}

// BeginOAuth records a pending authorization and returns the authorize URL
// the client opens in a popup.
func (s *Service) BeginOAuth(accountID string, platform string) (*OAuthStart, error) {
	spec, err := LookupPlatform(platform)
	if err != nil {
		return nil, err
	}
	if !spec.SupportsAuth(AuthOAuth) {
		return nil, fmt.Errorf("%w: %s does not support OAuth", ErrAuthKindUnsupported, spec.ID)
	}
	pa, authorizeURL, err := s.tracker.Begin(accountID, spec, s.redirectURI)
	if err != nil {
		return nil, err
	}
	return &OAuthStart{State: pa.State, AuthorizeURL: authorizeURL}, nil
}

// OAuthCallbackPayload is the tagged completion signal from the OAuth
// gateway. The sender's origin travels in the Origin header, not the body;
// a body field would let any caller assert an allowed origin.
type OAuthCallbackPayload struct {
	State       string            `json:"state"`
	Status      string            `json:"status"` // "success" or "error"
	Error       string            `json:"error,omitempty"`
	DisplayName string            `json:"display_name,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// CompleteOAuth consumes a gateway callback. The request's Origin header
// must match the allow-list before the payload is trusted. On success a
// connection record is created; either way subscribers are notified.
func (s *Service) CompleteOAuth(origin string, payload OAuthCallbackPayload) error {
	if !s.originAllowed(origin) {
		slog.Warn("Service.CompleteOAuth: origin rejected", "origin", origin)
		return fmt.Errorf("callback origin %q is not allowed", origin)
	}

	success := payload.Status == "success"
	pa, err := s.tracker.Resolve(payload.State, success, payload.Error)
	if err != nil {
		return err
	}
	if !success {
		slog.Warn("Service.CompleteOAuth: authorization failed", "state", payload.State, "platform", pa.Platform, "error", payload.Error)
		return nil
	}

	spec, err := LookupPlatform(string(pa.Platform))
	if err != nil {
		return err
	}
	displayName := payload.DisplayName
	if displayName == "" {
		displayName = spec.DisplayName
	}
	now := time.Now()
	rec := models.ConnectionRecord{
		ID:          util.GenerateConnectionID(),
		AccountID:   pa.AccountID,
		Platform:    spec.ID,
		Source:      models.SourceOAuth,
		DisplayName: displayName,
		Active:      true,
		Metadata:    payload.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.AddConnection(rec); err != nil {
		slog.Error("Service.CompleteOAuth: failed to save connection", "error", err, "accountID", pa.AccountID, "platform", spec.ID)
		return fmt.Errorf("failed to save connection: %w", err)
	}
	slog.Info("Service.CompleteOAuth: connection created", "accountID", pa.AccountID, "platform", spec.ID)
	return nil
}

// PendingOAuth is the fallback poll for clients whose popup closed without a
// completion signal.
func (s *Service) PendingOAuth(state string) (*PendingAuthorization, error) {
	return s.tracker.Get(state)
}

// GoogleConnectionStatus reports the Google connection with a reconnect hint
// when it is missing or inactive.
type GoogleConnectionStatus struct {
	Connected      bool   `json:"connected"`
	DisplayName    string `json:"display_name,omitempty"`
	NeedsReconnect bool   `json:"needs_reconnect"`
}

// GoogleStatus checks the Google connection for the account.
func (s *Service) GoogleStatus(accountID string) (*GoogleConnectionStatus, error) {
	statuses, err := s.List(accountID)
	if err != nil {
		return nil, err
	}
	for _, st := range statuses {
		if st.Platform == models.PlatformGoogle {
			return &GoogleConnectionStatus{
				Connected:      st.Connected,
				DisplayName:    st.DisplayName,
				NeedsReconnect: !st.Connected,
			}, nil
		}
	}
	return &GoogleConnectionStatus{NeedsReconnect: true}, nil
}

func (s *Service) originAllowed(origin string) bool {
	for _, allowed := range s.allowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

func appendSource(sources []models.ConnectionSource, src models.ConnectionSource) []models.ConnectionSource {
	for _, existing := range sources {
		if existing == src {
			return sources
		}
	}
	return append(sources, src)
}

func tokenSuffix(token string) string {
	if len(token) <= 4 {
		return token
	}
	return token[len(token)-4:]
}
