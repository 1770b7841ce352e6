// Package models defines the core data structures for the Emily API.
//
// It includes types for wizard sessions, business profiles, and third-party
// platform connections, which are shared across modules.
package models

import (
	"errors"
	"strings"
	"time"
)

// Platform identifies a third-party publishing platform.
type Platform string

const (
	// PlatformFacebook is a Facebook page connection.
	PlatformFacebook Platform = "facebook"
	// PlatformInstagram is an Instagram business account connection.
	PlatformInstagram Platform = "instagram"
	// PlatformLinkedIn is a LinkedIn organization connection.
	PlatformLinkedIn Platform = "linkedin"
	// PlatformGoogle is a Google Business Profile connection.
	PlatformGoogle Platform = "google"
	// PlatformYouTube is a YouTube channel connection.
	PlatformYouTube Platform = "youtube"
	// PlatformTwitter is an X (formerly Twitter) account connection.
	PlatformTwitter Platform = "twitter"
	// PlatformWordPress is a WordPress site connection.
	PlatformWordPress Platform = "wordpress"
)

// NormalizePlatform canonicalizes a platform identifier: lowercased, spaces
// and underscores stripped, legacy aliases folded into the current name.
func NormalizePlatform(raw string) Platform {
	id := strings.ToLower(strings.TrimSpace(raw))
	id = strings.ReplaceAll(id, " ", "")
	id = strings.ReplaceAll(id, "_", "")
	id = strings.ReplaceAll(id, "-", "")
	switch id {
	case "x", "xtwitter", "twitterx":
		return PlatformTwitter
	case "googlebusiness", "googlemybusiness", "gmb":
		return PlatformGoogle
	case "wp", "wordpressorg":
		return PlatformWordPress
	case "insta", "ig":
		return PlatformInstagram
	default:
		return Platform(id)
	}
}

// ConnectionSource identifies how a connection was established.
type ConnectionSource string

const (
	// SourceOAuth marks connections created through the OAuth gateway.
	SourceOAuth ConnectionSource = "oauth"
	// SourceToken marks connections created from a long-lived access token.
	SourceToken ConnectionSource = "token"
	// SourceCredentials marks connections created from site credentials.
	SourceCredentials ConnectionSource = "credentials"
)

// IsValidConnectionSource checks if the given source is supported.
func IsValidConnectionSource(src ConnectionSource) bool {
	switch src {
	case SourceOAuth, SourceToken, SourceCredentials:
		return true
	default:
		return false
	}
}

// ConnectionRecord is one linked third-party account. Records originate from
// connect flows; the API only reflects and deletes them.
type ConnectionRecord struct {
	ID          string            `json:"id"`
	AccountID   string            `json:"account_id"`
	Platform    Platform          `json:"platform"`
	Source      ConnectionSource  `json:"source"`
	DisplayName string            `json:"display_name"`
	Active      bool              `json:"active"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// ConnectionStatus is one row of the merged connection listing: a platform
// with its connected flag and the sources backing it. A platform present in
// both the OAuth and token lists appears exactly once.
type ConnectionStatus struct {
	Platform    Platform           `json:"platform"`
	DisplayName string             `json:"display_name"`
	Connected   bool               `json:"connected"`
	Sources     []ConnectionSource `json:"sources,omitempty"`
	Metadata    map[string]string  `json:"metadata,omitempty"`
}

// TokenConnectionRequest is the payload for creating a token-based connection.
type TokenConnectionRequest struct {
	Platform    string `json:"platform"`
	AccessToken string `json:"access_token"`
	DisplayName string `json:"display_name,omitempty"`
}

// Validate checks a token connection request.
func (r *TokenConnectionRequest) Validate() error {
	if r.Platform == "" {
		return ErrEmptyPlatform
	}
	if r.AccessToken == "" {
		return ErrEmptyAccessToken
	}
	return nil
}

// WordPressConnectionRequest is the payload for connecting a WordPress site
// with site credentials.
type WordPressConnectionRequest struct {
	SiteURL  string `json:"site_url"`
	Username string `json:"username"`
	AppToken string `json:"app_token"`
}

// Validate checks a WordPress connection request.
func (r *WordPressConnectionRequest) Validate() error {
	if r.SiteURL == "" {
		return ErrEmptySiteURL
	}
	if !strings.HasPrefix(r.SiteURL, "http://") && !strings.HasPrefix(r.SiteURL, "https://") {
		return ErrInvalidSiteURL
	}
	if r.Username == "" {
		return ErrEmptyUsername
	}
	if r.AppToken == "" {
		return ErrEmptyAccessToken
	}
	return nil
}

// BusinessProfile is the onboarding profile produced by wizard submission.
type BusinessProfile struct {
	AccountID       string            `json:"account_id"`
	BusinessName    string            `json:"business_name"`
	BusinessTypes   []string          `json:"business_types"`
	Industries      []string          `json:"industries"`
	Website         string            `json:"website,omitempty"`
	About           string            `json:"about,omitempty"`
	Audience        []string          `json:"audience"`
	BrandVoice      []string          `json:"brand_voice,omitempty"`
	MarketingGoals  []string          `json:"marketing_goals,omitempty"`
	Channels        []string          `json:"channels"`
	PlatformDetails map[string]string `json:"platform_details,omitempty"`
	AutoPublish     bool              `json:"auto_publish"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Error variables for better error handling and testability
var (
	ErrUnknownField        = errors.New("unknown form field")
	ErrNoFields            = errors.New("at least one field is required")
	ErrUnknownVariant      = errors.New("unknown wizard variant")
	ErrStepLocked          = errors.New("step is locked until earlier steps are completed")
	ErrStepOutOfRange      = errors.New("step index out of range")
	ErrValidationFailed    = errors.New("fill required fields before continuing")
	ErrStepsIncomplete     = errors.New("all steps must be completed before submission")
	ErrNoConnections       = errors.New("at least one platform must be connected")
	ErrEmptyPlatform       = errors.New("platform cannot be empty")
	ErrUnknownPlatform     = errors.New("unknown platform")
	ErrEmptyAccessToken    = errors.New("access token cannot be empty")
	ErrEmptySiteURL        = errors.New("site URL cannot be empty")
	ErrInvalidSiteURL      = errors.New("site URL must start with http:// or https://")
	ErrEmptyUsername       = errors.New("username cannot be empty")
	ErrConfirmRequired     = errors.New("disconnect requires confirmation")
	ErrConnectionNotFound  = errors.New("connection not found")
	ErrPendingAuthNotFound = errors.New("pending authorization not found")
	ErrProfileNotFound     = errors.New("business profile not found")
)

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Message: message, Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}
