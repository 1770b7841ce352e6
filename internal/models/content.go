// Package models defines content and account structures for the Emily API.
package models

import (
	"errors"
	"time"
)

// ContentStatus represents the publishing state of a campaign or post.
type ContentStatus string

const (
	// ContentStatusDraft marks content that is still being edited.
	ContentStatusDraft ContentStatus = "draft"
	// ContentStatusScheduled marks content queued for publishing.
	ContentStatusScheduled ContentStatus = "scheduled"
	// ContentStatusPublished marks content that went out.
	ContentStatusPublished ContentStatus = "published"
)

// IsValidContentStatus checks if the given content status is supported.
func IsValidContentStatus(s ContentStatus) bool {
	switch s {
	case ContentStatusDraft, ContentStatusScheduled, ContentStatusPublished:
		return true
	default:
		return false
	}
}

// Campaign groups posts under a shared marketing objective.
type Campaign struct {
	ID        string        `json:"id"`
	AccountID string        `json:"account_id"`
	Name      string        `json:"name"`
	Objective string        `json:"objective,omitempty"`
	Status    ContentStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Validate checks a campaign payload.
func (c *Campaign) Validate() error {
	if c.Name == "" {
		return ErrEmptyContentName
	}
	if c.Status != "" && !IsValidContentStatus(c.Status) {
		return ErrInvalidContentStatus
	}
	return nil
}

// Post is one piece of content targeted at a platform.
type Post struct {
	ID           string        `json:"id"`
	AccountID    string        `json:"account_id"`
	CampaignID   string        `json:"campaign_id,omitempty"`
	Platform     Platform      `json:"platform"`
	Title        string        `json:"title,omitempty"`
	Body         string        `json:"body"`
	Status       ContentStatus `json:"status"`
	ScheduledFor *time.Time    `json:"scheduled_for,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Validate checks a post payload.
func (p *Post) Validate() error {
	if p.Body == "" {
		return ErrEmptyPostBody
	}
	if p.Platform == "" {
		return ErrEmptyPlatform
	}
	if p.Status != "" && !IsValidContentStatus(p.Status) {
		return ErrInvalidContentStatus
	}
	return nil
}

// Template is a reusable content skeleton.
type Template struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Name      string    `json:"name"`
	Category  string    `json:"category,omitempty"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks a template payload.
func (t *Template) Validate() error {
	if t.Name == "" {
		return ErrEmptyContentName
	}
	if t.Body == "" {
		return ErrEmptyPostBody
	}
	return nil
}

// ImagePreference holds per-account visual preferences for generated imagery.
type ImagePreference struct {
	AccountID   string    `json:"account_id"`
	Style       string    `json:"style,omitempty"`
	Palette     string    `json:"palette,omitempty"`
	IncludeLogo bool      `json:"include_logo"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TrialStatus reports the remaining free-trial window for an account,
// derived from the profile creation time.
type TrialStatus struct {
	AccountID string    `json:"account_id"`
	Active    bool      `json:"active"`
	DaysLeft  int       `json:"days_left"`
	ExpiresAt time.Time `json:"expires_at"`
}

// GenerateContentRequest is the payload for POST /content/generate.
type GenerateContentRequest struct {
	Platform string `json:"platform"`
	Topic    string `json:"topic,omitempty"`
	Tone     string `json:"tone,omitempty"`
}

// Validate checks a content-generation request.
func (r *GenerateContentRequest) Validate() error {
	if r.Platform == "" {
		return ErrEmptyPlatform
	}
	return nil
}

// Content error variables
var (
	ErrEmptyContentName     = errors.New("name cannot be empty")
	ErrEmptyPostBody        = errors.New("body cannot be empty")
	ErrInvalidContentStatus = errors.New("invalid content status")
)
