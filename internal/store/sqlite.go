// Package store provides storage backends for the Emily API.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/getemily/emily-api/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore is a Store backed by a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN is a file path; the containing directory is created if missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// SaveWizardSession stores or replaces a wizard session.
func (s *SQLiteStore) SaveWizardSession(sess models.WizardSession) error {
	answersJSON, err := json.Marshal(sess.Answers)
	if err != nil {
		slog.Error("SQLiteStore SaveWizardSession answers marshal failed", "error", err, "accountID", sess.AccountID)
		return fmt.Errorf("failed to marshal answers: %w", err)
	}
	stepsJSON, err := json.Marshal(sess.Progress.CompletedSteps)
	if err != nil {
		return fmt.Errorf("failed to marshal completed steps: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO wizard_sessions
		(account_id, variant, answers, current_step, completed_steps, manual_restart, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.AccountID, string(sess.Variant), string(answersJSON), sess.Progress.CurrentStep,
		string(stepsJSON), sess.ManualRestart, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveWizardSession failed", "error", err, "accountID", sess.AccountID, "variant", sess.Variant)
		return fmt.Errorf("failed to save wizard session: %w", err)
	}
	slog.Debug("SQLiteStore SaveWizardSession succeeded", "accountID", sess.AccountID, "variant", sess.Variant, "step", sess.Progress.CurrentStep)
	return nil
}

// GetWizardSession retrieves a wizard session, or nil when none is stored.
func (s *SQLiteStore) GetWizardSession(accountID string, variant models.WizardVariant) (*models.WizardSession, error) {
	var sess models.WizardSession
	var variantStr, answersJSON, stepsJSON string

	err := s.db.QueryRow(`
		SELECT account_id, variant, answers, current_step, completed_steps, manual_restart, created_at, updated_at
		FROM wizard_sessions WHERE account_id = ? AND variant = ?`, accountID, string(variant)).Scan(
		&sess.AccountID, &variantStr, &answersJSON, &sess.Progress.CurrentStep,
		&stepsJSON, &sess.ManualRestart, &sess.CreatedAt, &sess.UpdatedAt)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetWizardSession not found", "accountID", accountID, "variant", variant)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetWizardSession failed", "error", err, "accountID", accountID, "variant", variant)
		return nil, fmt.Errorf("failed to get wizard session: %w", err)
	}
	sess.Variant = models.WizardVariant(variantStr)

	if answersJSON != "" {
		if err := json.Unmarshal([]byte(answersJSON), &sess.Answers); err != nil {
			slog.Error("SQLiteStore GetWizardSession answers unmarshal failed", "error", err, "accountID", accountID)
			return nil, fmt.Errorf("failed to unmarshal answers: %w", err)
		}
	}
	if stepsJSON != "" {
		if err := json.Unmarshal([]byte(stepsJSON), &sess.Progress.CompletedSteps); err != nil {
			slog.Error("SQLiteStore GetWizardSession steps unmarshal failed", "error", err, "accountID", accountID)
			return nil, fmt.Errorf("failed to unmarshal completed steps: %w", err)
		}
	}
	slog.Debug("SQLiteStore GetWizardSession found", "accountID", accountID, "variant", variant, "step", sess.Progress.CurrentStep)
	return &sess, nil
}

// DeleteWizardSession removes a wizard session.
func (s *SQLiteStore) DeleteWizardSession(accountID string, variant models.WizardVariant) error {
	_, err := s.db.Exec(`DELETE FROM wizard_sessions WHERE account_id = ? AND variant = ?`, accountID, string(variant))
	if err != nil {
		slog.Error("SQLiteStore DeleteWizardSession failed", "error", err, "accountID", accountID, "variant", variant)
		return fmt.Errorf("failed to delete wizard session: %w", err)
	}
	slog.Debug("SQLiteStore DeleteWizardSession succeeded", "accountID", accountID, "variant", variant)
	return nil
}

// SaveProfile stores or replaces a business profile.
func (s *SQLiteStore) SaveProfile(p models.BusinessProfile) error {
	types, err := marshalStrings(p.BusinessTypes)
	if err != nil {
		return err
	}
	industries, err := marshalStrings(p.Industries)
	if err != nil {
		return err
	}
	audience, err := marshalStrings(p.Audience)
	if err != nil {
		return err
	}
	voice, err := marshalStrings(p.BrandVoice)
	if err != nil {
		return err
	}
	goals, err := marshalStrings(p.MarketingGoals)
	if err != nil {
		return err
	}
	channels, err := marshalStrings(p.Channels)
	if err != nil {
		return err
	}
	details, err := marshalStringMap(p.PlatformDetails)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO business_profiles
		(account_id, business_name, business_types, industries, website, about, audience, brand_voice,
		 marketing_goals, channels, platform_details, auto_publish, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.AccountID, p.BusinessName, types, industries, p.Website, p.About, audience, voice,
		goals, channels, details, p.AutoPublish, p.CompletedAt, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveProfile failed", "error", err, "accountID", p.AccountID)
		return fmt.Errorf("failed to save profile: %w", err)
	}
	slog.Debug("SQLiteStore SaveProfile succeeded", "accountID", p.AccountID, "business", p.BusinessName)
	return nil
}

// GetProfile retrieves a business profile, or nil when none is stored.
func (s *SQLiteStore) GetProfile(accountID string) (*models.BusinessProfile, error) {
	var p models.BusinessProfile
	var types, industries, audience, voice, goals, channels, details string
	var completedAt sql.NullTime

	err := s.db.QueryRow(`
		SELECT account_id, business_name, business_types, industries, website, about, audience, brand_voice,
		       marketing_goals, channels, platform_details, auto_publish, completed_at, created_at, updated_at
		FROM business_profiles WHERE account_id = ?`, accountID).Scan(
		&p.AccountID, &p.BusinessName, &types, &industries, &p.Website, &p.About, &audience, &voice,
		&goals, &channels, &details, &p.AutoPublish, &completedAt, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetProfile not found", "accountID", accountID)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetProfile failed", "error", err, "accountID", accountID)
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	if p.BusinessTypes, err = unmarshalStrings(types); err != nil {
		return nil, err
	}
	if p.Industries, err = unmarshalStrings(industries); err != nil {
		return nil, err
	}
	if p.Audience, err = unmarshalStrings(audience); err != nil {
		return nil, err
	}
	if p.BrandVoice, err = unmarshalStrings(voice); err != nil {
		return nil, err
	}
	if p.MarketingGoals, err = unmarshalStrings(goals); err != nil {
		return nil, err
	}
	if p.Channels, err = unmarshalStrings(channels); err != nil {
		return nil, err
	}
	if p.PlatformDetails, err = unmarshalStringMap(details); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		p.CompletedAt = &completedAt.Time
	}
	return &p, nil
}

// AddConnection inserts a connection record.
func (s *SQLiteStore) AddConnection(c models.ConnectionRecord) error {
	meta, err := marshalStringMap(c.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO connections (id, account_id, platform, source, display_name, active, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.AccountID, string(c.Platform), string(c.Source), c.DisplayName, c.Active, meta, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore AddConnection failed", "error", err, "accountID", c.AccountID, "platform", c.Platform)
		return fmt.Errorf("failed to insert connection for %s: %w", c.Platform, err)
	}
	slog.Debug("SQLiteStore AddConnection succeeded", "accountID", c.AccountID, "platform", c.Platform, "source", c.Source)
	return nil
}

// GetConnections returns all connection records for an account.
func (s *SQLiteStore) GetConnections(accountID string) ([]models.ConnectionRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, account_id, platform, source, display_name, active, metadata, created_at, updated_at
		FROM connections WHERE account_id = ? ORDER BY created_at`, accountID)
	if err != nil {
		slog.Error("SQLiteStore GetConnections query failed", "error", err, "accountID", accountID)
		return nil, fmt.Errorf("failed to query connections: %w", err)
	}
	defer rows.Close()

	var out []models.ConnectionRecord
	for rows.Next() {
		var c models.ConnectionRecord
		var platform, source, meta string
		if err := rows.Scan(&c.ID, &c.AccountID, &platform, &source, &c.DisplayName, &c.Active, &meta, &c.CreatedAt, &c.UpdatedAt); err != nil {
			slog.Error("SQLiteStore GetConnections scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan connection row: %w", err)
		}
		c.Platform = models.Platform(platform)
		c.Source = models.ConnectionSource(source)
		if c.Metadata, err = unmarshalStringMap(meta); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate connection rows: %w", err)
	}
	slog.Debug("SQLiteStore GetConnections succeeded", "accountID", accountID, "count", len(out))
	return out, nil
}

// DeleteConnections removes all records for a platform and reports how many.
func (s *SQLiteStore) DeleteConnections(accountID string, platform models.Platform) (int, error) {
	res, err := s.db.Exec(`DELETE FROM connections WHERE account_id = ? AND platform = ?`, accountID, string(platform))
	if err != nil {
		slog.Error("SQLiteStore DeleteConnections failed", "error", err, "accountID", accountID, "platform", platform)
		return 0, fmt.Errorf("failed to delete connections: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	slog.Debug("SQLiteStore DeleteConnections succeeded", "accountID", accountID, "platform", platform, "removed", n)
	return int(n), nil
}

// SaveCampaign stores or replaces a campaign.
func (s *SQLiteStore) SaveCampaign(c models.Campaign) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO campaigns (id, account_id, name, objective, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.AccountID, c.Name, c.Objective, string(c.Status), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveCampaign failed", "error", err, "id", c.ID)
		return fmt.Errorf("failed to save campaign: %w", err)
	}
	return nil
}

// GetCampaigns returns all campaigns for an account, oldest first.
func (s *SQLiteStore) GetCampaigns(accountID string) ([]models.Campaign, error) {
	rows, err := s.db.Query(`
		SELECT id, account_id, name, objective, status, created_at, updated_at
		FROM campaigns WHERE account_id = ? ORDER BY created_at`, accountID)
	if err != nil {
		slog.Error("SQLiteStore GetCampaigns query failed", "error", err, "accountID", accountID)
		return nil, fmt.Errorf("failed to query campaigns: %w", err)
	}
	defer rows.Close()

	var out []models.Campaign
	for rows.Next() {
		var c models.Campaign
		var status string
		if err := rows.Scan(&c.ID, &c.AccountID, &c.Name, &c.Objective, &status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan campaign row: %w", err)
		}
		c.Status = models.ContentStatus(status)
		out = append(out, c)
	}
	return out, rows.Err()
}

// SavePost stores or replaces a post.
func (s *SQLiteStore) SavePost(p models.Post) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO posts (id, account_id, campaign_id, platform, title, body, status, scheduled_for, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.AccountID, p.CampaignID, string(p.Platform), p.Title, p.Body, string(p.Status), p.ScheduledFor, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SavePost failed", "error", err, "id", p.ID)
		return fmt.Errorf("failed to save post: %w", err)
	}
	return nil
}

// GetPosts returns all posts for an account, oldest first.
func (s *SQLiteStore) GetPosts(accountID string) ([]models.Post, error) {
	rows, err := s.db.Query(`
		SELECT id, account_id, campaign_id, platform, title, body, status, scheduled_for, created_at, updated_at
		FROM posts WHERE account_id = ? ORDER BY created_at`, accountID)
	if err != nil {
		slog.Error("SQLiteStore GetPosts query failed", "error", err, "accountID", accountID)
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	var out []models.Post
	for rows.Next() {
		var p models.Post
		var platform, status string
		var scheduledFor sql.NullTime
		if err := rows.Scan(&p.ID, &p.AccountID, &p.CampaignID, &platform, &p.Title, &p.Body, &status, &scheduledFor, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		p.Platform = models.Platform(platform)
		p.Status = models.ContentStatus(status)
		if scheduledFor.Valid {
			p.ScheduledFor = &scheduledFor.Time
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SaveTemplate stores or replaces a template.
func (s *SQLiteStore) SaveTemplate(t models.Template) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO templates (id, account_id, name, category, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccountID, t.Name, t.Category, t.Body, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveTemplate failed", "error", err, "id", t.ID)
		return fmt.Errorf("failed to save template: %w", err)
	}
	return nil
}

// GetTemplates returns all templates for an account, oldest first.
func (s *SQLiteStore) GetTemplates(accountID string) ([]models.Template, error) {
	rows, err := s.db.Query(`
		SELECT id, account_id, name, category, body, created_at, updated_at
		FROM templates WHERE account_id = ? ORDER BY created_at`, accountID)
	if err != nil {
		slog.Error("SQLiteStore GetTemplates query failed", "error", err, "accountID", accountID)
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()

	var out []models.Template
	for rows.Next() {
		var t models.Template
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Name, &t.Category, &t.Body, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan template row: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetImagePreference retrieves an image preference, or nil when none is stored.
func (s *SQLiteStore) GetImagePreference(accountID string) (*models.ImagePreference, error) {
	var p models.ImagePreference
	err := s.db.QueryRow(`
		SELECT account_id, style, palette, include_logo, updated_at
		FROM image_preferences WHERE account_id = ?`, accountID).Scan(
		&p.AccountID, &p.Style, &p.Palette, &p.IncludeLogo, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetImagePreference failed", "error", err, "accountID", accountID)
		return nil, fmt.Errorf("failed to get image preference: %w", err)
	}
	return &p, nil
}

// SaveImagePreference stores or replaces an image preference.
func (s *SQLiteStore) SaveImagePreference(p models.ImagePreference) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO image_preferences (account_id, style, palette, include_logo, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		p.AccountID, p.Style, p.Palette, p.IncludeLogo, p.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveImagePreference failed", "error", err, "accountID", p.AccountID)
		return fmt.Errorf("failed to save image preference: %w", err)
	}
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	return s.db.Close()
}
