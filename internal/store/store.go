// Package store provides storage backends for the Emily API.
//
// It includes an in-memory store for tests, SQLite and PostgreSQL stores for
// durable data, and a Redis-backed cache for wizard sessions.
package store

import (
	"strings"

	"github.com/getemily/emily-api/internal/models"
)

// Opts holds configuration for store backends.
type Opts struct {
	DSN string
}

// Option configures store construction.
type Option func(*Opts)

// WithSQLiteDSN sets a SQLite file path as the store DSN.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithPostgresDSN sets a PostgreSQL DSN for the store.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// DetectDSNType classifies a DSN string as "postgres" or "sqlite".
// PostgreSQL DSNs use URL or key=value forms; anything else is treated as a
// SQLite file path.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// SessionStore is the wizard-session subset of Store. The Redis cache
// implements only this slice; the durable stores implement all of Store.
type SessionStore interface {
	SaveWizardSession(s models.WizardSession) error
	GetWizardSession(accountID string, variant models.WizardVariant) (*models.WizardSession, error)
	DeleteWizardSession(accountID string, variant models.WizardVariant) error
}

// Store is the full persistence interface consumed by the API modules.
type Store interface {
	SessionStore

	SaveProfile(p models.BusinessProfile) error
	GetProfile(accountID string) (*models.BusinessProfile, error)

	AddConnection(c models.ConnectionRecord) error
	GetConnections(accountID string) ([]models.ConnectionRecord, error)
	DeleteConnections(accountID string, platform models.Platform) (int, error)

	SaveCampaign(c models.Campaign) error
	GetCampaigns(accountID string) ([]models.Campaign, error)
	SavePost(p models.Post) error
	GetPosts(accountID string) ([]models.Post, error)
	SaveTemplate(t models.Template) error
	GetTemplates(accountID string) ([]models.Template, error)

	GetImagePreference(accountID string) (*models.ImagePreference, error)
	SaveImagePreference(p models.ImagePreference) error

	Close() error
}
