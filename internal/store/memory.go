// Package store provides storage backends for the Emily API.
//
// This file implements an in-memory store used in tests and when no database
// DSN is configured.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/getemily/emily-api/internal/models"
)

// InMemoryStore keeps everything in process memory. Safe for concurrent use.
type InMemoryStore struct {
	mu          sync.RWMutex
	sessions    map[string]models.WizardSession
	profiles    map[string]models.BusinessProfile
	connections []models.ConnectionRecord
	campaigns   map[string]models.Campaign
	posts       map[string]models.Post
	templates   map[string]models.Template
	imagePrefs  map[string]models.ImagePreference
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions:   make(map[string]models.WizardSession),
		profiles:   make(map[string]models.BusinessProfile),
		campaigns:  make(map[string]models.Campaign),
		posts:      make(map[string]models.Post),
		templates:  make(map[string]models.Template),
		imagePrefs: make(map[string]models.ImagePreference),
	}
}

func sessionKey(accountID string, variant models.WizardVariant) string {
	return accountID + "/" + string(variant)
}

// SaveWizardSession stores or replaces a wizard session.
func (s *InMemoryStore) SaveWizardSession(sess models.WizardSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.Answers = sess.Answers.Clone()
	s.sessions[sessionKey(sess.AccountID, sess.Variant)] = sess
	return nil
}

// GetWizardSession returns the stored session or nil when absent.
func (s *InMemoryStore) GetWizardSession(accountID string, variant models.WizardVariant) (*models.WizardSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionKey(accountID, variant)]
	if !ok {
		return nil, nil
	}
	sess.Answers = sess.Answers.Clone()
	return &sess, nil
}

// DeleteWizardSession removes a stored session.
func (s *InMemoryStore) DeleteWizardSession(accountID string, variant models.WizardVariant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionKey(accountID, variant))
	return nil
}

// SaveProfile stores or replaces a business profile.
func (s *InMemoryStore) SaveProfile(p models.BusinessProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.AccountID] = p
	return nil
}

// GetProfile returns the stored profile or nil when absent.
func (s *InMemoryStore) GetProfile(accountID string) (*models.BusinessProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[accountID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// AddConnection appends a connection record.
func (s *InMemoryStore) AddConnection(c models.ConnectionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connections = append(s.connections, c)
	return nil
}

// GetConnections returns all connection records for an account.
func (s *InMemoryStore) GetConnections(accountID string) ([]models.ConnectionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ConnectionRecord
	for _, c := range s.connections {
		if c.AccountID == accountID {
			out = append(out, c)
		}
	}
	return out, nil
}

// DeleteConnections removes all records for a platform and reports how many.
func (s *InMemoryStore) DeleteConnections(accountID string, platform models.Platform) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.connections[:0]
	removed := 0
	for _, c := range s.connections {
		if c.AccountID == accountID && c.Platform == platform {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	s.connections = kept
	return removed, nil
}

// SaveCampaign stores or replaces a campaign.
func (s *InMemoryStore) SaveCampaign(c models.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.campaigns[c.ID] = c
	return nil
}

// GetCampaigns returns all campaigns for an account, oldest first.
func (s *InMemoryStore) GetCampaigns(accountID string) ([]models.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Campaign
	for _, c := range s.campaigns {
		if c.AccountID == accountID {
			out = append(out, c)
		}
	}
	sortByCreated(out, func(c models.Campaign) time.Time { return c.CreatedAt })
	return out, nil
}

// SavePost stores or replaces a post.
func (s *InMemoryStore) SavePost(p models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts[p.ID] = p
	return nil
}

// GetPosts returns all posts for an account, oldest first.
func (s *InMemoryStore) GetPosts(accountID string) ([]models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Post
	for _, p := range s.posts {
		if p.AccountID == accountID {
			out = append(out, p)
		}
	}
	sortByCreated(out, func(p models.Post) time.Time { return p.CreatedAt })
	return out, nil
}

// SaveTemplate stores or replaces a template.
func (s *InMemoryStore) SaveTemplate(t models.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[t.ID] = t
	return nil
}

// GetTemplates returns all templates for an account, oldest first.
func (s *InMemoryStore) GetTemplates(accountID string) ([]models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Template
	for _, t := range s.templates {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	sortByCreated(out, func(t models.Template) time.Time { return t.CreatedAt })
	return out, nil
}

// GetImagePreference returns the stored preference or nil when absent.
func (s *InMemoryStore) GetImagePreference(accountID string) (*models.ImagePreference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.imagePrefs[accountID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// SaveImagePreference stores or replaces an image preference.
func (s *InMemoryStore) SaveImagePreference(p models.ImagePreference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imagePrefs[p.AccountID] = p
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}

// sortByCreated orders a slice by its creation timestamp so map iteration
// order does not leak into API responses.
func sortByCreated[T any](items []T, created func(T) time.Time) {
	sort.Slice(items, func(i, j int) bool {
		return created(items[i]).Before(created(items[j]))
	})
}
