package wizard

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/getemily/emily-api/internal/models"
	"github.com/getemily/emily-api/internal/store"
)

// TrialPeriodDays is the length of the free trial, measured from profile
// creation.
const TrialPeriodDays = 14

// Submitter turns a finished wizard session into a business profile and
// drives the post-submission phases.
type Submitter struct {
	store store.Store
	mgr   *Manager
}

// NewSubmitter creates a Submitter.
func NewSubmitter(st store.Store, mgr *Manager) *Submitter {
	return &Submitter{store: st, mgr: mgr}
}

// Submit validates completeness, reshapes the answers into a profile, saves
// it, and clears the persisted session. On any failure the session is left
// intact so the user can retry without re-entering data.
func (s *Submitter) Submit(accountID string, variant models.WizardVariant) (*models.BusinessProfile, error) {
	sess, def, err := s.mgr.Open(accountID, variant)
	if err != nil {
		return nil, err
	}
	if !NewSequencer(def, sess).ReadyToSubmit() {
		slog.Warn("Submitter.Submit: steps incomplete", "accountID", accountID, "variant", variant, "completed", len(sess.Progress.CompletedSteps))
		return nil, models.ErrStepsIncomplete
	}

	profile := BuildProfile(accountID, sess.Answers)
	if existing, err := s.store.GetProfile(accountID); err == nil && existing != nil {
		// Resubmission updates the profile but keeps its original dates.
		profile.CreatedAt = existing.CreatedAt
		profile.CompletedAt = existing.CompletedAt
	}

	if err := s.store.SaveProfile(profile); err != nil {
		slog.Error("Submitter.Submit: failed to save profile", "error", err, "accountID", accountID)
		return nil, fmt.Errorf("failed to save onboarding profile: %w", err)
	}

	if err := s.mgr.Clear(accountID, variant); err != nil {
		// The profile landed; a leftover session row only means a stale
		// resume next visit.
		slog.Warn("Submitter.Submit: session clear failed after successful submit", "error", err, "accountID", accountID)
	}

	slog.Info("Submitter.Submit: onboarding submitted", "accountID", accountID, "variant", variant, "business", profile.BusinessName)
	return &profile, nil
}

// CompleteConnections finishes the connections phase. The mandatory
// onboarding variant requires at least one linked platform; the settings
// variant lets the user skip.
func (s *Submitter) CompleteConnections(accountID string, variant models.WizardVariant, connectedPlatforms int) (*models.BusinessProfile, error) {
	def, err := Lookup(variant)
	if err != nil {
		return nil, err
	}
	if def.RequireConnection && connectedPlatforms == 0 {
		slog.Warn("Submitter.CompleteConnections: no platforms connected", "accountID", accountID, "variant", variant)
		return nil, models.ErrNoConnections
	}

	profile, err := s.store.GetProfile(accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil {
		return nil, models.ErrProfileNotFound
	}

	now := time.Now()
	profile.CompletedAt = &now
	profile.UpdatedAt = now
	if err := s.store.SaveProfile(*profile); err != nil {
		slog.Error("Submitter.CompleteConnections: failed to save profile", "error", err, "accountID", accountID)
		return nil, fmt.Errorf("failed to mark onboarding complete: %w", err)
	}
	slog.Info("Submitter.CompleteConnections: onboarding complete", "accountID", accountID, "variant", variant, "connected", connectedPlatforms)
	return profile, nil
}

// Phase derives which stage of the flow the account is in from the stored
// profile: collecting until submission, connections until completion.
func (s *Submitter) Phase(accountID string) (models.WizardPhase, error) {
	profile, err := s.store.GetProfile(accountID)
	if err != nil {
		return "", fmt.Errorf("failed to load profile: %w", err)
	}
	switch {
	case profile == nil:
		return models.PhaseCollecting, nil
	case profile.CompletedAt == nil:
		return models.PhaseConnections, nil
	default:
		return models.PhaseCompleted, nil
	}
}

// Trial computes the remaining free-trial window from profile creation.
func (s *Submitter) Trial(accountID string) (*models.TrialStatus, error) {
	profile, err := s.store.GetProfile(accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil {
		return nil, models.ErrProfileNotFound
	}

	expires := profile.CreatedAt.AddDate(0, 0, TrialPeriodDays)
	daysLeft := int(time.Until(expires).Hours() / 24)
	if daysLeft < 0 {
		daysLeft = 0
	}
	return &models.TrialStatus{
		AccountID: accountID,
		Active:    time.Now().Before(expires),
		DaysLeft:  daysLeft,
		ExpiresAt: expires,
	}, nil
}

// BuildProfile reshapes wizard answers into the profile payload. The three
// audience selection sets flatten into one combined audience list.
func BuildProfile(accountID string, a models.FormAnswers) models.BusinessProfile {
	now := time.Now()
	return models.BusinessProfile{
		AccountID:       accountID,
		BusinessName:    a.Text(FieldBusinessName),
		BusinessTypes:   sortedOptions(a, FieldBusinessType),
		Industries:      sortedOptions(a, FieldIndustry),
		Website:         a.Text(FieldWebsite),
		About:           a.Text(FieldAboutBusiness),
		Audience:        flattenAudience(a),
		BrandVoice:      sortedOptions(a, FieldBrandVoice),
		MarketingGoals:  sortedOptions(a, FieldMarketingGoals),
		Channels:        sortedOptions(a, FieldChannels),
		PlatformDetails: a[FieldPlatformDetails].Nested,
		AutoPublish:     a.Flag(FieldAutoPublish),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// flattenAudience combines the category-specific audience sets into one
// deduplicated, sorted list.
func flattenAudience(a models.FormAnswers) []string {
	seen := make(map[string]bool)
	var out []string
	for _, field := range []string{FieldAudienceB2B, FieldAudienceB2C, FieldAudienceNonprofit} {
		for _, opt := range a.Options(field) {
			if !seen[opt] {
				seen[opt] = true
				out = append(out, opt)
			}
		}
	}
	sort.Strings(out)
	return out
}

func sortedOptions(a models.FormAnswers, field string) []string {
	opts := append([]string(nil), a.Options(field)...)
	sort.Strings(opts)
	return opts
}
