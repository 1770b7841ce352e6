package store

import (
	"testing"
	"time"

	"github.com/getemily/emily-api/internal/models"
)

func TestInMemoryWizardSessionRoundTrip(t *testing.T) {
	st := NewInMemoryStore()
	defer st.Close()

	sess := models.WizardSession{
		AccountID: "acct-1",
		Variant:   models.VariantOnboarding,
		Answers: models.FormAnswers{
			"business_name": models.TextValue("Acme Co"),
			"industry":      models.OptionsValue("food"),
		},
		Progress:  models.WizardProgress{CurrentStep: 2, CompletedSteps: []int{0, 1}},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := st.SaveWizardSession(sess); err != nil {
		t.Fatalf("Failed to save session: %v", err)
	}

	got, err := st.GetWizardSession("acct-1", models.VariantOnboarding)
	if err != nil {
		t.Fatalf("Failed to get session: %v", err)
	}
	if got == nil {
		t.Fatal("Expected stored session, got nil")
	}
	if got.Progress.CurrentStep != 2 || len(got.Progress.CompletedSteps) != 2 {
		t.Errorf("Progress did not round-trip: %+v", got.Progress)
	}
	if got.Answers.Text("business_name") != "Acme Co" {
		t.Errorf("Answers did not round-trip: %+v", got.Answers)
	}

	// The returned copy is isolated from the stored one
	got.Answers["business_name"] = models.TextValue("Mutated")
	again, _ := st.GetWizardSession("acct-1", models.VariantOnboarding)
	if again.Answers.Text("business_name") != "Acme Co" {
		t.Error("Expected stored session isolated from returned copy")
	}

	// Different variant is a separate session
	other, err := st.GetWizardSession("acct-1", models.VariantExpress)
	if err != nil {
		t.Fatalf("Failed to get express session: %v", err)
	}
	if other != nil {
		t.Error("Expected no express session")
	}

	if err := st.DeleteWizardSession("acct-1", models.VariantOnboarding); err != nil {
		t.Fatalf("Failed to delete session: %v", err)
	}
	gone, _ := st.GetWizardSession("acct-1", models.VariantOnboarding)
	if gone != nil {
		t.Error("Expected session removed")
	}
}

func TestInMemoryProfileRoundTrip(t *testing.T) {
	st := NewInMemoryStore()
	defer st.Close()

	missing, err := st.GetProfile("acct-1")
	if err != nil {
		t.Fatalf("Failed to get missing profile: %v", err)
	}
	if missing != nil {
		t.Error("Expected nil for missing profile")
	}

	profile := models.BusinessProfile{
		AccountID:    "acct-1",
		BusinessName: "Acme Co",
		Audience:     []string{"locals"},
		CreatedAt:    time.Now(),
	}
	if err := st.SaveProfile(profile); err != nil {
		t.Fatalf("Failed to save profile: %v", err)
	}
	got, err := st.GetProfile("acct-1")
	if err != nil || got == nil {
		t.Fatalf("Failed to get profile: %v", err)
	}
	if got.BusinessName != "Acme Co" {
		t.Errorf("Profile did not round-trip: %+v", got)
	}
}

func TestInMemoryConnectionsDelete(t *testing.T) {
	st := NewInMemoryStore()
	defer st.Close()

	now := time.Now()
	records := []models.ConnectionRecord{
		{ID: "conn_1", AccountID: "acct-1", Platform: models.PlatformFacebook, Source: models.SourceOAuth, Active: true, CreatedAt: now},
		{ID: "conn_2", AccountID: "acct-1", Platform: models.PlatformFacebook, Source: models.SourceToken, Active: true, CreatedAt: now},
		{ID: "conn_3", AccountID: "acct-1", Platform: models.PlatformLinkedIn, Source: models.SourceOAuth, Active: true, CreatedAt: now},
		{ID: "conn_4", AccountID: "acct-2", Platform: models.PlatformFacebook, Source: models.SourceOAuth, Active: true, CreatedAt: now},
	}
	for _, rec := range records {
		if err := st.AddConnection(rec); err != nil {
			t.Fatalf("Failed to add connection %s: %v", rec.ID, err)
		}
	}

	// Deleting a platform removes every record for it, scoped to the account
	removed, err := st.DeleteConnections("acct-1", models.PlatformFacebook)
	if err != nil {
		t.Fatalf("Failed to delete connections: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 removed, got %d", removed)
	}

	left, _ := st.GetConnections("acct-1")
	if len(left) != 1 || left[0].Platform != models.PlatformLinkedIn {
		t.Errorf("Unexpected remaining connections: %+v", left)
	}
	other, _ := st.GetConnections("acct-2")
	if len(other) != 1 {
		t.Errorf("Expected other account untouched, got %+v", other)
	}

	removed, err = st.DeleteConnections("acct-1", models.PlatformFacebook)
	if err != nil {
		t.Fatalf("Failed on second delete: %v", err)
	}
	if removed != 0 {
		t.Errorf("Expected 0 removed on repeat, got %d", removed)
	}
}

func TestInMemoryContentOrdering(t *testing.T) {
	st := NewInMemoryStore()
	defer st.Close()

	base := time.Now()
	for i, id := range []string{"camp_c", "camp_a", "camp_b"} {
		if err := st.SaveCampaign(models.Campaign{
			ID:        id,
			AccountID: "acct-1",
			Name:      id,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("Failed to save campaign: %v", err)
		}
	}

	campaigns, err := st.GetCampaigns("acct-1")
	if err != nil {
		t.Fatalf("Failed to get campaigns: %v", err)
	}
	if len(campaigns) != 3 {
		t.Fatalf("Expected 3 campaigns, got %d", len(campaigns))
	}
	// Oldest first, regardless of map iteration order
	if campaigns[0].ID != "camp_c" || campaigns[2].ID != "camp_b" {
		t.Errorf("Unexpected order: %s, %s, %s", campaigns[0].ID, campaigns[1].ID, campaigns[2].ID)
	}
}

func TestInMemoryImagePreference(t *testing.T) {
	st := NewInMemoryStore()
	defer st.Close()

	pref, err := st.GetImagePreference("acct-1")
	if err != nil {
		t.Fatalf("Failed to get missing preference: %v", err)
	}
	if pref != nil {
		t.Error("Expected nil for missing preference")
	}

	if err := st.SaveImagePreference(models.ImagePreference{
		AccountID:   "acct-1",
		Style:       "photo",
		IncludeLogo: true,
		UpdatedAt:   time.Now(),
	}); err != nil {
		t.Fatalf("Failed to save preference: %v", err)
	}
	pref, err = st.GetImagePreference("acct-1")
	if err != nil || pref == nil {
		t.Fatalf("Failed to get preference: %v", err)
	}
	if pref.Style != "photo" || !pref.IncludeLogo {
		t.Errorf("Preference did not round-trip: %+v", pref)
	}
}
