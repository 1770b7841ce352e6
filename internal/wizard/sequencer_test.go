package wizard

import (
	"errors"
	"testing"

	"github.com/getemily/emily-api/internal/models"
)

func newOnboardingSession() (*Definition, *models.WizardSession) {
	def, _ := Lookup(models.VariantOnboarding)
	return def, &models.WizardSession{
		AccountID: "acct-1",
		Variant:   def.Variant,
		Answers:   def.Defaults(),
	}
}

func TestCanAdvanceNavigationLaw(t *testing.T) {
	def, sess := newOnboardingSession()
	seq := NewSequencer(def, sess)

	// On a fresh session only step 0 is navigable
	for i := 0; i <= def.LastStep(); i++ {
		want := i == 0
		if got := seq.CanAdvance(i); got != want {
			t.Errorf("Fresh session: CanAdvance(%d) = %v, want %v", i, got, want)
		}
	}

	// After completing step 0, steps 0 and 1 are navigable but nothing beyond
	sess.Progress.MarkCompleted(0)
	sess.Progress.CurrentStep = 1
	for i := 0; i <= def.LastStep(); i++ {
		want := i <= 1
		if got := seq.CanAdvance(i); got != want {
			t.Errorf("Step 0 done: CanAdvance(%d) = %v, want %v", i, got, want)
		}
	}

	if seq.CanAdvance(-1) || seq.CanAdvance(def.LastStep()+1) {
		t.Error("Expected out-of-range steps to never be navigable")
	}
}

func TestAdvanceValidationScenario(t *testing.T) {
	def, sess := newOnboardingSession()
	seq := NewSequencer(def, sess)

	// Step 0 requires name, type, and industry; a name alone is not enough
	sess.Answers[FieldBusinessName] = models.TextValue("Acme Co")
	if err := seq.Advance(); !errors.Is(err, models.ErrValidationFailed) {
		t.Fatalf("Expected ErrValidationFailed with partial answers, got %v", err)
	}
	if sess.Progress.CurrentStep != 0 || len(sess.Progress.CompletedSteps) != 0 {
		t.Errorf("Failed advance must not change state: step %d, completed %v", sess.Progress.CurrentStep, sess.Progress.CompletedSteps)
	}

	// Repeating the failed advance yields the identical result
	if err := seq.Advance(); !errors.Is(err, models.ErrValidationFailed) {
		t.Fatalf("Expected repeated advance to fail identically, got %v", err)
	}

	sess.Answers[FieldBusinessType] = models.OptionsValue("retail")
	sess.Answers[FieldIndustry] = models.OptionsValue("food")
	if err := seq.Advance(); err != nil {
		t.Fatalf("Expected advance to succeed with full answers, got %v", err)
	}
	if sess.Progress.CurrentStep != 1 {
		t.Errorf("Expected step 1 after advance, got %d", sess.Progress.CurrentStep)
	}
	if !sess.Progress.IsCompleted(0) {
		t.Error("Expected step 0 marked completed after advance")
	}
}

func TestAdvanceAtLastStepClamps(t *testing.T) {
	def, sess := newOnboardingSession()
	seq := NewSequencer(def, sess)

	sess.Progress.CurrentStep = def.LastStep()
	if err := seq.Advance(); err != nil {
		t.Fatalf("Expected terminal step to always validate, got %v", err)
	}
	if sess.Progress.CurrentStep != def.LastStep() {
		t.Errorf("Expected step to clamp at %d, got %d", def.LastStep(), sess.Progress.CurrentStep)
	}
}

func TestRetreatClampsAtZero(t *testing.T) {
	def, sess := newOnboardingSession()
	seq := NewSequencer(def, sess)

	seq.Retreat()
	if sess.Progress.CurrentStep != 0 {
		t.Errorf("Expected retreat at step 0 to be a no-op, got %d", sess.Progress.CurrentStep)
	}

	sess.Progress.CurrentStep = 2
	seq.Retreat()
	if sess.Progress.CurrentStep != 1 {
		t.Errorf("Expected step 1 after retreat, got %d", sess.Progress.CurrentStep)
	}
}

func TestGoToLockedStep(t *testing.T) {
	def, sess := newOnboardingSession()
	seq := NewSequencer(def, sess)

	if err := seq.GoTo(3); !errors.Is(err, models.ErrStepLocked) {
		t.Errorf("Expected ErrStepLocked jumping ahead, got %v", err)
	}
	if sess.Progress.CurrentStep != 0 {
		t.Errorf("Locked jump must not move position, got %d", sess.Progress.CurrentStep)
	}

	if err := seq.GoTo(def.LastStep() + 1); !errors.Is(err, models.ErrStepOutOfRange) {
		t.Errorf("Expected ErrStepOutOfRange, got %v", err)
	}
	if err := seq.GoTo(-1); !errors.Is(err, models.ErrStepOutOfRange) {
		t.Errorf("Expected ErrStepOutOfRange for negative step, got %v", err)
	}

	// Completed steps stay navigable after moving past them
	sess.Progress.MarkCompleted(0)
	sess.Progress.MarkCompleted(1)
	sess.Progress.CurrentStep = 2
	if err := seq.GoTo(0); err != nil {
		t.Errorf("Expected jump back to completed step to succeed, got %v", err)
	}
}

func TestReadyToSubmit(t *testing.T) {
	def, sess := newOnboardingSession()
	seq := NewSequencer(def, sess)

	if seq.ReadyToSubmit() {
		t.Error("Fresh session must not be ready to submit")
	}
	for i := 0; i < def.LastStep(); i++ {
		sess.Progress.MarkCompleted(i)
	}
	if !seq.ReadyToSubmit() {
		t.Error("Expected ready to submit with all prior steps completed")
	}
}

func TestStepInfosReflectState(t *testing.T) {
	def, sess := newOnboardingSession()
	sess.Answers[FieldBusinessName] = models.TextValue("Acme Co")
	sess.Progress.MarkCompleted(0)
	sess.Progress.CurrentStep = 1

	infos := NewSequencer(def, sess).StepInfos()
	if len(infos) != len(def.Steps) {
		t.Fatalf("Expected %d step infos, got %d", len(def.Steps), len(infos))
	}
	if !infos[0].Completed || !infos[0].HasData || !infos[0].Navigable {
		t.Errorf("Unexpected step 0 info: %+v", infos[0])
	}
	if infos[2].Navigable {
		t.Errorf("Expected step 2 locked: %+v", infos[2])
	}
	if !infos[len(infos)-1].IsTerminal {
		t.Error("Expected last step flagged terminal")
	}
}

func TestHighestStepWithData(t *testing.T) {
	def, _ := Lookup(models.VariantOnboarding)

	answers := def.Defaults()
	if hi := def.HighestStepWithData(answers); hi != -1 {
		t.Errorf("Expected -1 for empty answers, got %d", hi)
	}

	answers[FieldBusinessName] = models.TextValue("Acme Co")
	answers[FieldBrandVoice] = models.OptionsValue("friendly")
	if hi := def.HighestStepWithData(answers); hi != 2 {
		t.Errorf("Expected highest step 2, got %d", hi)
	}

	// The default false auto-publish flag is not data
	if def.Steps[3].HasData(answers) {
		t.Error("Expected step 3 to report no data with defaults only")
	}
}

func TestExpressVariantIsShorter(t *testing.T) {
	def, err := Lookup(models.VariantExpress)
	if err != nil {
		t.Fatalf("Failed to look up express variant: %v", err)
	}
	if len(def.Steps) != 3 {
		t.Errorf("Expected 3 express steps, got %d", len(def.Steps))
	}
	if def.RequireConnection {
		t.Error("Express variant must not require a connection")
	}

	if _, err := Lookup("bogus"); !errors.Is(err, models.ErrUnknownVariant) {
		t.Errorf("Expected ErrUnknownVariant, got %v", err)
	}
}
