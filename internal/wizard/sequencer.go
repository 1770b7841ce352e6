package wizard

import (
	"log/slog"

	"github.com/getemily/emily-api/internal/models"
)

// Sequencer applies step-navigation rules to one wizard session. It mutates
// the session's progress in place; persistence is the Manager's concern.
type Sequencer struct {
	def  *Definition
	sess *models.WizardSession
}

// NewSequencer binds a step table to a session.
func NewSequencer(def *Definition, sess *models.WizardSession) *Sequencer {
	return &Sequencer{def: def, sess: sess}
}

// CanAdvance reports whether a step is navigable: the first step, any
// completed step, or the immediate next incomplete step.
func (s *Sequencer) CanAdvance(step int) bool {
	if step < 0 || step > s.def.LastStep() {
		return false
	}
	if step == 0 {
		return true
	}
	if s.sess.Progress.IsCompleted(step) {
		return true
	}
	return step == s.sess.Progress.FirstIncomplete(len(s.def.Steps))
}

// GoTo moves the current step if the target is navigable. A locked target
// leaves state untouched and returns ErrStepLocked for the caller to surface.
func (s *Sequencer) GoTo(step int) error {
	if step < 0 || step > s.def.LastStep() {
		slog.Warn("Sequencer.GoTo: step out of range", "step", step, "variant", s.def.Variant)
		return models.ErrStepOutOfRange
	}
	if !s.CanAdvance(step) {
		slog.Debug("Sequencer.GoTo: step locked", "step", step, "current", s.sess.Progress.CurrentStep, "variant", s.def.Variant)
		return models.ErrStepLocked
	}
	s.sess.Progress.CurrentStep = step
	return nil
}

// Advance runs the active step's validator. On pass the step joins the
// completed set and the position increments, clamped to the last step. On
// fail nothing changes and ErrValidationFailed is returned; repeating the
// call yields the identical result.
func (s *Sequencer) Advance() error {
	cur := s.sess.Progress.CurrentStep
	if !s.def.Steps[cur].Validate(s.sess.Answers) {
		slog.Debug("Sequencer.Advance: validation failed", "step", cur, "variant", s.def.Variant)
		return models.ErrValidationFailed
	}
	s.sess.Progress.MarkCompleted(cur)
	if cur < s.def.LastStep() {
		s.sess.Progress.CurrentStep = cur + 1
	}
	slog.Debug("Sequencer.Advance: step completed", "step", cur, "next", s.sess.Progress.CurrentStep, "variant", s.def.Variant)
	return nil
}

// Retreat moves back one step unconditionally, clamped at 0. Going backward
// never requires validation.
func (s *Sequencer) Retreat() {
	if s.sess.Progress.CurrentStep > 0 {
		s.sess.Progress.CurrentStep--
	}
}

// ReadyToSubmit reports whether every step before the terminal review step
// has been completed.
func (s *Sequencer) ReadyToSubmit() bool {
	for i := 0; i < s.def.LastStep(); i++ {
		if !s.sess.Progress.IsCompleted(i) {
			return false
		}
	}
	return true
}

// StepInfos renders the step table with per-step navigability for the client.
func (s *Sequencer) StepInfos() []models.StepInfo {
	infos := make([]models.StepInfo, len(s.def.Steps))
	for i, step := range s.def.Steps {
		infos[i] = models.StepInfo{
			Index:      i,
			Name:       step.Name,
			Completed:  s.sess.Progress.IsCompleted(i),
			Navigable:  s.CanAdvance(i),
			HasData:    step.HasData(s.sess.Answers),
			IsTerminal: i == s.def.LastStep(),
		}
	}
	return infos
}
