// Package models defines wizard session structures for Emily onboarding flows.
package models

import "time"

// WizardVariant selects which step table drives a wizard session.
type WizardVariant string

const (
	// VariantOnboarding is the full first-time onboarding wizard. Finishing
	// its connections phase requires at least one linked platform.
	VariantOnboarding WizardVariant = "onboarding"
	// VariantExpress is the shorter settings-page wizard. Connections are
	// optional.
	VariantExpress WizardVariant = "express"
)

// IsValidWizardVariant checks if the given variant is supported.
func IsValidWizardVariant(v WizardVariant) bool {
	switch v {
	case VariantOnboarding, VariantExpress:
		return true
	default:
		return false
	}
}

// WizardPhase tracks which stage of the overall onboarding flow a session is in.
type WizardPhase string

const (
	// PhaseCollecting means the user is still filling wizard steps.
	PhaseCollecting WizardPhase = "collecting"
	// PhaseConnections means submission succeeded and the user is linking platforms.
	PhaseConnections WizardPhase = "connections"
	// PhaseCompleted means the whole flow is finished.
	PhaseCompleted WizardPhase = "completed"
)

// WizardProgress tracks position within the step table.
// CurrentStep stays within [0, stepCount-1]; a step index joins
// CompletedSteps only after its validator passes.
type WizardProgress struct {
	CurrentStep    int   `json:"current_step"`
	CompletedSteps []int `json:"completed_steps"`
}

// IsCompleted reports whether the step index passed validation before.
func (p WizardProgress) IsCompleted(step int) bool {
	for _, s := range p.CompletedSteps {
		if s == step {
			return true
		}
	}
	return false
}

// MarkCompleted records a step as completed, once.
func (p *WizardProgress) MarkCompleted(step int) {
	if p.IsCompleted(step) {
		return
	}
	p.CompletedSteps = append(p.CompletedSteps, step)
}

// FirstIncomplete returns the smallest step index not yet completed, or
// stepCount if everything is done.
func (p WizardProgress) FirstIncomplete(stepCount int) int {
	for i := 0; i < stepCount; i++ {
		if !p.IsCompleted(i) {
			return i
		}
	}
	return stepCount
}

// WizardSession is the full durable state of one wizard: collected answers,
// step progress, and the flags that steer resume behavior.
type WizardSession struct {
	AccountID string         `json:"account_id"`
	Variant   WizardVariant  `json:"variant"`
	Answers   FormAnswers    `json:"answers"`
	Progress  WizardProgress `json:"progress"`
	// ManualRestart is set when the user explicitly returns to step 0; it
	// suppresses the resume scan exactly once, on the next load.
	ManualRestart bool      `json:"manual_restart,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the session. The manager hands copies to
// callers so reads never touch the live session outside its lock.
func (s *WizardSession) Clone() *WizardSession {
	out := *s
	out.Answers = s.Answers.Clone()
	if s.Progress.CompletedSteps != nil {
		out.Progress.CompletedSteps = append([]int(nil), s.Progress.CompletedSteps...)
	}
	return &out
}

// SetAnswersRequest is the payload for PUT /wizard/{variant}/answers.
type SetAnswersRequest struct {
	Fields map[string]AnswerValue `json:"fields"`
}

// Validate checks that the request carries at least one field.
func (r *SetAnswersRequest) Validate() error {
	if len(r.Fields) == 0 {
		return ErrNoFields
	}
	return nil
}

// GoToStepRequest is the payload for POST /wizard/{variant}/goto.
type GoToStepRequest struct {
	Step int `json:"step"`
}

// WizardStateResponse is the view of a session returned to the client.
type WizardStateResponse struct {
	Variant   WizardVariant  `json:"variant"`
	Phase     WizardPhase    `json:"phase"`
	Steps     []StepInfo     `json:"steps"`
	Answers   FormAnswers    `json:"answers"`
	Progress  WizardProgress `json:"progress"`
	Connected int            `json:"connected_platforms"`
}

// StepInfo describes one step of the active step table for rendering.
type StepInfo struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Completed  bool   `json:"completed"`
	Navigable  bool   `json:"navigable"`
	HasData    bool   `json:"has_data"`
	IsTerminal bool   `json:"is_terminal"`
}
