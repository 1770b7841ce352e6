package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/getemily/emily-api/internal/auth"
	"github.com/getemily/emily-api/internal/models"
	"github.com/getemily/emily-api/internal/wizard"
)

// wizardHandler routes /wizard/{variant} and /wizard/{variant}/{op}.
func (s *Server) wizardHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.wizardHandler: processing wizard request", "method", r.Method, "path", r.URL.Path)

	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing account identity")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/wizard/")
	parts := strings.SplitN(strings.Trim(rest, "/"), "/", 2)
	if parts[0] == "" {
		writeError(w, http.StatusNotFound, "Missing wizard variant")
		return
	}
	variant := models.WizardVariant(parts[0])
	op := ""
	if len(parts) == 2 {
		op = parts[1]
	}

	switch op {
	case "":
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.wizardStateHandler(w, accountID, variant)
	case "answers":
		if r.Method != http.MethodPut {
			w.Header().Set("Allow", http.MethodPut)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.wizardAnswersHandler(w, r, accountID, variant)
	case "advance", "retreat", "goto", "restart", "submit", "complete":
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.wizardActionHandler(w, r, accountID, variant, op)
	default:
		writeError(w, http.StatusNotFound, "Unknown wizard operation")
	}
}

func (s *Server) wizardStateHandler(w http.ResponseWriter, accountID string, variant models.WizardVariant) {
	sess, def, err := s.manager.Open(accountID, variant)
	if err != nil {
		s.writeWizardError(w, "wizardStateHandler", err)
		return
	}
	s.writeWizardState(w, accountID, sess, def)
}

func (s *Server) wizardAnswersHandler(w http.ResponseWriter, r *http.Request, accountID string, variant models.WizardVariant) {
	var req models.SetAnswersRequest
	if !decodeJSONBody(w, r, "wizardAnswersHandler", &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := s.manager.SetAnswers(accountID, variant, req.Fields)
	if err != nil {
		s.writeWizardError(w, "wizardAnswersHandler", err)
		return
	}
	def, _ := wizard.Lookup(variant)
	s.writeWizardState(w, accountID, sess, def)
}

func (s *Server) wizardActionHandler(w http.ResponseWriter, r *http.Request, accountID string, variant models.WizardVariant, op string) {
	var (
		sess *models.WizardSession
		err  error
	)
	switch op {
	case "advance":
		sess, err = s.manager.Advance(accountID, variant)
	case "retreat":
		sess, err = s.manager.Retreat(accountID, variant)
	case "goto":
		var req models.GoToStepRequest
		if !decodeJSONBody(w, r, "wizardActionHandler", &req) {
			return
		}
		sess, err = s.manager.GoTo(accountID, variant, req.Step)
	case "restart":
		sess, err = s.manager.Restart(accountID, variant)
	case "submit":
		profile, submitErr := s.submitter.Submit(accountID, variant)
		if submitErr != nil {
			s.writeWizardError(w, "wizardActionHandler", submitErr)
			return
		}
		slog.Info("Server.wizardActionHandler: wizard submitted", "accountID", accountID, "variant", variant)
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Profile created", profile))
		return
	case "complete":
		connected, countErr := s.conns.ConnectedCount(accountID)
		if countErr != nil {
			writeError(w, http.StatusInternalServerError, "Failed to count connections")
			return
		}
		profile, completeErr := s.submitter.CompleteConnections(accountID, variant, connected)
		if completeErr != nil {
			s.writeWizardError(w, "wizardActionHandler", completeErr)
			return
		}
		slog.Info("Server.wizardActionHandler: onboarding completed", "accountID", accountID, "variant", variant)
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Onboarding completed", profile))
		return
	}
	if err != nil {
		s.writeWizardError(w, "wizardActionHandler", err)
		return
	}
	def, _ := wizard.Lookup(variant)
	s.writeWizardState(w, accountID, sess, def)
}

func (s *Server) writeWizardState(w http.ResponseWriter, accountID string, sess *models.WizardSession, def *wizard.Definition) {
	phase, err := s.submitter.Phase(accountID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to determine wizard phase")
		return
	}
	connected, err := s.conns.ConnectedCount(accountID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count connections")
		return
	}
	seq := wizard.NewSequencer(def, sess)
	writeJSONResponse(w, http.StatusOK, models.Success(models.WizardStateResponse{
		Variant:   sess.Variant,
		Phase:     phase,
		Steps:     seq.StepInfos(),
		Answers:   sess.Answers,
		Progress:  sess.Progress,
		Connected: connected,
	}))
}

// writeWizardError maps wizard domain errors onto HTTP status codes.
func (s *Server) writeWizardError(w http.ResponseWriter, handler string, err error) {
	switch {
	case errors.Is(err, models.ErrUnknownVariant):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrUnknownField), errors.Is(err, models.ErrNoFields), errors.Is(err, models.ErrStepOutOfRange):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrValidationFailed):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, models.ErrStepLocked), errors.Is(err, models.ErrStepsIncomplete), errors.Is(err, models.ErrNoConnections):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrProfileNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		slog.Error("Server."+handler+": request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
