package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/getemily/emily-api/internal/auth"
	"github.com/getemily/emily-api/internal/models"
	"github.com/getemily/emily-api/internal/util"
)

// campaignsHandler handles GET and POST /campaigns.
func (s *Server) campaignsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.campaignsHandler: processing campaigns request", "method", r.Method, "path", r.URL.Path)

	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing account identity")
		return
	}

	switch r.Method {
	case http.MethodGet:
		campaigns, err := s.st.GetCampaigns(accountID)
		if err != nil {
			slog.Error("Server.campaignsHandler: failed to list campaigns", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to list campaigns")
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(campaigns))
	case http.MethodPost:
		var c models.Campaign
		if !decodeJSONBody(w, r, "campaignsHandler", &c) {
			return
		}
		if err := c.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		now := time.Now()
		c.ID = util.GenerateCampaignID()
		c.AccountID = accountID
		if c.Status == "" {
			c.Status = models.ContentStatusDraft
		}
		c.CreatedAt = now
		c.UpdatedAt = now
		if err := s.st.SaveCampaign(c); err != nil {
			slog.Error("Server.campaignsHandler: failed to save campaign", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to save campaign")
			return
		}
		slog.Info("Server.campaignsHandler: campaign created", "accountID", accountID, "campaignID", c.ID)
		writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Campaign created", c))
	default:
		w.Header().Set("Allow", "GET, POST")
		slog.Warn("Server.campaignsHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// postsHandler handles GET and POST /posts.
func (s *Server) postsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.postsHandler: processing posts request", "method", r.Method, "path", r.URL.Path)

	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing account identity")
		return
	}

	switch r.Method {
	case http.MethodGet:
		posts, err := s.st.GetPosts(accountID)
		if err != nil {
			slog.Error("Server.postsHandler: failed to list posts", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to list posts")
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(posts))
	case http.MethodPost:
		var p models.Post
		if !decodeJSONBody(w, r, "postsHandler", &p) {
			return
		}
		p.Platform = models.NormalizePlatform(string(p.Platform))
		if err := p.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		now := time.Now()
		p.ID = util.GeneratePostID()
		p.AccountID = accountID
		if p.Status == "" {
			p.Status = models.ContentStatusDraft
		}
		p.CreatedAt = now
		p.UpdatedAt = now
		if err := s.st.SavePost(p); err != nil {
			slog.Error("Server.postsHandler: failed to save post", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to save post")
			return
		}
		slog.Info("Server.postsHandler: post created", "accountID", accountID, "postID", p.ID, "platform", p.Platform)
		writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Post created", p))
	default:
		w.Header().Set("Allow", "GET, POST")
		slog.Warn("Server.postsHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// templatesHandler handles GET and POST /templates.
func (s *Server) templatesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.templatesHandler: processing templates request", "method", r.Method, "path", r.URL.Path)

	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing account identity")
		return
	}

	switch r.Method {
	case http.MethodGet:
		templates, err := s.st.GetTemplates(accountID)
		if err != nil {
			slog.Error("Server.templatesHandler: failed to list templates", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to list templates")
			return
		}
		writeJSONResponse(w, http.StatusOK, models.Success(templates))
	case http.MethodPost:
		var t models.Template
		if !decodeJSONBody(w, r, "templatesHandler", &t) {
			return
		}
		if err := t.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		now := time.Now()
		t.ID = util.GenerateTemplateID()
		t.AccountID = accountID
		t.CreatedAt = now
		t.UpdatedAt = now
		if err := s.st.SaveTemplate(t); err != nil {
			slog.Error("Server.templatesHandler: failed to save template", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to save template")
			return
		}
		slog.Info("Server.templatesHandler: template created", "accountID", accountID, "templateID", t.ID)
		writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Template created", t))
	default:
		w.Header().Set("Allow", "GET, POST")
		slog.Warn("Server.templatesHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// imagePreferencesHandler handles GET and PUT /image-preferences.
func (s *Server) imagePreferencesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.imagePreferencesHandler: processing request", "method", r.Method, "path", r.URL.Path)

	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing account identity")
		return
	}

	switch r.Method {
	case http.MethodGet:
		pref, err := s.st.GetImagePreference(accountID)
		if err != nil {
			slog.Error("Server.imagePreferencesHandler: failed to fetch preference", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to fetch image preferences")
			return
		}
		if pref == nil {
			pref = &models.ImagePreference{AccountID: accountID}
		}
		writeJSONResponse(w, http.StatusOK, models.Success(pref))
	case http.MethodPut:
		var pref models.ImagePreference
		if !decodeJSONBody(w, r, "imagePreferencesHandler", &pref) {
			return
		}
		pref.AccountID = accountID
		pref.UpdatedAt = time.Now()
		if err := s.st.SaveImagePreference(pref); err != nil {
			slog.Error("Server.imagePreferencesHandler: failed to save preference", "error", err)
			writeError(w, http.StatusInternalServerError, "Failed to save image preferences")
			return
		}
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Image preferences saved", pref))
	default:
		w.Header().Set("Allow", "GET, PUT")
		slog.Warn("Server.imagePreferencesHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// generateContentHandler handles POST /content/generate.
func (s *Server) generateContentHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.generateContentHandler: processing generation request", "method", r.Method)

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.generateContentHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing account identity")
		return
	}
	if s.generator == nil {
		writeError(w, http.StatusServiceUnavailable, "Content generation is not configured")
		return
	}

	var req models.GenerateContentRequest
	if !decodeJSONBody(w, r, "generateContentHandler", &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := s.st.GetProfile(accountID)
	if err != nil {
		slog.Error("Server.generateContentHandler: failed to fetch profile", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch business profile")
		return
	}

	content, err := s.generator.Generate(r.Context(), profile, req)
	if err != nil {
		slog.Error("Server.generateContentHandler: generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate content")
		return
	}
	slog.Info("Server.generateContentHandler: content generated", "accountID", accountID, "platform", req.Platform)
	writeJSONResponse(w, http.StatusOK, models.Success(content))
}

// trialHandler handles GET /trial.
func (s *Server) trialHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.trialHandler: processing trial request", "method", r.Method)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.trialHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing account identity")
		return
	}
	trial, err := s.submitter.Trial(accountID)
	if err != nil {
		if errors.Is(err, models.ErrProfileNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		slog.Error("Server.trialHandler: failed to compute trial status", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch trial status")
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(trial))
}
