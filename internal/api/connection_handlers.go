package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/getemily/emily-api/internal/auth"
	"github.com/getemily/emily-api/internal/connections"
	"github.com/getemily/emily-api/internal/models"
)

// listConnectionsHandler handles GET /connections.
func (s *Server) listConnectionsHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.listConnectionsHandler: processing connections request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		slog.Warn("Server.listConnectionsHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing account identity")
		return
	}
	statuses, err := s.conns.List(accountID)
	if err != nil {
		slog.Error("Server.listConnectionsHandler: failed to list connections", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list connections")
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(statuses))
}

// connectionsHandler routes the /connections/ subtree: token and WordPress
// connects, OAuth start and polling, Google status, and disconnects.
func (s *Server) connectionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.connectionsHandler: processing connection request", "method", r.Method, "path", r.URL.Path)

	accountID, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Missing account identity")
		return
	}

	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/connections/"), "/")
	parts := strings.Split(rest, "/")

	switch {
	case rest == "token":
		s.connectTokenHandler(w, r, accountID)
	case rest == "wordpress":
		s.connectWordPressHandler(w, r, accountID)
	case rest == "google/status":
		s.googleStatusHandler(w, r, accountID)
	case len(parts) == 3 && parts[0] == "oauth" && parts[2] == "start":
		s.oauthStartHandler(w, r, accountID, parts[1])
	case len(parts) == 3 && parts[0] == "oauth" && parts[1] == "pending":
		s.oauthPendingHandler(w, r, parts[2])
	case len(parts) == 1 && parts[0] != "":
		s.disconnectHandler(w, r, accountID, parts[0])
	default:
		writeError(w, http.StatusNotFound, "Unknown connections operation")
	}
}

func (s *Server) connectTokenHandler(w http.ResponseWriter, r *http.Request, accountID string) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.TokenConnectionRequest
	if !decodeJSONBody(w, r, "connectTokenHandler", &req) {
		return
	}
	rec, err := s.conns.ConnectToken(accountID, req)
	if err != nil {
		s.writeConnectionError(w, "connectTokenHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Connection created", rec))
}

func (s *Server) connectWordPressHandler(w http.ResponseWriter, r *http.Request, accountID string) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.WordPressConnectionRequest
	if !decodeJSONBody(w, r, "connectWordPressHandler", &req) {
		return
	}
	rec, err := s.conns.ConnectWordPress(accountID, req)
	if err != nil {
		s.writeConnectionError(w, "connectWordPressHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("WordPress site connected", rec))
}

func (s *Server) disconnectHandler(w http.ResponseWriter, r *http.Request, accountID, platform string) {
	if r.Method != http.MethodDelete {
		w.Header().Set("Allow", http.MethodDelete)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	confirmed := r.URL.Query().Get("confirm") == "true"
	if err := s.conns.Disconnect(accountID, platform, confirmed); err != nil {
		s.writeConnectionError(w, "disconnectHandler", err)
		return
	}
	slog.Info("Server.disconnectHandler: platform disconnected", "accountID", accountID, "platform", platform)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Platform disconnected", nil))
}

func (s *Server) oauthStartHandler(w http.ResponseWriter, r *http.Request, accountID, platform string) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	start, err := s.conns.BeginOAuth(accountID, platform)
	if err != nil {
		s.writeConnectionError(w, "oauthStartHandler", err)
		return
	}
	slog.Info("Server.oauthStartHandler: authorization started", "accountID", accountID, "platform", platform, "state", start.State)
	writeJSONResponse(w, http.StatusCreated, models.Success(start))
}

// oauthCallbackHandler receives completion signals from the OAuth gateway.
// No bearer token; the service checks the request's Origin header instead.
func (s *Server) oauthCallbackHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.oauthCallbackHandler: processing callback", "method", r.Method)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload connections.OAuthCallbackPayload
	if !decodeJSONBody(w, r, "oauthCallbackHandler", &payload) {
		return
	}
	if err := s.conns.CompleteOAuth(r.Header.Get("Origin"), payload); err != nil {
		if errors.Is(err, models.ErrPendingAuthNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		slog.Error("Server.oauthCallbackHandler: completion failed", "error", err, "state", payload.State)
		writeError(w, http.StatusForbidden, "Callback rejected")
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Authorization recorded", nil))
}

func (s *Server) oauthPendingHandler(w http.ResponseWriter, r *http.Request, state string) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	pa, err := s.conns.PendingOAuth(state)
	if err != nil {
		s.writeConnectionError(w, "oauthPendingHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(pa))
}

func (s *Server) googleStatusHandler(w http.ResponseWriter, r *http.Request, accountID string) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	status, err := s.conns.GoogleStatus(accountID)
	if err != nil {
		slog.Error("Server.googleStatusHandler: failed to check Google status", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to check Google connection")
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(status))
}

// writeConnectionError maps connection domain errors onto HTTP status codes.
func (s *Server) writeConnectionError(w http.ResponseWriter, handler string, err error) {
	switch {
	case errors.Is(err, models.ErrUnknownPlatform), errors.Is(err, models.ErrConnectionNotFound), errors.Is(err, models.ErrPendingAuthNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrEmptyPlatform), errors.Is(err, models.ErrEmptyAccessToken),
		errors.Is(err, models.ErrEmptySiteURL), errors.Is(err, models.ErrInvalidSiteURL),
		errors.Is(err, models.ErrEmptyUsername), errors.Is(err, models.ErrConfirmRequired),
		errors.Is(err, connections.ErrAuthKindUnsupported):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("Server."+handler+": request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
