package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/SafePath-UK/SafePath/internal/models"
	"github.com/SafePath-UK/SafePath/internal/util"
)

// turnResponse is the payload returned for every conversation turn.
type turnResponse struct {
	SessionID    string   `json:"session_id"`
	Body         string   `json:"body"`
	Options      []string `json:"options,omitempty"`
	SessionEnded bool     `json:"session_ended"`
}

// createSessionHandler handles POST /sessions: it opens a session and
// returns the opening prompt.
func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("createSessionHandler invoked", "method", r.Method, "path", r.URL.Path)

	id := util.GenerateSessionID()
	state := models.NewSessionState(id, time.Now().UTC())

	result := s.engine.ProcessTurn(r.Context(), state, "")
	state = result.Patch.Apply(state)

	if err := s.st.SaveSession(state); err != nil {
		slog.Error("createSessionHandler save failed", "error", err, "session", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to create session"))
		return
	}

	slog.Info("createSessionHandler session opened", "session", id)
	writeJSONResponse(w, http.StatusCreated, models.Success(models.SessionCreateResponse{
		SessionID: id,
		Body:      result.Body,
		Options:   result.Options,
	}))
}

// postMessageHandler handles POST /sessions/{id}/messages: one turn of
// the triage conversation. Turns for the same session are serialized.
func (s *Server) postMessageHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	slog.Debug("postMessageHandler invoked", "session", id)

	if err := validateSessionID(id); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	var req models.MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("postMessageHandler invalid JSON", "error", err, "session", id)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("postMessageHandler validation failed", "error", err, "session", id)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	unlock := s.lockSession(id)
	defer unlock()

	state, err := s.st.GetSession(id)
	if errors.Is(err, models.ErrSessionNotFound) {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}
	if err != nil {
		slog.Error("postMessageHandler load failed", "error", err, "session", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load session"))
		return
	}

	// The raw message log is best-effort; a full log must not block the
	// conversation.
	if err := s.st.AddResponse(models.Response{From: id, Body: req.Body, Time: time.Now().Unix()}); err != nil {
		slog.Warn("postMessageHandler message log failed", "error", err, "session", id)
	}

	result := s.engine.ProcessTurn(r.Context(), state, req.Body)
	state = result.Patch.Apply(state)

	if err := s.st.SaveSession(state); err != nil {
		slog.Error("postMessageHandler save failed", "error", err, "session", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save session"))
		return
	}

	writeJSONResponse(w, http.StatusOK, models.Success(turnResponse{
		SessionID:    id,
		Body:         result.Body,
		Options:      result.Options,
		SessionEnded: result.SessionEnded,
	}))
}

// getSessionHandler handles GET /sessions/{id}.
func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := validateSessionID(id); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	state, err := s.st.GetSession(id)
	if errors.Is(err, models.ErrSessionNotFound) {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}
	if err != nil {
		slog.Error("getSessionHandler load failed", "error", err, "session", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load session"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(state))
}

// deleteSessionHandler handles DELETE /sessions/{id}.
func (s *Server) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := validateSessionID(id); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	if err := s.st.DeleteSession(id); err != nil {
		slog.Error("deleteSessionHandler failed", "error", err, "session", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to delete session"))
		return
	}
	slog.Info("deleteSessionHandler session deleted", "session", id)
	writeJSONResponse(w, http.StatusOK, models.Success(nil))
}

// listServicesHandler handles GET /services?local_authority=X.
func (s *Server) listServicesHandler(w http.ResponseWriter, r *http.Request) {
	localAuthority := r.URL.Query().Get("local_authority")
	services, err := s.st.ListServices(localAuthority)
	if err != nil {
		slog.Error("listServicesHandler failed", "error", err, "localAuthority", localAuthority)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list services"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(services))
}

// addServiceHandler handles POST /services: adds one directory entry.
func (s *Server) addServiceHandler(w http.ResponseWriter, r *http.Request) {
	var svc models.Service
	if err := json.NewDecoder(r.Body).Decode(&svc); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if svc.Name == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Service name is required"))
		return
	}

	id, err := s.st.AddService(svc)
	if err != nil {
		slog.Error("addServiceHandler failed", "error", err, "name", svc.Name)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to add service"))
		return
	}
	svc.ID = id
	slog.Info("addServiceHandler service added", "id", id, "name", svc.Name)
	writeJSONResponse(w, http.StatusCreated, models.Success(svc))
}

// healthHandler handles GET /health.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"status": "healthy"}))
}

func validateSessionID(id string) error {
	if id == "" {
		return models.ErrEmptySessionID
	}
	if len(id) > models.MaxSessionIDLength {
		return models.ErrSessionIDTooLong
	}
	return nil
}
