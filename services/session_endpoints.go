package services

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lexflow/backend/repository"
)

type SessionEndpoints struct {
	repo       *repository.GORMRepository
	generation *GenerationService
}

type StartRunRequest struct {
	AgentSetID        string `json:"agent_set_id"`
	DocumentVersionID string `json:"document_version_id"`
}

func NewSessionEndpoints(repo *repository.GORMRepository, generation *GenerationService) *SessionEndpoints {
	return &SessionEndpoints{
		repo:       repo,
		generation: generation,
	}
}

func (e *SessionEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", e.StartRunHandler)
		r.Get("/", e.GetSessionsHandler)
		r.Get("/{id}", e.GetSessionHandler)
		r.Post("/{id}/cancel", e.CancelSessionHandler)
	})
}

func (e *SessionEndpoints) StartRunHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	var req StartRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.AgentSetID == "" || req.DocumentVersionID == "" {
		WriteError(w, NewValidationError("agent_set_id and document_version_id are required"))
		return
	}

	session, err := e.generation.StartRun(r.Context(), user, req.AgentSetID, req.DocumentVersionID)
	if err != nil {
		slog.Error("Failed to start run", "error", err, "user_id", user.ID, "agent_set_id", req.AgentSetID)
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"session": session,
		"message": "Run started",
	})

	slog.Info("Run started", "session_id", session.ID, "user_id", user.ID)
}

func (e *SessionEndpoints) GetSessionsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	sessions, err := e.repo.GetAgentSessions(r.Context(), user.ID)
	if err != nil {
		slog.Error("Failed to get sessions", "error", err, "user_id", user.ID)
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

func (e *SessionEndpoints) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	sessionID := chi.URLParam(r, "id")

	session, err := e.repo.GetAgentSessionWithDetails(r.Context(), sessionID, user.ID)
	if err != nil {
		slog.Error("Failed to get session", "error", err, "session_id", sessionID, "user_id", user.ID)
		WriteError(w, err)
		return
	}
	if session == nil {
		WriteError(w, NewNotFoundError("session", sessionID))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"session": session,
	})
}

func (e *SessionEndpoints) CancelSessionHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	sessionID := chi.URLParam(r, "id")

	if err := e.generation.Cancel(r.Context(), user.ID, sessionID); err != nil {
		slog.Error("Failed to cancel session", "error", err, "session_id", sessionID, "user_id", user.ID)
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Session cancellation requested",
	})

	slog.Info("Session cancellation requested", "session_id", sessionID, "user_id", user.ID)
}
