package services

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lexflow/backend/models"
	"github.com/lexflow/backend/repository"
)

type AgentSetEndpoints struct {
	repo *repository.GORMRepository
}

type StageRequest struct {
	Name     string   `json:"name"`
	Mode     string   `json:"mode"`
	AgentIDs []string `json:"agent_ids"`
}

type CreateAgentSetRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	IsPublic    bool           `json:"is_public"`
	Stages      []StageRequest `json:"stages"`
}

func NewAgentSetEndpoints(repo *repository.GORMRepository) *AgentSetEndpoints {
	return &AgentSetEndpoints{
		repo: repo,
	}
}

func (e *AgentSetEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/agent-sets", func(r chi.Router) {
		r.Post("/", e.CreateAgentSetHandler)
		r.Get("/", e.GetAgentSetsHandler)
		r.Get("/{id}", e.GetAgentSetHandler)
		r.Put("/{id}", e.UpdateAgentSetHandler)
		r.Delete("/{id}", e.DeleteAgentSetHandler)
	})
}

func (req *CreateAgentSetRequest) validate() error {
	if req.Name == "" {
		return NewValidationError("name is required")
	}
	if len(req.Stages) == 0 {
		return NewValidationError("at least one stage is required")
	}
	for _, stage := range req.Stages {
		switch stage.Mode {
		case models.ModeSequential, models.ModeParallel, models.ModeBatched:
		default:
			return NewValidationError("stage mode must be one of: sequential, parallel, batched")
		}
		if len(stage.AgentIDs) == 0 {
			return NewValidationError("every stage needs at least one agent")
		}
	}
	return nil
}

// buildStages resolves stage agent IDs against the repository and produces
// ordered stage records. Agents that are unknown, inactive or not visible to
// the user are rejected.
func (e *AgentSetEndpoints) buildStages(r *http.Request, userID, setID string, stages []StageRequest) ([]models.AgentSetStage, error) {
	var out []models.AgentSetStage
	for i, stageReq := range stages {
		ids := uniqueIDs(stageReq.AgentIDs)
		agents, err := e.repo.GetAgentsByIDs(r.Context(), ids, userID)
		if err != nil {
			return nil, err
		}
		if len(agents) != len(ids) {
			return nil, NewValidationError("one or more stage agents do not exist")
		}
		for _, agent := range agents {
			if !agent.IsActive {
				return nil, NewValidationError("agent " + agent.Name + " is inactive")
			}
		}

		name := stageReq.Name
		if name == "" {
			name = fmt.Sprintf("Stage %d", i+1)
		}

		out = append(out, models.AgentSetStage{
			ID:         uuid.New().String(),
			AgentSetID: setID,
			Name:       name,
			Position:   i,
			Mode:       stageReq.Mode,
			Agents:     agents,
		})
	}
	return out, nil
}

// uniqueIDs drops repeats while keeping order, so the resolved-agent count
// can be compared against the requested set.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func (e *AgentSetEndpoints) CreateAgentSetHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	var req CreateAgentSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := req.validate(); err != nil {
		WriteError(w, err)
		return
	}

	set := models.AgentSet{
		ID:          uuid.New().String(),
		UserID:      &user.ID,
		Name:        req.Name,
		Description: req.Description,
		IsPublic:    req.IsPublic,
		IsActive:    true,
	}

	stages, err := e.buildStages(r, user.ID, set.ID, req.Stages)
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := e.repo.CreateAgentSet(r.Context(), &set); err != nil {
		slog.Error("Failed to create agent set", "error", err, "user_id", user.ID)
		WriteError(w, err)
		return
	}

	if err := e.repo.ReplaceAgentSetStages(r.Context(), set.ID, stages); err != nil {
		slog.Error("Failed to create agent set stages", "error", err, "set_id", set.ID)
		WriteError(w, err)
		return
	}

	created, err := e.repo.GetAgentSetWithStages(r.Context(), set.ID, user.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"agent_set": created,
		"message":   "Agent set created successfully",
	})

	slog.Info("Agent set created", "set_id", set.ID, "user_id", user.ID, "stages", len(stages))
}

func (e *AgentSetEndpoints) GetAgentSetsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	sets, err := e.repo.GetAgentSets(r.Context(), user.ID)
	if err != nil {
		slog.Error("Failed to get agent sets", "error", err, "user_id", user.ID)
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"agent_sets": sets,
		"count":      len(sets),
	})
}

func (e *AgentSetEndpoints) GetAgentSetHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	setID := chi.URLParam(r, "id")

	set, err := e.repo.GetAgentSetWithStages(r.Context(), setID, user.ID)
	if err != nil {
		slog.Error("Failed to get agent set", "error", err, "set_id", setID, "user_id", user.ID)
		WriteError(w, err)
		return
	}
	if set == nil {
		WriteError(w, NewNotFoundError("agent set", setID))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"agent_set": set,
	})
}

func (e *AgentSetEndpoints) UpdateAgentSetHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	setID := chi.URLParam(r, "id")

	set, err := e.repo.GetAgentSetWithStages(r.Context(), setID, user.ID)
	if err != nil {
		WriteError(w, err)
		return
	}
	if set == nil {
		WriteError(w, NewNotFoundError("agent set", setID))
		return
	}

	if set.UserID == nil || *set.UserID != user.ID {
		http.Error(w, "Not authorized to update this agent set", http.StatusForbidden)
		return
	}

	var req CreateAgentSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := req.validate(); err != nil {
		WriteError(w, err)
		return
	}

	set.Name = req.Name
	set.Description = req.Description
	set.IsPublic = req.IsPublic

	stages, err := e.buildStages(r, user.ID, set.ID, req.Stages)
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := e.repo.UpdateAgentSet(r.Context(), set); err != nil {
		slog.Error("Failed to update agent set", "error", err, "set_id", setID)
		WriteError(w, err)
		return
	}

	if err := e.repo.ReplaceAgentSetStages(r.Context(), set.ID, stages); err != nil {
		slog.Error("Failed to replace agent set stages", "error", err, "set_id", setID)
		WriteError(w, err)
		return
	}

	updated, err := e.repo.GetAgentSetWithStages(r.Context(), setID, user.ID)
	if err != nil {
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"agent_set": updated,
		"message":   "Agent set updated successfully",
	})

	slog.Info("Agent set updated", "set_id", setID, "user_id", user.ID)
}

func (e *AgentSetEndpoints) DeleteAgentSetHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	setID := chi.URLParam(r, "id")

	set, err := e.repo.GetAgentSetWithStages(r.Context(), setID, user.ID)
	if err != nil {
		WriteError(w, err)
		return
	}
	if set == nil {
		WriteError(w, NewNotFoundError("agent set", setID))
		return
	}

	if set.UserID == nil || *set.UserID != user.ID {
		http.Error(w, "Not authorized to delete this agent set", http.StatusForbidden)
		return
	}

	if err := e.repo.DeleteAgentSet(r.Context(), setID); err != nil {
		slog.Error("Failed to delete agent set", "error", err, "set_id", setID)
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Agent set deleted successfully",
	})

	slog.Info("Agent set deleted", "set_id", setID, "user_id", user.ID)
}
