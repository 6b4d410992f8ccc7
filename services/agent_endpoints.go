package services

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lexflow/backend/models"
	"github.com/lexflow/backend/repository"
)

type AgentEndpoints struct {
	repo *repository.GORMRepository
}

type CreateAgentRequest struct {
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Role           string  `json:"role"`
	Provider       string  `json:"provider"`
	Model          string  `json:"model"`
	PromptTemplate string  `json:"prompt_template"`
	Temperature    float64 `json:"temperature"`
	UseRetrieval   *bool   `json:"use_retrieval"`
	IsPublic       bool    `json:"is_public"`
}

type GetAgentsResponse struct {
	Agents []models.Agent `json:"agents"`
	Count  int            `json:"count"`
}

func NewAgentEndpoints(repo *repository.GORMRepository) *AgentEndpoints {
	return &AgentEndpoints{
		repo: repo,
	}
}

func (e *AgentEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/agents", func(r chi.Router) {
		r.Post("/", e.CreateAgentHandler)
		r.Get("/", e.GetAgentsHandler)
		r.Get("/{id}", e.GetAgentHandler)
		r.Put("/{id}", e.UpdateAgentHandler)
		r.Delete("/{id}", e.DeleteAgentHandler)
	})
}

func (req *CreateAgentRequest) validate() error {
	if req.Name == "" {
		return NewValidationError("name is required")
	}
	switch req.Role {
	case models.AgentRoleActor, models.AgentRoleCritic, models.AgentRoleQA:
	default:
		return NewValidationError("role must be one of: actor, critic, qa")
	}
	switch req.Provider {
	case models.ProviderGemini, models.ProviderOllama:
	default:
		return NewValidationError("provider must be one of: gemini, ollama")
	}
	if req.Model == "" {
		return NewValidationError("model is required")
	}
	if req.PromptTemplate == "" {
		return NewValidationError("prompt_template is required")
	}
	if req.Temperature < 0 || req.Temperature > 2 {
		return NewValidationError("temperature must be between 0 and 2")
	}
	return nil
}

func (e *AgentEndpoints) CreateAgentHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	var req CreateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := req.validate(); err != nil {
		WriteError(w, err)
		return
	}

	useRetrieval := true
	if req.UseRetrieval != nil {
		useRetrieval = *req.UseRetrieval
	}

	agent := models.Agent{
		ID:             uuid.New().String(),
		UserID:         &user.ID,
		Name:           req.Name,
		Description:    req.Description,
		Role:           req.Role,
		Provider:       req.Provider,
		Model:          req.Model,
		PromptTemplate: req.PromptTemplate,
		Temperature:    req.Temperature,
		UseRetrieval:   useRetrieval,
		IsPublic:       req.IsPublic,
		IsActive:       true,
	}

	if err := e.repo.CreateAgent(r.Context(), &agent); err != nil {
		slog.Error("Failed to create agent", "error", err, "user_id", user.ID)
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"agent":   agent,
		"message": "Agent created successfully",
	})

	slog.Info("Agent created", "agent_id", agent.ID, "user_id", user.ID, "name", agent.Name)
}

func (e *AgentEndpoints) GetAgentsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	// Public agents plus the user's private ones
	agents, err := e.repo.GetAgents(r.Context(), user.ID, true)
	if err != nil {
		slog.Error("Failed to get agents", "error", err, "user_id", user.ID)
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(GetAgentsResponse{
		Agents: agents,
		Count:  len(agents),
	})
}

func (e *AgentEndpoints) GetAgentHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	agentID := chi.URLParam(r, "id")

	agent, err := e.repo.GetAgentByID(r.Context(), agentID, user.ID)
	if err != nil {
		slog.Error("Failed to get agent", "error", err, "agent_id", agentID, "user_id", user.ID)
		WriteError(w, err)
		return
	}
	if agent == nil {
		WriteError(w, NewNotFoundError("agent", agentID))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"agent": agent,
	})
}

func (e *AgentEndpoints) UpdateAgentHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	agentID := chi.URLParam(r, "id")

	agent, err := e.repo.GetAgentByID(r.Context(), agentID, user.ID)
	if err != nil {
		slog.Error("Failed to get agent for update", "error", err, "agent_id", agentID, "user_id", user.ID)
		WriteError(w, err)
		return
	}
	if agent == nil {
		WriteError(w, NewNotFoundError("agent", agentID))
		return
	}

	if agent.UserID == nil || *agent.UserID != user.ID {
		http.Error(w, "Not authorized to update this agent", http.StatusForbidden)
		return
	}

	var req CreateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := req.validate(); err != nil {
		WriteError(w, err)
		return
	}

	agent.Name = req.Name
	agent.Description = req.Description
	agent.Role = req.Role
	agent.Provider = req.Provider
	agent.Model = req.Model
	agent.PromptTemplate = req.PromptTemplate
	agent.Temperature = req.Temperature
	if req.UseRetrieval != nil {
		agent.UseRetrieval = *req.UseRetrieval
	}
	agent.IsPublic = req.IsPublic

	if err := e.repo.UpdateAgent(r.Context(), agent); err != nil {
		slog.Error("Failed to update agent", "error", err, "agent_id", agentID, "user_id", user.ID)
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"agent":   agent,
		"message": "Agent updated successfully",
	})

	slog.Info("Agent updated", "agent_id", agentID, "user_id", user.ID)
}

func (e *AgentEndpoints) DeleteAgentHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "User not found in context", http.StatusInternalServerError)
		return
	}

	agentID := chi.URLParam(r, "id")

	agent, err := e.repo.GetAgentByID(r.Context(), agentID, user.ID)
	if err != nil {
		slog.Error("Failed to get agent for deletion", "error", err, "agent_id", agentID, "user_id", user.ID)
		WriteError(w, err)
		return
	}
	if agent == nil {
		WriteError(w, NewNotFoundError("agent", agentID))
		return
	}

	if agent.UserID == nil || *agent.UserID != user.ID {
		http.Error(w, "Not authorized to delete this agent", http.StatusForbidden)
		return
	}

	if err := e.repo.DeleteAgent(r.Context(), agentID); err != nil {
		slog.Error("Failed to delete agent", "error", err, "agent_id", agentID, "user_id", user.ID)
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message": "Agent deleted successfully",
	})

	slog.Info("Agent deleted", "agent_id", agentID, "user_id", user.ID)
}
