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

// ProfileEndpoints manages model profiles: the timeout, token and chunking
// envelope applied when a given provider/model pair runs pipeline work.
type ProfileEndpoints struct {
	repo *repository.GORMRepository
}

type ModelProfileRequest struct {
	Provider       string `json:"provider"`
	Model          string `json:"model"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	MaxTokens      int    `json:"max_tokens"`
	ContextWindow  int    `json:"context_window"`
	ChunkStrategy  string `json:"chunk_strategy"`
	ChunkWindow    int    `json:"chunk_window"`
	BatchSize      int    `json:"batch_size"`
}

func NewProfileEndpoints(repo *repository.GORMRepository) *ProfileEndpoints {
	return &ProfileEndpoints{
		repo: repo,
	}
}

func (e *ProfileEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/model-profiles", func(r chi.Router) {
		r.Post("/", e.CreateProfileHandler)
		r.Get("/", e.GetProfilesHandler)
		r.Put("/{id}", e.UpdateProfileHandler)
	})
}

func (req *ModelProfileRequest) validate() error {
	switch req.Provider {
	case models.ProviderGemini, models.ProviderOllama:
	default:
		return NewValidationError("provider must be one of: gemini, ollama")
	}
	if req.Model == "" {
		return NewValidationError("model is required")
	}
	if req.TimeoutSeconds <= 0 {
		return NewValidationError("timeout_seconds must be positive")
	}
	switch req.ChunkStrategy {
	case models.ChunkPerSection, models.ChunkMergeSmall, models.ChunkFixedWindow:
	default:
		return NewValidationError("chunk_strategy must be one of: per_section, merge_small, fixed_window")
	}
	if req.ChunkStrategy != models.ChunkPerSection && req.ChunkWindow <= 0 {
		return NewValidationError("chunk_window must be positive for merge_small and fixed_window")
	}
	if req.BatchSize <= 0 {
		return NewValidationError("batch_size must be positive")
	}
	return nil
}

func (e *ProfileEndpoints) CreateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var req ModelProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := req.validate(); err != nil {
		WriteError(w, err)
		return
	}

	existing, err := e.repo.GetModelProfile(r.Context(), req.Provider, req.Model)
	if err != nil {
		WriteError(w, err)
		return
	}
	if existing != nil {
		WriteError(w, NewDuplicateError("model profile", req.Provider+"/"+req.Model))
		return
	}

	profile := models.ModelProfile{
		ID:             uuid.New().String(),
		Provider:       req.Provider,
		Model:          req.Model,
		TimeoutSeconds: req.TimeoutSeconds,
		MaxTokens:      req.MaxTokens,
		ContextWindow:  req.ContextWindow,
		ChunkStrategy:  req.ChunkStrategy,
		ChunkWindow:    req.ChunkWindow,
		BatchSize:      req.BatchSize,
	}

	if err := e.repo.CreateModelProfile(r.Context(), &profile); err != nil {
		slog.Error("Failed to create model profile", "error", err, "provider", req.Provider, "model", req.Model)
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"profile": profile,
		"message": "Model profile created successfully",
	})

	slog.Info("Model profile created", "profile_id", profile.ID, "provider", profile.Provider, "model", profile.Model)
}

func (e *ProfileEndpoints) GetProfilesHandler(w http.ResponseWriter, r *http.Request) {
	profiles, err := e.repo.GetModelProfiles(r.Context())
	if err != nil {
		slog.Error("Failed to get model profiles", "error", err)
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"profiles": profiles,
		"count":    len(profiles),
	})
}

func (e *ProfileEndpoints) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	profileID := chi.URLParam(r, "id")

	var req ModelProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := req.validate(); err != nil {
		WriteError(w, err)
		return
	}

	profile := models.ModelProfile{
		ID:             profileID,
		Provider:       req.Provider,
		Model:          req.Model,
		TimeoutSeconds: req.TimeoutSeconds,
		MaxTokens:      req.MaxTokens,
		ContextWindow:  req.ContextWindow,
		ChunkStrategy:  req.ChunkStrategy,
		ChunkWindow:    req.ChunkWindow,
		BatchSize:      req.BatchSize,
	}

	if err := e.repo.UpdateModelProfile(r.Context(), &profile); err != nil {
		slog.Error("Failed to update model profile", "error", err, "profile_id", profileID)
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"profile": profile,
		"message": "Model profile updated successfully",
	})
}
