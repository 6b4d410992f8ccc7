package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/lexflow/backend/models"
	"github.com/lexflow/backend/repository"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// DatabaseSeeder loads the seed manifest and creates the default users,
// public agents, model profiles and the starter agent set. Every entity is
// seeded idempotently so repeated startups are safe.
type DatabaseSeeder struct {
	repo *repository.GORMRepository
}

type seedManifest struct {
	Users []struct {
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
		FullName string `yaml:"full_name"`
		Role     string `yaml:"role"`
	} `yaml:"users"`
	ModelProfiles []struct {
		Provider       string `yaml:"provider"`
		Model          string `yaml:"model"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		MaxTokens      int    `yaml:"max_tokens"`
		ContextWindow  int    `yaml:"context_window"`
		ChunkStrategy  string `yaml:"chunk_strategy"`
		ChunkWindow    int    `yaml:"chunk_window"`
		BatchSize      int    `yaml:"batch_size"`
	} `yaml:"model_profiles"`
	Agents []struct {
		Name           string  `yaml:"name"`
		Description    string  `yaml:"description"`
		Role           string  `yaml:"role"`
		Provider       string  `yaml:"provider"`
		Model          string  `yaml:"model"`
		PromptTemplate string  `yaml:"prompt_template"`
		Temperature    float64 `yaml:"temperature"`
		UseRetrieval   bool    `yaml:"use_retrieval"`
	} `yaml:"agents"`
	AgentSets []struct {
		Name        string      `yaml:"name"`
		Description string      `yaml:"description"`
		Stages      []seedStage `yaml:"stages"`
	} `yaml:"agent_sets"`
}

type seedStage struct {
	Name   string   `yaml:"name"`
	Mode   string   `yaml:"mode"`
	Agents []string `yaml:"agents"` // agent names from the agents list
}

func NewDatabaseSeeder(repo *repository.GORMRepository) *DatabaseSeeder {
	return &DatabaseSeeder{repo: repo}
}

// SeedDatabase applies the manifest at path. Missing manifest is an error;
// already-seeded entities are skipped.
func (s *DatabaseSeeder) SeedDatabase(path string) error {
	ctx := context.Background()

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading seed manifest: %w", err)
	}

	var manifest seedManifest
	if err := yaml.Unmarshal(raw, &manifest); err != nil {
		return fmt.Errorf("parsing seed manifest: %w", err)
	}

	for _, u := range manifest.Users {
		if err := s.seedUser(ctx, u.Email, u.Password, u.FullName, u.Role); err != nil {
			slog.Error("Failed to seed user", "email", u.Email, "error", err)
		}
	}

	for _, p := range manifest.ModelProfiles {
		if err := s.seedModelProfile(ctx, models.ModelProfile{
			Provider:       p.Provider,
			Model:          p.Model,
			TimeoutSeconds: p.TimeoutSeconds,
			MaxTokens:      p.MaxTokens,
			ContextWindow:  p.ContextWindow,
			ChunkStrategy:  p.ChunkStrategy,
			ChunkWindow:    p.ChunkWindow,
			BatchSize:      p.BatchSize,
		}); err != nil {
			slog.Error("Failed to seed model profile", "provider", p.Provider, "model", p.Model, "error", err)
		}
	}

	agentsByName := make(map[string]models.Agent)
	for _, a := range manifest.Agents {
		agent := models.Agent{
			UserID:         nil, // seeded agents are public
			Name:           a.Name,
			Description:    a.Description,
			Role:           a.Role,
			Provider:       a.Provider,
			Model:          a.Model,
			PromptTemplate: a.PromptTemplate,
			Temperature:    a.Temperature,
			UseRetrieval:   a.UseRetrieval,
			IsPublic:       true,
			IsActive:       true,
		}
		seeded, err := s.seedAgent(ctx, agent)
		if err != nil {
			slog.Error("Failed to seed agent", "name", a.Name, "error", err)
			continue
		}
		agentsByName[seeded.Name] = *seeded
	}

	for _, set := range manifest.AgentSets {
		if err := s.seedAgentSet(ctx, set.Name, set.Description, set.Stages, agentsByName); err != nil {
			slog.Error("Failed to seed agent set", "name", set.Name, "error", err)
		}
	}

	slog.Info("Database seeding completed")
	return nil
}

func (s *DatabaseSeeder) seedUser(ctx context.Context, email, password, fullName, role string) error {
	existing, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("error checking user %s: %w", email, err)
	}
	if existing != nil {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if role == "" {
		role = "analyst"
	}
	user := models.User{
		Email:    email,
		Password: string(hashed),
		FullName: fullName,
		Role:     role,
	}
	if err := s.repo.CreateUser(ctx, &user); err != nil {
		return fmt.Errorf("failed to create user %s: %w", email, err)
	}

	slog.Info("Created user", "email", email)
	return nil
}

func (s *DatabaseSeeder) seedModelProfile(ctx context.Context, profile models.ModelProfile) error {
	existing, err := s.repo.GetModelProfile(ctx, profile.Provider, profile.Model)
	if err != nil {
		return fmt.Errorf("error checking model profile: %w", err)
	}
	if existing != nil {
		return nil
	}

	if err := s.repo.CreateModelProfile(ctx, &profile); err != nil {
		return fmt.Errorf("failed to create model profile: %w", err)
	}

	slog.Info("Created model profile", "provider", profile.Provider, "model", profile.Model)
	return nil
}

func (s *DatabaseSeeder) seedAgent(ctx context.Context, agent models.Agent) (*models.Agent, error) {
	agents, err := s.repo.GetAgents(ctx, "", true)
	if err != nil {
		return nil, fmt.Errorf("error checking agents: %w", err)
	}
	for i := range agents {
		if agents[i].Name == agent.Name && agents[i].UserID == nil {
			return &agents[i], nil
		}
	}

	if err := s.repo.CreateAgent(ctx, &agent); err != nil {
		return nil, fmt.Errorf("failed to create agent %s: %w", agent.Name, err)
	}

	slog.Info("Created agent", "name", agent.Name, "role", agent.Role)
	return &agent, nil
}

func (s *DatabaseSeeder) seedAgentSet(ctx context.Context, name, description string, stages []seedStage, agentsByName map[string]models.Agent) error {
	sets, err := s.repo.GetAgentSets(ctx, "")
	if err != nil {
		return fmt.Errorf("error checking agent sets: %w", err)
	}
	for _, existing := range sets {
		if existing.Name == name && existing.UserID == nil {
			return nil
		}
	}

	set := models.AgentSet{
		UserID:      nil,
		Name:        name,
		Description: description,
		IsPublic:    true,
		IsActive:    true,
	}
	if err := s.repo.CreateAgentSet(ctx, &set); err != nil {
		return fmt.Errorf("failed to create agent set %s: %w", name, err)
	}

	var stageRecords []models.AgentSetStage
	for i, stage := range stages {
		var members []models.Agent
		for _, agentName := range stage.Agents {
			agent, ok := agentsByName[agentName]
			if !ok {
				return fmt.Errorf("agent set %s references unknown agent %q", name, agentName)
			}
			members = append(members, agent)
		}
		stageRecords = append(stageRecords, models.AgentSetStage{
			AgentSetID: set.ID,
			Name:       stage.Name,
			Position:   i,
			Mode:       stage.Mode,
			Agents:     members,
		})
	}

	if err := s.repo.ReplaceAgentSetStages(ctx, set.ID, stageRecords); err != nil {
		return fmt.Errorf("failed to create stages for agent set %s: %w", name, err)
	}

	slog.Info("Created agent set", "name", name, "stages", len(stageRecords))
	return nil
}
