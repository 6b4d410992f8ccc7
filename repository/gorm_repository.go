package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/lexflow/backend/models"
	"gorm.io/gorm"
)

type GORMRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) *GORMRepository {
	return &GORMRepository{db: db}
}

// DB exposes the underlying handle for services that need raw access.
func (r *GORMRepository) DB() *gorm.DB {
	return r.db
}

// AutoMigrate runs database migrations
func (r *GORMRepository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.PermanentToken{},
		&models.Agent{},
		&models.ModelProfile{},
		&models.AgentSet{},
		&models.AgentSetStage{},
		&models.AgentSession{},
		&models.AgentResponse{},
		&models.RAGCitation{},
		&models.Document{},
		&models.DocumentVersion{},
		&models.TestPlan{},
		&models.TestCard{},
		&models.ChatHistory{},
		&models.CalendarEvent{},
	)
}

// User operations
func (r *GORMRepository) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		slog.Error("Failed to create user", "error", err)
		return err
	}
	slog.Info("User created", "user_id", user.ID, "email", user.Email)
	return nil
}

func (r *GORMRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get user by email", "error", err, "email", email)
		return nil, err
	}
	return &user, nil
}

func (r *GORMRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get user by ID", "error", err, "user_id", id)
		return nil, err
	}
	return &user, nil
}

// Token operations
func (r *GORMRepository) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		slog.Error("Failed to create refresh token", "error", err)
		return err
	}
	return nil
}

func (r *GORMRepository) GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var refreshToken models.RefreshToken
	if err := r.db.WithContext(ctx).Where("token = ? AND expires_at > ?", token, time.Now()).First(&refreshToken).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get refresh token", "error", err)
		return nil, err
	}
	return &refreshToken, nil
}

func (r *GORMRepository) DeleteRefreshToken(ctx context.Context, token string) error {
	if err := r.db.WithContext(ctx).Where("token = ?", token).Delete(&models.RefreshToken{}).Error; err != nil {
		slog.Error("Failed to delete refresh token", "error", err)
		return err
	}
	return nil
}

func (r *GORMRepository) CreatePermanentToken(ctx context.Context, token *models.PermanentToken) error {
	if err := r.db.WithContext(ctx).Create(token).Error; err != nil {
		slog.Error("Failed to create permanent token", "error", err)
		return err
	}
	return nil
}

func (r *GORMRepository) GetPermanentToken(ctx context.Context, token string) (*models.PermanentToken, error) {
	var permanentToken models.PermanentToken
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&permanentToken).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get permanent token", "error", err)
		return nil, err
	}
	return &permanentToken, nil
}

func (r *GORMRepository) DeleteAllUserTokens(ctx context.Context, userID string) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error; err != nil {
		slog.Error("Failed to delete user refresh tokens", "error", err, "user_id", userID)
		return err
	}
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.PermanentToken{}).Error; err != nil {
		slog.Error("Failed to delete user permanent tokens", "error", err, "user_id", userID)
		return err
	}
	return nil
}

// Agent operations
func (r *GORMRepository) CreateAgent(ctx context.Context, agent *models.Agent) error {
	if err := r.db.WithContext(ctx).Create(agent).Error; err != nil {
		slog.Error("Failed to create agent", "error", err)
		return err
	}
	slog.Info("Agent created", "agent_id", agent.ID, "name", agent.Name)
	return nil
}

// GetAgents returns active agents visible to the user: public agents plus the
// user's own. With includePublic false only the user's private agents return.
func (r *GORMRepository) GetAgents(ctx context.Context, userID string, includePublic bool) ([]models.Agent, error) {
	var agents []models.Agent
	query := r.db.WithContext(ctx).Where("is_active = ?", true)

	if includePublic {
		if userID == "" {
			query = query.Where("user_id IS NULL")
		} else {
			query = query.Where("(user_id IS NULL OR user_id = ?)", userID)
		}
	} else {
		if userID == "" {
			return agents, nil
		}
		query = query.Where("user_id = ?", userID)
	}

	if err := query.Order("name").Find(&agents).Error; err != nil {
		slog.Error("Failed to get agents", "error", err, "user_id", userID)
		return nil, err
	}
	return agents, nil
}

func (r *GORMRepository) GetAgentByID(ctx context.Context, agentID string, userID string) (*models.Agent, error) {
	var agent models.Agent
	// Get agent if it's public OR belongs to the user
	err := r.db.WithContext(ctx).Where("id = ? AND (user_id IS NULL OR user_id = ?)", agentID, userID).First(&agent).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get agent by ID", "error", err, "agent_id", agentID, "user_id", userID)
		return nil, err
	}
	return &agent, nil
}

// GetAgentsByIDs resolves the IDs to agents visible to the user: public
// agents plus the user's own, same scoping as GetAgentByID.
func (r *GORMRepository) GetAgentsByIDs(ctx context.Context, agentIDs []string, userID string) ([]models.Agent, error) {
	var agents []models.Agent
	if len(agentIDs) == 0 {
		return agents, nil
	}
	err := r.db.WithContext(ctx).
		Where("id IN ? AND (user_id IS NULL OR user_id = ?)", agentIDs, userID).
		Find(&agents).Error
	if err != nil {
		slog.Error("Failed to get agents by IDs", "error", err, "user_id", userID)
		return nil, err
	}
	return agents, nil
}

func (r *GORMRepository) UpdateAgent(ctx context.Context, agent *models.Agent) error {
	if err := r.db.WithContext(ctx).Save(agent).Error; err != nil {
		slog.Error("Failed to update agent", "error", err, "agent_id", agent.ID)
		return err
	}
	slog.Info("Agent updated", "agent_id", agent.ID, "name", agent.Name)
	return nil
}

func (r *GORMRepository) DeleteAgent(ctx context.Context, agentID string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", agentID).Delete(&models.Agent{}).Error; err != nil {
		slog.Error("Failed to delete agent", "error", err, "agent_id", agentID)
		return err
	}
	slog.Info("Agent deleted", "agent_id", agentID)
	return nil
}

// Model profile operations
func (r *GORMRepository) CreateModelProfile(ctx context.Context, profile *models.ModelProfile) error {
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		slog.Error("Failed to create model profile", "error", err)
		return err
	}
	slog.Info("Model profile created", "profile_id", profile.ID, "provider", profile.Provider, "model", profile.Model)
	return nil
}

func (r *GORMRepository) GetModelProfiles(ctx context.Context) ([]models.ModelProfile, error) {
	var profiles []models.ModelProfile
	if err := r.db.WithContext(ctx).Order("provider, model").Find(&profiles).Error; err != nil {
		slog.Error("Failed to get model profiles", "error", err)
		return nil, err
	}
	return profiles, nil
}

func (r *GORMRepository) GetModelProfile(ctx context.Context, provider, model string) (*models.ModelProfile, error) {
	var profile models.ModelProfile
	err := r.db.WithContext(ctx).Where("provider = ? AND model = ?", provider, model).First(&profile).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get model profile", "error", err, "provider", provider, "model", model)
		return nil, err
	}
	return &profile, nil
}

func (r *GORMRepository) UpdateModelProfile(ctx context.Context, profile *models.ModelProfile) error {
	if err := r.db.WithContext(ctx).Save(profile).Error; err != nil {
		slog.Error("Failed to update model profile", "error", err, "profile_id", profile.ID)
		return err
	}
	return nil
}

// Agent set operations
func (r *GORMRepository) CreateAgentSet(ctx context.Context, set *models.AgentSet) error {
	if err := r.db.WithContext(ctx).Create(set).Error; err != nil {
		slog.Error("Failed to create agent set", "error", err)
		return err
	}
	slog.Info("Agent set created", "agent_set_id", set.ID, "name", set.Name)
	return nil
}

func (r *GORMRepository) GetAgentSets(ctx context.Context, userID string) ([]models.AgentSet, error) {
	var sets []models.AgentSet
	query := r.db.WithContext(ctx).Where("is_active = ?", true)
	if userID == "" {
		query = query.Where("user_id IS NULL")
	} else {
		query = query.Where("(user_id IS NULL OR user_id = ?)", userID)
	}
	if err := query.Order("name").Find(&sets).Error; err != nil {
		slog.Error("Failed to get agent sets", "error", err, "user_id", userID)
		return nil, err
	}
	return sets, nil
}

// GetAgentSetWithStages loads a set visible to the user with its stages in
// position order and each stage's member agents.
func (r *GORMRepository) GetAgentSetWithStages(ctx context.Context, setID string, userID string) (*models.AgentSet, error) {
	var set models.AgentSet
	err := r.db.WithContext(ctx).
		Where("id = ? AND (user_id IS NULL OR user_id = ?)", setID, userID).
		Preload("Stages", func(db *gorm.DB) *gorm.DB {
			return db.Order("agent_set_stages.position")
		}).
		Preload("Stages.Agents").
		First(&set).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get agent set with stages", "error", err, "agent_set_id", setID, "user_id", userID)
		return nil, err
	}
	return &set, nil
}

func (r *GORMRepository) UpdateAgentSet(ctx context.Context, set *models.AgentSet) error {
	if err := r.db.WithContext(ctx).Save(set).Error; err != nil {
		slog.Error("Failed to update agent set", "error", err, "agent_set_id", set.ID)
		return err
	}
	slog.Info("Agent set updated", "agent_set_id", set.ID, "name", set.Name)
	return nil
}

func (r *GORMRepository) DeleteAgentSet(ctx context.Context, setID string) error {
	if err := r.db.WithContext(ctx).Where("agent_set_id = ?", setID).Delete(&models.AgentSetStage{}).Error; err != nil {
		slog.Error("Failed to delete agent set stages", "error", err, "agent_set_id", setID)
		return err
	}
	if err := r.db.WithContext(ctx).Where("id = ?", setID).Delete(&models.AgentSet{}).Error; err != nil {
		slog.Error("Failed to delete agent set", "error", err, "agent_set_id", setID)
		return err
	}
	slog.Info("Agent set deleted", "agent_set_id", setID)
	return nil
}

// ReplaceAgentSetStages swaps a set's stage list in one transaction. Stage
// positions are renumbered from the slice order.
func (r *GORMRepository) ReplaceAgentSetStages(ctx context.Context, setID string, stages []models.AgentSetStage) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("agent_set_id = ?", setID).Delete(&models.AgentSetStage{}).Error; err != nil {
			slog.Error("Failed to clear agent set stages", "error", err, "agent_set_id", setID)
			return err
		}
		for i := range stages {
			stages[i].AgentSetID = setID
			stages[i].Position = i
			if err := tx.Create(&stages[i]).Error; err != nil {
				slog.Error("Failed to create agent set stage", "error", err, "agent_set_id", setID, "position", i)
				return err
			}
		}
		return nil
	})
}

// Session operations
func (r *GORMRepository) CreateAgentSession(ctx context.Context, session *models.AgentSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		slog.Error("Failed to create agent session", "error", err)
		return err
	}
	slog.Info("Agent session created", "session_id", session.ID, "user_id", session.UserID)
	return nil
}

func (r *GORMRepository) GetAgentSessions(ctx context.Context, userID string) ([]models.AgentSession, error) {
	var sessions []models.AgentSession
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("AgentSet").
		Order("started_at DESC").
		Find(&sessions).Error
	if err != nil {
		slog.Error("Failed to get agent sessions", "error", err, "user_id", userID)
		return nil, err
	}
	return sessions, nil
}

func (r *GORMRepository) GetAgentSession(ctx context.Context, sessionID string) (*models.AgentSession, error) {
	var session models.AgentSession
	err := r.db.WithContext(ctx).Where("id = ?", sessionID).First(&session).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get agent session", "error", err, "session_id", sessionID)
		return nil, err
	}
	return &session, nil
}

func (r *GORMRepository) GetAgentSessionWithDetails(ctx context.Context, sessionID string, userID string) (*models.AgentSession, error) {
	var session models.AgentSession
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", sessionID, userID).
		Preload("AgentSet").
		Preload("DocumentVersion").
		Preload("Responses", func(db *gorm.DB) *gorm.DB {
			return db.Order("agent_responses.stage_position, agent_responses.section_index")
		}).
		Preload("Responses.Agent").
		Preload("Responses.Citations").
		Preload("TestPlan").
		Preload("TestPlan.Cards", func(db *gorm.DB) *gorm.DB {
			return db.Order("test_cards.position")
		}).
		First(&session).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get agent session with details", "error", err, "session_id", sessionID, "user_id", userID)
		return nil, err
	}
	return &session, nil
}

func (r *GORMRepository) UpdateAgentSession(ctx context.Context, session *models.AgentSession) error {
	if err := r.db.WithContext(ctx).Save(session).Error; err != nil {
		slog.Error("Failed to update agent session", "error", err, "session_id", session.ID)
		return err
	}
	return nil
}

// CompleteAgentSession sets a terminal status and end timestamp.
func (r *GORMRepository) CompleteAgentSession(ctx context.Context, sessionID, status, errMsg string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":   status,
		"error":    errMsg,
		"ended_at": &now,
	}
	if err := r.db.WithContext(ctx).Model(&models.AgentSession{}).Where("id = ?", sessionID).Updates(updates).Error; err != nil {
		slog.Error("Failed to complete agent session", "error", err, "session_id", sessionID, "status", status)
		return err
	}
	slog.Info("Agent session finished", "session_id", sessionID, "status", status)
	return nil
}

// Response operations
func (r *GORMRepository) CreateAgentResponse(ctx context.Context, response *models.AgentResponse) error {
	if err := r.db.WithContext(ctx).Create(response).Error; err != nil {
		slog.Error("Failed to create agent response", "error", err)
		return err
	}
	return nil
}

func (r *GORMRepository) GetAgentResponses(ctx context.Context, sessionID string) ([]models.AgentResponse, error) {
	var responses []models.AgentResponse
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("stage_position, section_index").
		Find(&responses).Error
	if err != nil {
		slog.Error("Failed to get agent responses", "error", err, "session_id", sessionID)
		return nil, err
	}
	return responses, nil
}

func (r *GORMRepository) CreateRAGCitation(ctx context.Context, citation *models.RAGCitation) error {
	if err := r.db.WithContext(ctx).Create(citation).Error; err != nil {
		slog.Error("Failed to create RAG citation", "error", err)
		return err
	}
	return nil
}
