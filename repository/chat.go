package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lexflow/backend/models"
	"gorm.io/gorm"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// SaveTurn saves a chat turn to the database using GORM
func (r *ChatRepository) SaveTurn(ctx context.Context, turn *models.ChatHistory) error {
	if err := r.db.WithContext(ctx).Create(turn).Error; err != nil {
		slog.Error("Failed to save chat turn", "error", err, "turn_id", turn.ID)
		return fmt.Errorf("failed to save chat turn: %w", err)
	}

	slog.Info("Chat turn saved", "turn_id", turn.ID, "user_id", turn.UserID, "role", turn.Role)
	return nil
}

// GetHistory retrieves a user's chat history, newest first, optionally
// filtered to one agent session.
func (r *ChatRepository) GetHistory(ctx context.Context, userID string, sessionID *string, limit int) ([]models.ChatHistory, error) {
	var turns []models.ChatHistory

	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit)
	if sessionID != nil {
		query = query.Where("session_id = ?", *sessionID)
	}

	if err := query.Find(&turns).Error; err != nil {
		slog.Error("Failed to get chat history", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to get chat history: %w", err)
	}

	return turns, nil
}

// GetRecentContext returns the last n turns in chronological order for prompt
// assembly.
func (r *ChatRepository) GetRecentContext(ctx context.Context, userID string, sessionID *string, n int) ([]models.ChatHistory, error) {
	turns, err := r.GetHistory(ctx, userID, sessionID, n)
	if err != nil {
		return nil, err
	}
	// Reverse newest-first into chronological order
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// GetUserStats returns chat statistics for a user using GORM
func (r *ChatRepository) GetUserStats(ctx context.Context, userID string) (*models.ChatStats, error) {
	var stats models.ChatStats

	if err := r.db.WithContext(ctx).
		Model(&models.ChatHistory{}).
		Where("user_id = ?", userID).
		Count(&stats.TotalTurns).Error; err != nil {
		slog.Error("Failed to get total turns count", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to get total turns count: %w", err)
	}

	if err := r.db.WithContext(ctx).
		Model(&models.ChatHistory{}).
		Where("user_id = ? AND session_id IS NOT NULL", userID).
		Distinct("session_id").
		Count(&stats.TotalSessions).Error; err != nil {
		slog.Error("Failed to get chat session count", "error", err, "user_id", userID)
		return nil, fmt.Errorf("failed to get chat session count: %w", err)
	}

	var lastTurn models.ChatHistory
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&lastTurn).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			slog.Error("Failed to get last activity", "error", err, "user_id", userID)
			return nil, fmt.Errorf("failed to get last activity: %w", err)
		}
	} else {
		stats.LastActivity = &lastTurn.CreatedAt
	}

	return &stats, nil
}

// DeleteUserHistory deletes all chat turns for a user
func (r *ChatRepository) DeleteUserHistory(ctx context.Context, userID string) error {
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.ChatHistory{}).Error; err != nil {
		slog.Error("Failed to delete chat history", "error", err, "user_id", userID)
		return fmt.Errorf("failed to delete chat history: %w", err)
	}

	slog.Info("Chat history deleted", "user_id", userID)
	return nil
}
