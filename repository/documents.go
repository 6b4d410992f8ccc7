package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lexflow/backend/models"
	"gorm.io/gorm"
)

// Document operations
func (r *GORMRepository) CreateDocument(ctx context.Context, doc *models.Document) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		slog.Error("Failed to create document", "error", err)
		return err
	}
	slog.Info("Document created", "document_id", doc.ID, "title", doc.Title)
	return nil
}

func (r *GORMRepository) GetDocuments(ctx context.Context, userID string) ([]models.Document, error) {
	var docs []models.Document
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&docs).Error; err != nil {
		slog.Error("Failed to get documents", "error", err, "user_id", userID)
		return nil, err
	}
	return docs, nil
}

func (r *GORMRepository) GetDocument(ctx context.Context, docID string, userID string) (*models.Document, error) {
	var doc models.Document
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", docID, userID).First(&doc).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get document", "error", err, "document_id", docID)
		return nil, err
	}
	return &doc, nil
}

func (r *GORMRepository) DeleteDocument(ctx context.Context, docID string) error {
	if err := r.db.WithContext(ctx).Where("document_id = ?", docID).Delete(&models.DocumentVersion{}).Error; err != nil {
		slog.Error("Failed to delete document versions", "error", err, "document_id", docID)
		return err
	}
	if err := r.db.WithContext(ctx).Where("id = ?", docID).Delete(&models.Document{}).Error; err != nil {
		slog.Error("Failed to delete document", "error", err, "document_id", docID)
		return err
	}
	slog.Info("Document deleted", "document_id", docID)
	return nil
}

// CreateDocumentVersion assigns the next version number for the document and
// inserts the revision in one transaction.
func (r *GORMRepository) CreateDocumentVersion(ctx context.Context, version *models.DocumentVersion) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var latest int
		err := tx.Model(&models.DocumentVersion{}).
			Where("document_id = ?", version.DocumentID).
			Select("COALESCE(MAX(version), 0)").
			Scan(&latest).Error
		if err != nil {
			slog.Error("Failed to resolve latest version", "error", err, "document_id", version.DocumentID)
			return err
		}
		version.Version = latest + 1
		if err := tx.Create(version).Error; err != nil {
			slog.Error("Failed to create document version", "error", err, "document_id", version.DocumentID)
			return err
		}
		slog.Info("Document version created", "version_id", version.ID, "document_id", version.DocumentID, "version", version.Version)
		return nil
	})
}

func (r *GORMRepository) GetDocumentVersions(ctx context.Context, docID string) ([]models.DocumentVersion, error) {
	var versions []models.DocumentVersion
	err := r.db.WithContext(ctx).
		Where("document_id = ?", docID).
		Order("version DESC").
		Find(&versions).Error
	if err != nil {
		slog.Error("Failed to get document versions", "error", err, "document_id", docID)
		return nil, err
	}
	return versions, nil
}

func (r *GORMRepository) GetDocumentVersion(ctx context.Context, versionID string) (*models.DocumentVersion, error) {
	var version models.DocumentVersion
	err := r.db.WithContext(ctx).Where("id = ?", versionID).First(&version).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get document version", "error", err, "version_id", versionID)
		return nil, err
	}
	return &version, nil
}

func (r *GORMRepository) GetLatestDocumentVersion(ctx context.Context, docID string) (*models.DocumentVersion, error) {
	var version models.DocumentVersion
	err := r.db.WithContext(ctx).
		Where("document_id = ?", docID).
		Order("version DESC").
		First(&version).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get latest document version", "error", err, "document_id", docID)
		return nil, err
	}
	return &version, nil
}

// Test plan operations
func (r *GORMRepository) CreateTestPlan(ctx context.Context, plan *models.TestPlan) error {
	if err := r.db.WithContext(ctx).Create(plan).Error; err != nil {
		slog.Error("Failed to create test plan", "error", err)
		return err
	}
	slog.Info("Test plan created", "test_plan_id", plan.ID, "session_id", plan.SessionID, "cards", len(plan.Cards))
	return nil
}

func (r *GORMRepository) GetTestPlanBySession(ctx context.Context, sessionID string) (*models.TestPlan, error) {
	var plan models.TestPlan
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Preload("Cards", func(db *gorm.DB) *gorm.DB {
			return db.Order("test_cards.position")
		}).
		First(&plan).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get test plan", "error", err, "session_id", sessionID)
		return nil, err
	}
	return &plan, nil
}

func (r *GORMRepository) UpdateTestCard(ctx context.Context, card *models.TestCard) error {
	if err := r.db.WithContext(ctx).Save(card).Error; err != nil {
		slog.Error("Failed to update test card", "error", err, "card_id", card.ID)
		return err
	}
	return nil
}

// GetTestCard loads a card only when the session its plan belongs to is owned
// by the user.
func (r *GORMRepository) GetTestCard(ctx context.Context, cardID string, userID string) (*models.TestCard, error) {
	var card models.TestCard
	err := r.db.WithContext(ctx).
		Joins("JOIN test_plans ON test_plans.id = test_cards.test_plan_id").
		Joins("JOIN agent_sessions ON agent_sessions.id = test_plans.session_id").
		Where("test_cards.id = ? AND agent_sessions.user_id = ?", cardID, userID).
		First(&card).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get test card", "error", err, "card_id", cardID)
		return nil, err
	}
	return &card, nil
}

// Calendar operations
func (r *GORMRepository) CreateCalendarEvent(ctx context.Context, event *models.CalendarEvent) error {
	if event.EndsAt.Before(event.StartsAt) {
		return fmt.Errorf("event ends before it starts")
	}
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		slog.Error("Failed to create calendar event", "error", err)
		return err
	}
	slog.Info("Calendar event created", "event_id", event.ID, "user_id", event.UserID)
	return nil
}

// GetCalendarEvents returns a user's events overlapping [from, to).
func (r *GORMRepository) GetCalendarEvents(ctx context.Context, userID string, from, to time.Time) ([]models.CalendarEvent, error) {
	var events []models.CalendarEvent
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND starts_at < ? AND ends_at >= ?", userID, to, from).
		Order("starts_at").
		Find(&events).Error
	if err != nil {
		slog.Error("Failed to get calendar events", "error", err, "user_id", userID)
		return nil, err
	}
	return events, nil
}

func (r *GORMRepository) GetCalendarEvent(ctx context.Context, eventID string, userID string) (*models.CalendarEvent, error) {
	var event models.CalendarEvent
	err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", eventID, userID).First(&event).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get calendar event", "error", err, "event_id", eventID)
		return nil, err
	}
	return &event, nil
}

func (r *GORMRepository) UpdateCalendarEvent(ctx context.Context, event *models.CalendarEvent) error {
	if err := r.db.WithContext(ctx).Save(event).Error; err != nil {
		slog.Error("Failed to update calendar event", "error", err, "event_id", event.ID)
		return err
	}
	return nil
}

func (r *GORMRepository) DeleteCalendarEvent(ctx context.Context, eventID string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", eventID).Delete(&models.CalendarEvent{}).Error; err != nil {
		slog.Error("Failed to delete calendar event", "error", err, "event_id", eventID)
		return err
	}
	slog.Info("Calendar event deleted", "event_id", eventID)
	return nil
}
