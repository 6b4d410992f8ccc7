package models

import (
	"time"

	"gorm.io/gorm"
)

// ChatHistory stores one turn of the analyst chat: a user question or an
// assistant answer, optionally tied to the agent session it was asked about.
type ChatHistory struct {
	ID        string         `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID    string         `json:"user_id" gorm:"type:uuid;not null;index"`
	SessionID *string        `json:"session_id,omitempty" gorm:"type:uuid;index"`
	Role      string         `json:"role" gorm:"type:varchar(50);not null;check:role IN ('user', 'assistant')"`
	Content   string         `json:"content" gorm:"type:text;not null"`
	CreatedAt time.Time      `json:"created_at" gorm:"not null;default:now()"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	User    User          `json:"user,omitempty" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
	Session *AgentSession `json:"session,omitempty" gorm:"foreignKey:SessionID;references:ID"`
}

// TableName returns the table name for the ChatHistory model
func (ChatHistory) TableName() string {
	return "chat_history"
}

// ChatStats represents aggregated chat statistics for a user
type ChatStats struct {
	TotalTurns    int64      `json:"total_turns"`
	TotalSessions int64      `json:"total_sessions"`
	LastActivity  *time.Time `json:"last_activity"`
}
