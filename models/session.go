package models

import (
	"time"

	"gorm.io/gorm"
)

// Session statuses.
const (
	SessionActive    = "active"
	SessionCompleted = "completed"
	SessionFailed    = "failed"
	SessionCancelled = "cancelled"
)

// AgentSession groups the agent invocations of a single pipeline run against
// one document version, tracked for audit and history.
type AgentSession struct {
	ID                string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID            string         `gorm:"type:uuid;not null;index" json:"user_id"`
	AgentSetID        string         `gorm:"type:uuid;not null;index" json:"agent_set_id"`
	DocumentVersionID string         `gorm:"type:uuid;not null;index" json:"document_version_id"`
	Status            string         `gorm:"not null;default:'active';check:status IN ('active', 'completed', 'failed', 'cancelled')" json:"status"`
	Error             string         `gorm:"type:text" json:"error,omitempty"`
	StartedAt         time.Time      `gorm:"not null" json:"started_at"`
	EndedAt           *time.Time     `json:"ended_at,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	User            User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	AgentSet        AgentSet        `gorm:"foreignKey:AgentSetID" json:"agent_set,omitempty"`
	DocumentVersion DocumentVersion `gorm:"foreignKey:DocumentVersionID" json:"document_version,omitempty"`
	Responses       []AgentResponse `gorm:"foreignKey:SessionID" json:"responses,omitempty"`
	TestPlan        *TestPlan       `gorm:"foreignKey:SessionID" json:"test_plan,omitempty"`
}

// AgentResponse records one agent invocation inside a session: which stage and
// document section it ran against, what came back, and how long it took.
// Failed invocations are kept with the error string so a run's full history is
// auditable.
type AgentResponse struct {
	ID            string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SessionID     string         `gorm:"type:uuid;not null;index" json:"session_id"`
	AgentID       string         `gorm:"type:uuid;not null;index" json:"agent_id"`
	StagePosition int            `gorm:"not null" json:"stage_position"`
	SectionIndex  int            `gorm:"not null" json:"section_index"`
	Content       string         `gorm:"type:text" json:"content"`
	Error         string         `gorm:"type:text" json:"error,omitempty"`
	LatencyMS     int64          `json:"latency_ms"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Session   AgentSession  `gorm:"foreignKey:SessionID" json:"-"`
	Agent     Agent         `gorm:"foreignKey:AgentID" json:"agent,omitempty"`
	Citations []RAGCitation `gorm:"foreignKey:ResponseID" json:"citations,omitempty"`
}

// RAGCitation links an agent response to a retrieved passage that was placed
// in its prompt.
type RAGCitation struct {
	ID         string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ResponseID string         `gorm:"type:uuid;not null;index" json:"response_id"`
	DocumentID string         `gorm:"type:uuid;not null;index" json:"document_id"`
	ChunkIndex int            `gorm:"not null" json:"chunk_index"`
	Excerpt    string         `gorm:"type:text" json:"excerpt"`
	Score      float64        `gorm:"type:decimal(6,5)" json:"score"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Response AgentResponse `gorm:"foreignKey:ResponseID" json:"-"`
}
