package models

import (
	"time"

	"gorm.io/gorm"
)

// Document is a legal/compliance document under analysis. Content lives on
// versions; the document row carries identity and ownership.
type Document struct {
	ID        string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID    string         `gorm:"type:uuid;not null;index" json:"user_id"`
	Title     string         `gorm:"not null" json:"title"`
	Category  string         `gorm:"size:100" json:"category,omitempty"` // contract, policy, regulation, ...
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	User     User              `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Versions []DocumentVersion `gorm:"foreignKey:DocumentID" json:"versions,omitempty"`
}

// DocumentVersion is one immutable revision of a document's text. Version
// numbers are assigned by the repository, monotonically per document.
type DocumentVersion struct {
	ID         string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	DocumentID string         `gorm:"type:uuid;not null;index" json:"document_id"`
	Version    int            `gorm:"not null" json:"version"`
	Content    string         `gorm:"type:text;not null" json:"content"`
	Checksum   string         `gorm:"size:64;not null" json:"checksum"` // sha256 of content
	Note       string         `gorm:"type:text" json:"note,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Document Document `gorm:"foreignKey:DocumentID" json:"-"`
}

// TestPlan is the merged output of a completed pipeline run: the final-stage
// text plus the structured cards parsed out of it.
type TestPlan struct {
	ID        string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SessionID string         `gorm:"type:uuid;not null;uniqueIndex" json:"session_id"`
	Summary   string         `gorm:"type:text" json:"summary"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Session AgentSession `gorm:"foreignKey:SessionID" json:"-"`
	Cards   []TestCard   `gorm:"foreignKey:TestPlanID" json:"cards,omitempty"`
}

// TestCard is one actionable item of a test plan.
type TestCard struct {
	ID            string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TestPlanID    string         `gorm:"type:uuid;not null;index" json:"test_plan_id"`
	Title         string         `gorm:"not null" json:"title"`
	Body          string         `gorm:"type:text" json:"body"`
	Category      string         `gorm:"size:100" json:"category,omitempty"`
	SourceSection int            `gorm:"not null;default:0" json:"source_section"`
	Position      int            `gorm:"not null" json:"position"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	TestPlan TestPlan `gorm:"foreignKey:TestPlanID" json:"-"`
}
