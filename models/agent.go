package models

import (
	"time"

	"gorm.io/gorm"
)

// Agent roles within a pipeline stage.
const (
	AgentRoleActor  = "actor"
	AgentRoleCritic = "critic"
	AgentRoleQA     = "qa"
)

// Supported LLM providers.
const (
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

// Agent is a named LLM configuration: which model to call, with what prompt
// template and temperature. Public agents (user_id is NULL) are visible to
// everyone; private agents belong to the user who created them.
type Agent struct {
	ID             string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID         *string        `gorm:"type:uuid;index" json:"user_id,omitempty"` // NULL for public agents
	Name           string         `gorm:"not null" json:"name"`
	Description    string         `gorm:"type:text" json:"description"`
	Role           string         `gorm:"size:50;not null;check:role IN ('actor', 'critic', 'qa')" json:"role"`
	Provider       string         `gorm:"size:50;not null;check:provider IN ('gemini', 'ollama')" json:"provider"`
	Model          string         `gorm:"size:100;not null" json:"model"`
	PromptTemplate string         `gorm:"type:text;not null" json:"prompt_template"`
	Temperature    float64        `gorm:"type:decimal(3,2);default:0.20" json:"temperature"`
	UseRetrieval   bool           `gorm:"default:true" json:"use_retrieval"` // augment prompts with vector-store passages
	IsPublic       bool           `gorm:"default:false" json:"is_public"`
	IsActive       bool           `gorm:"default:true" json:"is_active"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// Section chunking strategies used when splitting a document version into
// units of pipeline work.
const (
	ChunkPerSection  = "per_section"  // one unit per document section
	ChunkMergeSmall  = "merge_small"  // adjacent small sections merged up to the window
	ChunkFixedWindow = "fixed_window" // fixed-size character windows, section-agnostic
)

// ModelProfile captures the operational envelope of a provider/model pair:
// how long to wait for it, how much output to allow, and how documents should
// be chunked when that model does the work.
type ModelProfile struct {
	ID             string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Provider       string         `gorm:"size:50;not null;check:provider IN ('gemini', 'ollama')" json:"provider"`
	Model          string         `gorm:"size:100;not null" json:"model"`
	TimeoutSeconds int            `gorm:"not null;default:60" json:"timeout_seconds"`
	MaxTokens      int            `gorm:"not null;default:2048" json:"max_tokens"`
	ContextWindow  int            `gorm:"not null;default:8192" json:"context_window"`
	ChunkStrategy  string         `gorm:"size:50;not null;default:'per_section';check:chunk_strategy IN ('per_section', 'merge_small', 'fixed_window')" json:"chunk_strategy"`
	ChunkWindow    int            `gorm:"not null;default:4000" json:"chunk_window"` // characters per unit for merge_small/fixed_window
	BatchSize      int            `gorm:"not null;default:3" json:"batch_size"`      // concurrency limit for batched stages
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}
