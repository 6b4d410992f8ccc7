package models

import (
	"time"

	"gorm.io/gorm"
)

// Stage execution modes.
const (
	ModeSequential = "sequential"
	ModeParallel   = "parallel"
	ModeBatched    = "batched"
)

// AgentSet is an ordered list of stages used to orchestrate multi-step
// document analysis. Each stage assigns one or more agents and an execution
// mode; stage outputs feed the next stage as context.
type AgentSet struct {
	ID          string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID      *string        `gorm:"type:uuid;index" json:"user_id,omitempty"` // NULL for public sets
	Name        string         `gorm:"not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	IsPublic    bool           `gorm:"default:false" json:"is_public"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	User   *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Stages []AgentSetStage `gorm:"foreignKey:AgentSetID" json:"stages,omitempty"`
}

// AgentSetStage is one step of an agent set. Position defines stage order
// within the set; Mode defines how the stage's member agents run.
type AgentSetStage struct {
	ID         string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	AgentSetID string         `gorm:"type:uuid;not null;index" json:"agent_set_id"`
	Name       string         `gorm:"not null" json:"name"`
	Position   int            `gorm:"not null" json:"position"`
	Mode       string         `gorm:"size:50;not null;default:'sequential';check:mode IN ('sequential', 'parallel', 'batched')" json:"mode"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	AgentSet AgentSet `gorm:"foreignKey:AgentSetID" json:"-"`
	Agents   []Agent  `gorm:"many2many:agent_set_stage_members" json:"agents,omitempty"`
}
