package models

import (
	"time"

	"gorm.io/gorm"
)

// CalendarEvent is a user-scheduled compliance deadline or review slot.
type CalendarEvent struct {
	ID        string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID    string         `gorm:"type:uuid;not null;index" json:"user_id"`
	Title     string         `gorm:"not null" json:"title"`
	Notes     string         `gorm:"type:text" json:"notes,omitempty"`
	StartsAt  time.Time      `gorm:"not null;index" json:"starts_at"`
	EndsAt    time.Time      `gorm:"not null" json:"ends_at"`
	AllDay    bool           `gorm:"default:false" json:"all_day"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
