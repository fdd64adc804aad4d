package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Dataroom is a named collection of imported files owned by one user.
type Dataroom struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      string    `gorm:"size:36;not null;index" json:"user_id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// FileCount is the number of imported files; filled by queries, not stored.
	FileCount int64 `gorm:"-" json:"file_count"`

	Files []File `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeCreate assigns a UUID when the caller did not.
func (d *Dataroom) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}
