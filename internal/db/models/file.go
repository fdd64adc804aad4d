package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// File lifecycle states. Only imported files are visible through the API.
const (
	FileStatusImported = "imported"
	FileStatusDeleted  = "deleted"
	FileStatusFailed   = "failed"
)

// File is the metadata and blob reference of one imported document.
// UserID duplicates the dataroom owner so ownership checks need no join.
// A Drive file is imported into a dataroom at most once while it is live,
// enforced by the partial unique index idx_files_imported_source.
type File struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	DataroomID   string    `gorm:"size:36;not null;index:idx_files_dataroom_source,priority:1;uniqueIndex:idx_files_imported_source,priority:1,where:status = 'imported'" json:"dataroom_id"`
	UserID       string    `gorm:"size:36;not null;index" json:"-"`
	GoogleFileID *string   `gorm:"size:255;index:idx_files_dataroom_source,priority:2;uniqueIndex:idx_files_imported_source,priority:2,where:status = 'imported'" json:"google_file_id"`
	Name         string    `gorm:"size:500;not null" json:"name"`
	MimeType     string    `gorm:"size:255" json:"mime_type"`
	SizeBytes    int64     `json:"size_bytes"`
	StoragePath  string    `gorm:"size:1000" json:"-"`
	OriginalURL  string    `gorm:"type:text" json:"original_url"`
	Status       string    `gorm:"size:50;not null;default:imported;index:idx_files_dataroom_source,priority:3" json:"status"`
	ImportedAt   time.Time `json:"imported_at"`
}

// BeforeCreate assigns a UUID and import time when the caller did not.
func (f *File) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.ImportedAt.IsZero() {
		f.ImportedAt = time.Now().UTC()
	}
	return nil
}
