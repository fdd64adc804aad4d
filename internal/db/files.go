package db

import (
	"errors"

	"github.com/pysugar/dataroom/internal/db/models"
	"gorm.io/gorm"
)

// ListDataroomFiles returns the imported files of a dataroom, newest first.
// The caller must have checked ownership of the dataroom.
func ListDataroomFiles(db *gorm.DB, dataroomID string) ([]models.File, error) {
	files := []models.File{}
	err := db.Where("dataroom_id = ? AND status = ?", dataroomID, models.FileStatusImported).
		Order("imported_at DESC").
		Find(&files).Error
	return files, err
}

// ImportedFileExists reports whether the Drive file is already imported into the dataroom.
func ImportedFileExists(db *gorm.DB, dataroomID, googleFileID string) (bool, error) {
	var count int64
	err := db.Model(&models.File{}).
		Where("dataroom_id = ? AND google_file_id = ? AND status = ?", dataroomID, googleFileID, models.FileStatusImported).
		Count(&count).Error
	return count > 0, err
}

// CreateFile inserts a file row. A second live import of the same Drive file
// into the same dataroom fails with ErrAlreadyImported.
func CreateFile(db *gorm.DB, file *models.File) error {
	err := db.Create(file).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrAlreadyImported
	}
	return err
}

// GetImportedFile loads one of the user's imported files. Deleted, failed and
// foreign files are ErrNotFound.
func GetImportedFile(db *gorm.DB, userID, id string) (*models.File, error) {
	var file models.File
	err := db.Where("id = ? AND user_id = ? AND status = ?", id, userID, models.FileStatusImported).
		First(&file).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &file, nil
}

// MarkFileDeleted flips an imported file to deleted. The row is kept.
func MarkFileDeleted(db *gorm.DB, userID, id string) error {
	res := db.Model(&models.File{}).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, models.FileStatusImported).
		Update("status", models.FileStatusDeleted)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ReferencedStoragePaths returns the blob paths of every imported file.
func ReferencedStoragePaths(db *gorm.DB) (map[string]struct{}, error) {
	var paths []string
	err := db.Model(&models.File{}).
		Where("status = ? AND storage_path <> ''", models.FileStatusImported).
		Pluck("storage_path", &paths).Error
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return set, nil
}
