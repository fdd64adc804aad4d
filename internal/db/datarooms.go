package db

import (
	"github.com/pysugar/dataroom/internal/db/models"
	"gorm.io/gorm"
)

// ListDatarooms returns the user's datarooms, newest first, with file counts.
func ListDatarooms(db *gorm.DB, userID string) ([]models.Dataroom, error) {
	var rooms []models.Dataroom
	if err := db.Where("user_id = ?", userID).Order("created_at DESC").Find(&rooms).Error; err != nil {
		return nil, err
	}
	counts, err := importedCounts(db, userID)
	if err != nil {
		return nil, err
	}
	for i := range rooms {
		rooms[i].FileCount = counts[rooms[i].ID]
	}
	return rooms, nil
}

// CreateDataroom inserts a dataroom owned by userID.
func CreateDataroom(db *gorm.DB, userID, name, description string) (*models.Dataroom, error) {
	room := models.Dataroom{UserID: userID, Name: name, Description: description}
	if err := db.Create(&room).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

// GetDataroom loads one of the user's datarooms. Rooms owned by others are ErrNotFound.
func GetDataroom(db *gorm.DB, userID, id string) (*models.Dataroom, error) {
	var room models.Dataroom
	if err := db.Where("id = ? AND user_id = ?", id, userID).First(&room).Error; err != nil {
		return nil, notFound(err)
	}
	if err := db.Model(&models.File{}).
		Where("dataroom_id = ? AND status = ?", room.ID, models.FileStatusImported).
		Count(&room.FileCount).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

// UpdateDataroom applies non-nil fields. An empty name is ignored.
func UpdateDataroom(db *gorm.DB, userID, id string, name, description *string) (*models.Dataroom, error) {
	room, err := GetDataroom(db, userID, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if name != nil && *name != "" {
		updates["name"] = *name
	}
	if description != nil {
		updates["description"] = *description
	}
	if len(updates) > 0 {
		if err := db.Model(room).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return room, nil
}

// DeleteDataroom removes the dataroom and all of its file rows, returning the
// blob paths those rows referenced so the caller can remove them.
func DeleteDataroom(db *gorm.DB, userID, id string) ([]string, error) {
	var paths []string
	err := db.Transaction(func(tx *gorm.DB) error {
		var room models.Dataroom
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&room).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Model(&models.File{}).
			Where("dataroom_id = ? AND storage_path <> ''", room.ID).
			Pluck("storage_path", &paths).Error; err != nil {
			return err
		}
		if err := tx.Where("dataroom_id = ?", room.ID).Delete(&models.File{}).Error; err != nil {
			return err
		}
		return tx.Delete(&room).Error
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

func importedCounts(db *gorm.DB, userID string) (map[string]int64, error) {
	var rows []struct {
		DataroomID string
		Total      int64
	}
	err := db.Model(&models.File{}).
		Select("dataroom_id, COUNT(*) AS total").
		Where("user_id = ? AND status = ?", userID, models.FileStatusImported).
		Group("dataroom_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.DataroomID] = r.Total
	}
	return counts, nil
}
