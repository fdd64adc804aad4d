package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pysugar/dataroom/internal/api/middleware"
	"github.com/pysugar/dataroom/internal/apperr"
	"github.com/pysugar/dataroom/internal/db"
	"github.com/pysugar/dataroom/internal/db/models"
	"github.com/pysugar/dataroom/internal/logging"
	"github.com/pysugar/dataroom/internal/storage"
	"gorm.io/gorm"
)

type createDataroomRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

type updateDataroomRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type dataroomWithFiles struct {
	*models.Dataroom
	Files []models.File `json:"files"`
}

func errDataroomNotFound() error {
	return apperr.New(apperr.CodeNotFound, "Dataroom not found")
}

func dataroomLookupError(err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return errDataroomNotFound()
	}
	return err
}

// ListDataroomsHandler returns the caller's datarooms, newest first.
func ListDataroomsHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.CurrentUser(r.Context())
		rooms, err := db.ListDatarooms(database, user.ID)
		if err != nil {
			writeError(w, r, "datarooms.list", err, apperr.CodeDatabaseError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"datarooms": rooms})
	}
}

// CreateDataroomHandler creates a dataroom from {name, description?}.
func CreateDataroomHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.CurrentUser(r.Context())

		var req createDataroomRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, r, "datarooms.create", err, apperr.CodeValidation)
			return
		}
		name := strings.TrimSpace(req.Name)
		if name == "" {
			writeError(w, r, "datarooms.create", apperr.New(apperr.CodeValidation, "name is required"), apperr.CodeValidation)
			return
		}

		room, err := db.CreateDataroom(database, user.ID, name, req.Description)
		if err != nil {
			writeError(w, r, "datarooms.create", err, apperr.CodeDatabaseError)
			return
		}
		writeJSON(w, http.StatusCreated, room)
	}
}

// GetDataroomHandler returns one dataroom with its imported files.
func GetDataroomHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.CurrentUser(r.Context())

		room, err := db.GetDataroom(database, user.ID, chi.URLParam(r, "dataroomID"))
		if err != nil {
			writeError(w, r, "datarooms.get", dataroomLookupError(err), apperr.CodeDatabaseError)
			return
		}
		files, err := db.ListDataroomFiles(database, room.ID)
		if err != nil {
			writeError(w, r, "datarooms.get", err, apperr.CodeDatabaseError)
			return
		}
		writeJSON(w, http.StatusOK, dataroomWithFiles{Dataroom: room, Files: files})
	}
}

// UpdateDataroomHandler renames a dataroom and/or changes its description.
// An empty name is ignored; a present description is always applied.
func UpdateDataroomHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.CurrentUser(r.Context())
		dataroomID := chi.URLParam(r, "dataroomID")

		if _, err := db.GetDataroom(database, user.ID, dataroomID); err != nil {
			writeError(w, r, "datarooms.update", dataroomLookupError(err), apperr.CodeDatabaseError)
			return
		}

		var req updateDataroomRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, r, "datarooms.update", err, apperr.CodeValidation)
			return
		}
		if req.Name != nil {
			trimmed := strings.TrimSpace(*req.Name)
			req.Name = &trimmed
		}

		room, err := db.UpdateDataroom(database, user.ID, dataroomID, req.Name, req.Description)
		if err != nil {
			writeError(w, r, "datarooms.update", dataroomLookupError(err), apperr.CodeDatabaseError)
			return
		}
		writeJSON(w, http.StatusOK, room)
	}
}

// DeleteDataroomHandler deletes a dataroom, its file rows and their blobs.
// Blob removal is best-effort; leftovers are collected by the sweep command.
func DeleteDataroomHandler(database *gorm.DB, store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.CurrentUser(r.Context())

		paths, err := db.DeleteDataroom(database, user.ID, chi.URLParam(r, "dataroomID"))
		if err != nil {
			writeError(w, r, "datarooms.delete", dataroomLookupError(err), apperr.CodeDatabaseError)
			return
		}
		removed := 0
		for _, p := range paths {
			if store.Remove(p) {
				removed++
			}
		}
		logging.FromContext(r.Context()).
			WithField("blobs", len(paths)).
			WithField("removed", removed).
			Debug("dataroom deleted")

		writeJSON(w, http.StatusOK, messageResponse{Message: "Dataroom deleted successfully"})
	}
}

// ListDataroomFilesHandler returns a dataroom's imported files, newest first.
func ListDataroomFilesHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.CurrentUser(r.Context())

		room, err := db.GetDataroom(database, user.ID, chi.URLParam(r, "dataroomID"))
		if err != nil {
			writeError(w, r, "datarooms.files", dataroomLookupError(err), apperr.CodeDatabaseError)
			return
		}
		files, err := db.ListDataroomFiles(database, room.ID)
		if err != nil {
			writeError(w, r, "datarooms.files", err, apperr.CodeDatabaseError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"files": files})
	}
}
