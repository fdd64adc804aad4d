package handlers

import (
	"bytes"
	"errors"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pysugar/dataroom/internal/api/middleware"
	"github.com/pysugar/dataroom/internal/apperr"
	"github.com/pysugar/dataroom/internal/db"
	"github.com/pysugar/dataroom/internal/db/models"
	"github.com/pysugar/dataroom/internal/drive"
	"github.com/pysugar/dataroom/internal/logging"
	"github.com/pysugar/dataroom/internal/metrics"
	"github.com/pysugar/dataroom/internal/storage"
	"gorm.io/gorm"
)

type importRequest struct {
	DataroomID   string `json:"dataroom_id" validate:"required"`
	GoogleFileID string `json:"google_file_id" validate:"required"`
}

func errFileNotFound() error {
	return apperr.New(apperr.CodeNotFound, "File not found")
}

func errAlreadyImported() error {
	return apperr.New(apperr.CodeAlreadyExists, "This file has already been imported to this dataroom")
}

func fileLookupError(err error) error {
	if errors.Is(err, db.ErrNotFound) {
		return errFileNotFound()
	}
	return err
}

// ImportFileHandler copies a Drive file into one of the caller's datarooms.
// The file row is inserted only after the content is on disk.
func ImportFileHandler(database *gorm.DB, tokens TokenSource, client DriveClient, store *storage.Store, m *metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		user := middleware.CurrentUser(ctx)

		var req importRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, r, "files.import", err, apperr.CodeValidation)
			return
		}

		room, err := db.GetDataroom(database, user.ID, req.DataroomID)
		if err != nil {
			writeError(w, r, "files.import", dataroomLookupError(err), apperr.CodeDatabaseError)
			return
		}
		exists, err := db.ImportedFileExists(database, room.ID, req.GoogleFileID)
		if err != nil {
			writeError(w, r, "files.import", err, apperr.CodeDatabaseError)
			return
		}
		if exists {
			m.Import(metrics.ResultSkipped)
			writeError(w, r, "files.import", errAlreadyImported(), "")
			return
		}

		fail := func(err error) {
			m.Import(metrics.ResultFailure)
			writeError(w, r, "files.import", err, apperr.CodeImportFailed)
		}

		acct, err := linkedAccount(database, user)
		if err != nil {
			fail(err)
			return
		}
		accessToken, err := tokens.EnsureValidAccessToken(ctx, acct)
		if err != nil {
			fail(err)
			return
		}
		md, err := client.GetMetadata(ctx, accessToken, req.GoogleFileID)
		if err != nil {
			fail(err)
			return
		}
		content, err := client.Download(ctx, accessToken, req.GoogleFileID, md.MimeType)
		if err != nil {
			fail(err)
			return
		}

		fileID := uuid.New().String()
		path := store.PathFor(user.ID, room.ID, fileID+drive.ExtensionForMimeType(md.MimeType))
		size, err := store.Write(path, content)
		if err != nil {
			fail(apperr.Wrap(err, apperr.CodeImportFailed, "Failed to import file: could not store content"))
			return
		}

		googleFileID := req.GoogleFileID
		file := &models.File{
			ID:           fileID,
			DataroomID:   room.ID,
			UserID:       user.ID,
			GoogleFileID: &googleFileID,
			Name:         md.Name,
			MimeType:     md.MimeType,
			SizeBytes:    size,
			StoragePath:  path,
			OriginalURL:  md.WebViewLink,
			Status:       models.FileStatusImported,
			ImportedAt:   time.Now().UTC(),
		}
		if err := db.CreateFile(database, file); err != nil {
			store.Remove(path)
			if errors.Is(err, db.ErrAlreadyImported) {
				// a concurrent import of the same file won the insert
				m.Import(metrics.ResultSkipped)
				writeError(w, r, "files.import", errAlreadyImported(), "")
				return
			}
			fail(apperr.Wrap(err, apperr.CodeImportFailed, "Failed to import file: could not save record"))
			return
		}

		m.Import(metrics.ResultSuccess)
		logging.FromContext(ctx).
			WithField("file_id", file.ID).
			WithField("dataroom_id", room.ID).
			WithField("size_bytes", size).
			Info("file imported")
		writeJSON(w, http.StatusCreated, file)
	}
}

// GetFileHandler returns an imported file's metadata.
func GetFileHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.CurrentUser(r.Context())
		file, err := db.GetImportedFile(database, user.ID, chi.URLParam(r, "fileID"))
		if err != nil {
			writeError(w, r, "files.get", fileLookupError(err), apperr.CodeDatabaseError)
			return
		}
		writeJSON(w, http.StatusOK, file)
	}
}

// DownloadFileHandler streams an imported file's content as an attachment.
func DownloadFileHandler(database *gorm.DB, store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.CurrentUser(r.Context())
		file, err := db.GetImportedFile(database, user.ID, chi.URLParam(r, "fileID"))
		if err != nil {
			writeError(w, r, "files.download", fileLookupError(err), apperr.CodeDatabaseError)
			return
		}
		if file.StoragePath == "" {
			writeError(w, r, "files.download", apperr.New(apperr.CodeFileNotStored, "File content not available"), "")
			return
		}

		data, err := store.Read(file.StoragePath)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				err = apperr.New(apperr.CodeFileNotFound, "File not found on disk")
			}
			writeError(w, r, "files.download", err, apperr.CodeInternal)
			return
		}

		contentType := file.MimeType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		disposition := mime.FormatMediaType("attachment", map[string]string{"filename": file.Name})
		if disposition == "" {
			disposition = "attachment"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", disposition)
		http.ServeContent(w, r, file.Name, file.ImportedAt, bytes.NewReader(data))
	}
}

// DeleteFileHandler marks an imported file deleted and removes its blob.
// The row itself is kept.
func DeleteFileHandler(database *gorm.DB, store *storage.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.CurrentUser(r.Context())
		fileID := chi.URLParam(r, "fileID")

		file, err := db.GetImportedFile(database, user.ID, fileID)
		if err != nil {
			writeError(w, r, "files.delete", fileLookupError(err), apperr.CodeDatabaseError)
			return
		}
		if err := db.MarkFileDeleted(database, user.ID, file.ID); err != nil {
			writeError(w, r, "files.delete", fileLookupError(err), apperr.CodeDatabaseError)
			return
		}
		if file.StoragePath != "" {
			store.Remove(file.StoragePath)
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "File deleted successfully"})
	}
}
