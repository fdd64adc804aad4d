package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/pysugar/dataroom/internal/api/middleware"
	"github.com/pysugar/dataroom/internal/apperr"
	"github.com/pysugar/dataroom/internal/auth/google"
	"github.com/pysugar/dataroom/internal/db"
	"github.com/pysugar/dataroom/internal/db/models"
	"github.com/pysugar/dataroom/internal/drive"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// DriveFilesHandler lists the caller's Drive files. Without a folder_id query
// parameter the listing is scoped to defaultFolderID; an empty one means the whole drive.
func DriveFilesHandler(database *gorm.DB, tokens TokenSource, client DriveClient, defaultFolderID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.CurrentUser(r.Context())

		acct, err := linkedAccount(database, user)
		if err != nil {
			writeError(w, r, "drive.list", err, apperr.CodeDriveError)
			return
		}
		accessToken, err := tokens.EnsureValidAccessToken(r.Context(), acct)
		if err != nil {
			writeError(w, r, "drive.list", err, apperr.CodeDriveError)
			return
		}

		q := r.URL.Query()
		folderID := defaultFolderID
		if v, ok := q["folder_id"]; ok {
			folderID = v[0]
		}
		res, err := client.ListFiles(r.Context(), accessToken, drive.ListOptions{
			PageSize:  pageSize(q.Get("page_size")),
			PageToken: q.Get("page_token"),
			Query:     q.Get("q"),
			FolderID:  folderID,
		})
		if err != nil {
			writeError(w, r, "drive.list", err, apperr.CodeDriveError)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// pageSize parses page_size, falling back to the default and clamping to [1, 100].
func pageSize(raw string) int64 {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultPageSize
	}
	switch {
	case n < 1:
		return 1
	case n > maxPageSize:
		return maxPageSize
	}
	return int64(n)
}

func linkedAccount(database *gorm.DB, user *models.User) (*models.OAuthAccount, error) {
	acct, err := db.FindOAuthAccount(database, user.ID, google.Provider)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.New(apperr.CodeGoogleNotConnected, "Please connect your Google account first")
	}
	return acct, err
}
