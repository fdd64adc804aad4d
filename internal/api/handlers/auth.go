package handlers

import (
	"errors"
	"net/http"

	"github.com/pysugar/dataroom/internal/api/middleware"
	"github.com/pysugar/dataroom/internal/apperr"
	"github.com/pysugar/dataroom/internal/auth/google"
	"github.com/pysugar/dataroom/internal/db"
	"github.com/pysugar/dataroom/internal/db/models"
	"gorm.io/gorm"
)

type meResponse struct {
	User            *models.User `json:"user"`
	GoogleConnected bool         `json:"google_connected"`
}

// MeHandler returns the session user and whether Google is linked.
func MeHandler(database *gorm.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.CurrentUser(r.Context())

		connected := true
		if _, err := db.FindOAuthAccount(database, user.ID, google.Provider); err != nil {
			if !errors.Is(err, db.ErrNotFound) {
				writeError(w, r, "auth.me", err, apperr.CodeDatabaseError)
				return
			}
			connected = false
		}
		writeJSON(w, http.StatusOK, meResponse{User: user, GoogleConnected: connected})
	}
}

// LogoutHandler acknowledges a logout. Sessions are stateless; the client drops its token.
func LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
	}
}
