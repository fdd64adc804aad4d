package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/pysugar/dataroom/internal/apperr"
	"github.com/pysugar/dataroom/internal/auth/session"
	"github.com/pysugar/dataroom/internal/db"
	"github.com/pysugar/dataroom/internal/db/models"
	"github.com/pysugar/dataroom/internal/logging"
	"gorm.io/gorm"
)

type userKey struct{}

// WithUser attaches the authenticated user to ctx.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// CurrentUser returns the user attached by SessionAuth, or nil.
func CurrentUser(ctx context.Context) *models.User {
	user, _ := ctx.Value(userKey{}).(*models.User)
	return user
}

// SessionAuth requires a valid "Authorization: Bearer <token>" whose user still exists.
func SessionAuth(database *gorm.DB, issuer *session.Issuer) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				apperr.Write(w, apperr.New(apperr.CodeUnauthorized, "Missing or invalid authorization header"), "")
				return
			}

			userID, err := issuer.Verify(strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")))
			if err != nil {
				apperr.Write(w, apperr.New(apperr.CodeUnauthorized, "Invalid or expired token"), "")
				return
			}

			user, err := db.GetUser(database, userID)
			if err != nil {
				if errors.Is(err, db.ErrNotFound) {
					apperr.Write(w, apperr.New(apperr.CodeUnauthorized, "User not found"), "")
					return
				}
				logging.FromContext(r.Context()).WithError(err).WithField("user_id", userID).Error("load session user")
				apperr.Write(w, err, apperr.CodeDatabaseError)
				return
			}

			ctx := WithUser(r.Context(), user)
			ctx = logging.WithEntry(ctx, logging.FromContext(ctx).WithField("user_id", user.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
