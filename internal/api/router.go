// Package api assembles the HTTP router.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/pysugar/dataroom/internal/api/handlers"
	"github.com/pysugar/dataroom/internal/api/middleware"
	"github.com/pysugar/dataroom/internal/apperr"
	"github.com/pysugar/dataroom/internal/auth/google"
	"github.com/pysugar/dataroom/internal/auth/session"
	"github.com/pysugar/dataroom/internal/config"
	"github.com/pysugar/dataroom/internal/metrics"
	"github.com/pysugar/dataroom/internal/storage"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Deps are the long-lived components the routes are built from.
type Deps struct {
	Config  *config.Config
	DB      *gorm.DB
	Logger  *logrus.Logger
	Issuer  *session.Issuer
	Google  google.Authenticator
	Tokens  handlers.TokenSource
	Drive   handlers.DriveClient
	Store   *storage.Store
	Metrics *metrics.Metrics
}

// NewRouter wires every route. Everything except health, metrics and the
// two OAuth redirect endpoints requires a session.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics(d.Metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Config.AllowedOrigins(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apperr.WriteCode(w, http.StatusNotFound, apperr.CodeNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apperr.WriteCode(w, http.StatusMethodNotAllowed, apperr.CodeValidation, "Method not allowed")
	})

	r.Get("/health", handlers.HealthHandler())
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	sessionAuth := middleware.SessionAuth(d.DB, d.Issuer)

	r.Route("/auth", func(r chi.Router) {
		r.Get("/google/start", google.HandleStart(d.Config.Google))
		r.Get("/google/callback", google.HandleCallback(d.DB, d.Google, d.Issuer, d.Config))

		r.Group(func(r chi.Router) {
			r.Use(sessionAuth)
			r.Get("/me", handlers.MeHandler(d.DB))
			r.Post("/logout", handlers.LogoutHandler())
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(sessionAuth)

		r.Get("/drive/files", handlers.DriveFilesHandler(d.DB, d.Tokens, d.Drive, d.Config.Google.DriveFolderID))

		r.Route("/datarooms", func(r chi.Router) {
			r.Get("/", handlers.ListDataroomsHandler(d.DB))
			r.Post("/", handlers.CreateDataroomHandler(d.DB))
			r.Get("/{dataroomID}", handlers.GetDataroomHandler(d.DB))
			r.Put("/{dataroomID}", handlers.UpdateDataroomHandler(d.DB))
			r.Delete("/{dataroomID}", handlers.DeleteDataroomHandler(d.DB, d.Store))
			r.Get("/{dataroomID}/files", handlers.ListDataroomFilesHandler(d.DB))
		})

		r.Route("/files", func(r chi.Router) {
			r.Post("/import", handlers.ImportFileHandler(d.DB, d.Tokens, d.Drive, d.Store, d.Metrics))
			r.Get("/{fileID}", handlers.GetFileHandler(d.DB))
			r.Get("/{fileID}/download", handlers.DownloadFileHandler(d.DB, d.Store))
			r.Delete("/{fileID}", handlers.DeleteFileHandler(d.DB, d.Store))
		})
	})

	return r
}
