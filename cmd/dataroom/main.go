package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pysugar/dataroom/internal/api"
	"github.com/pysugar/dataroom/internal/auth/google"
	"github.com/pysugar/dataroom/internal/auth/session"
	"github.com/pysugar/dataroom/internal/auth/token"
	"github.com/pysugar/dataroom/internal/config"
	"github.com/pysugar/dataroom/internal/db"
	"github.com/pysugar/dataroom/internal/drive"
	"github.com/pysugar/dataroom/internal/logging"
	"github.com/pysugar/dataroom/internal/metrics"
	"github.com/pysugar/dataroom/internal/storage"
	"github.com/pysugar/dataroom/internal/sweep"
	"github.com/pysugar/dataroom/internal/version"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "dataroom",
	Short:         "Dataroom backend: Google sign-in, Drive import and file storage",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(false)
		if err != nil {
			return err
		}
		database, err := db.InitDB(cfg.DatabaseURL, logger)
		if err != nil {
			return fail(logger, "failed to migrate database", err)
		}
		closeDB(logger, database)
		logger.Info("database schema is up to date")
		return nil
	},
}

var (
	sweepDryRun bool
	sweepMinAge time.Duration
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove stored blobs that no file references",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(false)
		if err != nil {
			return err
		}
		database, err := db.InitDB(cfg.DatabaseURL, logger)
		if err != nil {
			return fail(logger, "failed to initialize database", err)
		}
		defer closeDB(logger, database)

		report, err := sweep.Run(cmd.Context(), database, storage.New(cfg.StoragePath), sweep.Options{
			DryRun: sweepDryRun,
			MinAge: sweepMinAge,
			Logger: logger,
		})
		if err != nil {
			return fail(logger, "sweep failed", err)
		}
		logger.WithFields(logrus.Fields{
			"dry_run":  sweepDryRun,
			"scanned":  report.Scanned,
			"orphaned": report.Orphaned,
			"removed":  report.Removed,
			"failed":   report.Failed,
		}).Info("sweep finished")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String())
	},
}

func init() {
	sweepCmd.Flags().BoolVar(&sweepDryRun, "dry-run", false, "report orphaned blobs without removing them")
	sweepCmd.Flags().DurationVar(&sweepMinAge, "min-age", sweep.DefaultMinAge, "only remove blobs older than this")

	rootCmd.AddCommand(serveCmd, migrateCmd, sweepCmd, versionCmd)
}

// setup loads the config and builds the logger every command shares.
func setup(requireSecrets bool) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, fmt.Errorf("configuring logger: %w", err)
	}
	if requireSecrets {
		if err := cfg.Validate(); err != nil {
			return nil, nil, fail(logger, "invalid configuration", err)
		}
		if cfg.Google.ClientID == "" || cfg.Google.ClientSecret == "" {
			logger.Warn("GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET not set, Google sign-in will fail")
		}
	}
	return cfg, logger, nil
}

func serve(ctx context.Context) error {
	cfg, logger, err := setup(true)
	if err != nil {
		return err
	}

	database, err := db.InitDB(cfg.DatabaseURL, logger)
	if err != nil {
		return fail(logger, "failed to initialize database", err)
	}
	defer closeDB(logger, database)

	m := metrics.New()
	googleClient := google.NewClient(cfg.Google)
	router := api.NewRouter(api.Deps{
		Config:  cfg,
		DB:      database,
		Logger:  logger,
		Issuer:  session.NewIssuer(cfg.JWTSecret, time.Duration(cfg.JWTExpiryHours)*time.Hour),
		Google:  googleClient,
		Tokens:  token.NewManager(database, googleClient, m),
		Drive:   drive.NewClient(cfg.Google),
		Store:   storage.New(cfg.StoragePath),
		Metrics: m,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"addr":     cfg.Addr(),
			"version":  version.Version,
			"frontend": cfg.FrontendOrigin,
			"storage":  cfg.StoragePath,
		}).Info("dataroom server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fail(logger, "server failed", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fail(logger, "graceful shutdown failed", err)
	}
	logger.Info("server stopped")
	return nil
}

func closeDB(logger *logrus.Logger, database *gorm.DB) {
	sqlDB, err := database.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		logger.WithError(err).Warn("failed to close database")
	}
}

func fail(logger *logrus.Logger, msg string, err error) error {
	logger.WithError(err).Error(msg)
	return err
}
