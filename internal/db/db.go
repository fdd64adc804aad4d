package db

import (
	"errors"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pysugar/dataroom/internal/db/models"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound is returned by lookups that matched no row visible to the caller.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyImported is returned by CreateFile when the Drive file is already
// imported into the dataroom.
var ErrAlreadyImported = errors.New("file already imported into dataroom")

// InitDB opens the database named by dsn and runs migrations.
// postgres:// and postgresql:// URLs use the Postgres driver; anything else is a SQLite path.
func InitDB(dsn string, log *logrus.Logger) (*gorm.DB, error) {
	db, err := Open(dsn, log)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Open connects without migrating.
func Open(dsn string, log *logrus.Logger) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: newGormLogger(log), TranslateError: true}
	if isPostgres(dsn) {
		return gorm.Open(postgres.Open(dsn), cfg)
	}
	db, err := gorm.Open(sqlite.Open(sqliteDSN(dsn)), cfg)
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY under concurrent requests.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// Migrate creates or updates the schema for every model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{}, &models.OAuthAccount{}, &models.Dataroom{}, &models.File{})
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// sqliteDSN turns on foreign keys and a busy timeout unless the caller set pragmas already.
func sqliteDSN(dsn string) string {
	dsn = strings.TrimPrefix(dsn, "sqlite://")
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func newGormLogger(log *logrus.Logger) logger.Interface {
	if log == nil {
		return logger.Default.LogMode(logger.Silent)
	}
	level := logger.Warn
	if log.IsLevelEnabled(logrus.DebugLevel) {
		level = logger.Info
	}
	return logger.New(log, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
