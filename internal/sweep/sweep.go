// Package sweep removes blobs that no file row references, such as those left
// behind when a best-effort removal failed.
package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/pysugar/dataroom/internal/db"
	"github.com/pysugar/dataroom/internal/storage"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DefaultMinAge keeps blobs of in-flight imports, which are written before their row.
const DefaultMinAge = time.Hour

// Options controls a sweep. Zero values fall back to DefaultMinAge, time.Now
// and the standard logrus logger.
type Options struct {
	DryRun bool
	MinAge time.Duration
	Now    func() time.Time
	Logger logrus.FieldLogger
}

// Report summarizes one sweep.
type Report struct {
	Scanned  int
	Orphaned int
	Removed  int
	Failed   int
}

// Run walks the store and removes unreferenced blobs older than MinAge.
func Run(ctx context.Context, database *gorm.DB, store *storage.Store, opts Options) (*Report, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MinAge <= 0 {
		opts.MinAge = DefaultMinAge
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	referenced, err := db.ReferencedStoragePaths(database)
	if err != nil {
		return nil, fmt.Errorf("load referenced paths: %w", err)
	}

	cutoff := opts.Now().Add(-opts.MinAge)
	report := &Report{}
	err = store.Walk(func(path string, modTime time.Time) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		report.Scanned++
		if _, ok := referenced[path]; ok || modTime.After(cutoff) {
			return nil
		}
		report.Orphaned++

		log := opts.Logger.WithField("path", path)
		if opts.DryRun {
			log.Info("orphaned blob")
			return nil
		}
		if store.Remove(path) {
			report.Removed++
			log.Info("removed orphaned blob")
		} else {
			report.Failed++
			log.Warn("failed to remove orphaned blob")
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("walk store: %w", err)
	}
	return report, nil
}
