// Package sqlite contains the concrete implementation of the persistence
// layer using GORM and SQLite. The output dataset is a single database
// file shared with the downstream analysis tooling.
package sqlite

import (
	"log/slog"
	"os"
	"path/filepath"

	"overlay/config"
	"overlay/internal/errors"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// New opens (creating if necessary) the SQLite database the route_traffic
// table lives in.
func New(cfg *config.Config, logger *slog.Logger) (*gorm.DB, error) {
	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "create database dir %s", dir)
		}
	}

	db, err := gorm.Open(sqlite.Open(cfg.Database.Path), &gorm.Config{
		Logger: newGormSlogLogger(logger, cfg),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite database %s", cfg.Database.Path)
	}

	return db, nil
}
