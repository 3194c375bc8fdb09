package database

import (
	"fmt"
	"sync"

	"github.com/ksred/klear-journal/internal/cleanup"
	"github.com/ksred/klear-journal/internal/config"
	"github.com/ksred/klear-journal/internal/database/migrations"
	"github.com/ksred/klear-journal/internal/types"
	"github.com/ksred/klear-journal/internal/users"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	handle  *gorm.DB
	openErr error
	once    sync.Once
)

// Get opens the process-wide database handle on first use and returns the
// same handle afterwards. The configuration of the first call wins.
func Get(cfg config.Database, debug bool) (*gorm.DB, error) {
	once.Do(func() {
		handle, openErr = NewDatabase(cfg, debug)
	})
	return handle, openErr
}

// NewDatabase opens a GORM connection for the configured driver and runs migrations
func NewDatabase(cfg config.Database, debug bool) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	logLevel := logger.Warn
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates every table and index the journal needs
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&users.User{},
		&types.Trade{},
		&cleanup.ScreenshotDeletion{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	if err := migrations.AddTradeIndexes(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
