package database

import (
	"fmt"
	"time"

	"riteswipe-api/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the configured database. driver is "sqlite" or "postgres".
// A nil log silences GORM.
func Open(driver, dsn string, log *logrus.Entry) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		// glebarez/sqlite is a pure Go implementation (no CGO required)
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	gormLogger := logger.Default.LogMode(logger.Silent)
	if log != nil {
		gormLogger = logger.New(log, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLevel(log.Logger.GetLevel()),
			IgnoreRecordNotFoundError: true,
		})
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", driver, err)
	}

	if driver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("getting sql handle: %w", err)
		}
		// SQLite allows one writer; serialising on one connection avoids SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

func gormLevel(level logrus.Level) logger.LogLevel {
	switch {
	case level >= logrus.DebugLevel:
		return logger.Info
	case level >= logrus.WarnLevel:
		return logger.Warn
	default:
		return logger.Error
	}
}

// Migrate creates or updates tables for every model.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

// DriverName returns the database/sql driver name behind db, used when
// wrapping the connection pool with sqlx.
func DriverName(db *gorm.DB) string {
	if db.Dialector.Name() == "postgres" {
		return "pgx"
	}
	return "sqlite"
}
