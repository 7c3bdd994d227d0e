package database

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/circobit/fyyur-event-management/pkg/fyyur/models"
)

var DB *gorm.DB

// Options selects the driver and pool settings for Connect
type Options struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open returns a GORM handle for the configured driver with the genre join tables registered.
// Constraint violations come back as gorm.ErrDuplicatedKey / gorm.ErrForeignKeyViolated.
func Open(opts Options) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch opts.Driver {
	case "postgres":
		dialector = postgres.Open(opts.DSN)
	case "sqlite", "":
		dialector = sqlite.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newLogger(),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", opts.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := models.SetupJoinTables(db); err != nil {
		return nil, fmt.Errorf("registering join tables: %w", err)
	}

	return db, nil
}

// Connect initializes the package level database connection.
func Connect(opts Options) error {
	db, err := Open(opts)
	if err != nil {
		return err
	}
	DB = db
	log.Info().Str("driver", opts.Driver).Msg("Database connected")
	return nil
}

// GetDB returns the database instance.
func GetDB() *gorm.DB {
	return DB
}

// Migrate runs auto-migration on the package level connection
func Migrate() error {
	if DB == nil {
		return fmt.Errorf("database not connected")
	}
	log.Info().Msg("Running database migrations")
	if err := models.AutoMigrate(DB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// newLogger routes GORM's logger through zerolog, following the global level.
func newLogger() logger.Interface {
	level := logger.Warn
	switch zerolog.GlobalLevel() {
	case zerolog.TraceLevel, zerolog.DebugLevel:
		level = logger.Info
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		level = logger.Error
	case zerolog.Disabled:
		level = logger.Silent
	}

	gormLog := log.With().Str("component", "gorm").Logger()
	return logger.New(&gormLog, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
