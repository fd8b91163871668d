package Models

import (
	"fmt"
	"strings"

	"github.com/go-pkgz/lgr"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DatabaseConfig selects the gorm dialect and its DSN.
type DatabaseConfig struct {
	Driver string
	DSN    string
	Debug  bool
}

// Connect opens the database and migrates every table the service owns.
func Connect(cfg DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "database.db"
		}
		dialector = sqlite.Open(dsn)
	case "mysql":
		// parseTime is needed so DATE and DATETIME columns scan into time.Time
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gormConfig := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	if cfg.Debug {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}

	connection, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("could not open %s database: %w", cfg.Driver, err)
	}

	if err := Migrate(connection); err != nil {
		return nil, err
	}
	lgr.Printf("[INFO] database ready, driver=%s", dialector.Name())
	return connection, nil
}

// Migrate creates or updates the schema. Users go first since tasks and
// reports reference them.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&User{}, &DeviceToken{}); err != nil {
		return fmt.Errorf("could not migrate users: %w", err)
	}
	if err := db.AutoMigrate(&Task{}, &Report{}); err != nil {
		return fmt.Errorf("could not migrate tasks: %w", err)
	}
	if err := db.AutoMigrate(&ReminderState{}); err != nil {
		return fmt.Errorf("could not migrate reminder state: %w", err)
	}
	return nil
}
