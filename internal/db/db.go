package db

import (
	"fmt"
	"log"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"jobtracker/internal/config"
	"jobtracker/internal/model"
)

// NewMySQL returns a connected GORM DB instance.
func NewMySQL(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	return db, nil
}

// NewSQLite opens (creating if needed) a SQLite database file with foreign keys
// enforced and a busy timeout so concurrent requests wait instead of failing.
func NewSQLite(path string) (*gorm.DB, error) {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect sqlite: %w", err)
	}
	return db, nil
}

// Open connects to the database selected by cfg.DBDriver.
func Open(cfg *config.Config) (*gorm.DB, error) {
	switch cfg.DBDriver {
	case "mysql":
		return NewMySQL(cfg.MySQLDSN)
	case "sqlite", "":
		return NewSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// models lists every table in dependency order.
var models = []interface{}{
	&model.Role{},
	&model.User{},
	&model.JobPosting{},
	&model.JobApplication{},
	&model.RecruiterApplication{},
}

// Migrate creates or updates the schema for all models.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	// At most one pending recruiter application per user. MySQL has no
	// partial indexes, so there the service-level check is all there is.
	if db.Dialector.Name() == "sqlite" {
		err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_recruiter_applications_one_pending
			ON recruiter_applications(user_id) WHERE status = 'Pending'`).Error
		if err != nil {
			return fmt.Errorf("create pending index: %w", err)
		}
	}
	return nil
}

// Reset drops all tables, children first.
func Reset(db *gorm.DB) {
	if err := db.Migrator().DropTable("user_roles"); err != nil {
		log.Printf("Warning: Failed to drop table (may not exist): %v", err)
	}
	for i := len(models) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(models[i]); err != nil {
			log.Printf("Warning: Failed to drop table (may not exist): %v", err)
		}
	}
}
