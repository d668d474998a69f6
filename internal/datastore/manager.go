// Package datastore is the scenestore persistence and consistency layer. It
// owns scenes and their dependent detections, descriptions, annotations and
// dataset memberships, and exposes the transaction boundary every
// multi-record mutation runs under.
package datastore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/scenestore/internal/conf"
	"github.com/tphakala/scenestore/internal/datastore/entities"
	"github.com/tphakala/scenestore/internal/datastore/ids"
	"github.com/tphakala/scenestore/internal/datastore/repository"
	"github.com/tphakala/scenestore/internal/logger"
)

// Manager defines the interface for backend lifecycle operations.
type Manager interface {
	// Initialize creates the schema and seeds the identifier sequences.
	Initialize() error
	// DB returns the underlying GORM database.
	DB() *gorm.DB
	// Path returns the database location (file path for SQLite, host:port/database for MySQL).
	Path() string
	// Close closes the database connection.
	Close() error
	// Delete removes the database (file for SQLite, tables for MySQL).
	Delete() error
	// Exists checks if the database exists.
	Exists() bool
	// IsMySQL returns true if this is a MySQL manager.
	IsMySQL() bool
}

// NewManager opens the backend selected by settings.
func NewManager(settings conf.DatabaseSettings, log logger.Logger) (Manager, error) {
	switch settings.Type {
	case conf.DatabaseSQLite, "":
		return NewSQLiteManager(SQLiteConfig{
			Path:               settings.SQLite.Path,
			SlowQueryThreshold: settings.SlowQueryThreshold,
			Logger:             log,
		})
	case conf.DatabaseMySQL:
		return NewMySQLManager(&MySQLConfig{
			Host:               settings.MySQL.Host,
			Port:               settings.MySQL.Port,
			Username:           settings.MySQL.Username,
			Password:           settings.MySQL.Password,
			Database:           settings.MySQL.Database,
			SlowQueryThreshold: settings.SlowQueryThreshold,
			Logger:             log,
		})
	default:
		return nil, fmt.Errorf("unsupported database type %q", settings.Type)
	}
}

// sequenceKinds lists the id_sequences rows created at initialization.
func sequenceKinds() []string {
	kinds := ids.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return names
}

// initializeSchema migrates every entity and creates the sequence rows.
// Both steps are idempotent.
func initializeSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(entities.All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	if err := repository.NewSequenceRepository(db).Ensure(context.Background(), sequenceKinds()); err != nil {
		return fmt.Errorf("failed to initialize identifier sequences: %w", err)
	}
	return nil
}

// gormConfig returns the GORM configuration shared by both backends.
func gormConfig(log logger.Logger, slowThreshold time.Duration) *gorm.Config {
	return &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(log, slowThreshold),
		// the store manages its own transaction boundaries
		SkipDefaultTransaction: true,
	}
}
