package database

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Direction selects which way RunMigrations moves the schema.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// RunMigrations applies (or rolls back) the embedded schema migrations
func RunMigrations(db *gorm.DB, direction Direction, logger *slog.Logger) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	m, err := newMigrate(db)
	if err != nil {
		return err
	}

	switch direction {
	case Up:
		err = m.Up()
	case Down:
		err = m.Down()
	default:
		return fmt.Errorf("unknown migration direction %q", direction)
	}

	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("Database migrations: no changes detected", "direction", direction)
			return nil
		}
		return fmt.Errorf("failed to run migrations %s: %w", direction, err)
	}

	version, dirty, _ := m.Version()
	logger.Info("Database migrations applied", "direction", direction, "version", version, "dirty", dirty)
	return nil
}

func newMigrate(db *gorm.DB) (*migrate.Migrate, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source driver: %w", err)
	}

	dbDriver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}
