package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrations embed.FS

// Migrator applies the embedded schema migrations for the connected driver.
type Migrator struct {
	m *migrate.Migrate
}

// NewMigrator prepares migrations on an open connection. The migrator shares
// db and is released with it.
func NewMigrator(db *DB) (*Migrator, error) {
	src, err := iofs.New(migrations, "migrations/"+db.Driver())
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}

	var driver migratedb.Driver
	switch db.Driver() {
	case "sqlite":
		driver, err = sqlite.WithInstance(db.DB.DB, &sqlite.Config{})
	default:
		driver, err = postgres.WithInstance(db.DB.DB, &postgres.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, db.Driver(), driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}
	return &Migrator{m: m}, nil
}

// Up applies steps migrations, or all pending ones when steps is 0. It
// reports false when there was nothing to apply.
func (mg *Migrator) Up(steps int) (bool, error) {
	var err error
	if steps > 0 {
		err = mg.m.Steps(steps)
	} else {
		err = mg.m.Up()
	}
	return applied(err)
}

// Down reverts steps migrations, or all of them when steps is 0.
func (mg *Migrator) Down(steps int) (bool, error) {
	var err error
	if steps > 0 {
		err = mg.m.Steps(-steps)
	} else {
		err = mg.m.Down()
	}
	return applied(err)
}

// Version returns the current schema version. A database without any
// migration reports version 0.
func (mg *Migrator) Version() (uint, bool, error) {
	version, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func applied(err error) (bool, error) {
	if errors.Is(err, migrate.ErrNoChange) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("migration failed: %w", err)
	}
	return true, nil
}
