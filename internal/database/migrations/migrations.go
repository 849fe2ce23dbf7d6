package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"tvp-go/internal/tv"
)

//go:embed files/*.sql
var migrationFiles embed.FS

// currentSchema is the full schema at CurrentVersion.
//
//go:embed schema.sql
var currentSchema string

const (
	// CurrentVersion is the schema version this binary reads and writes.
	CurrentVersion = 34
	// FloorVersion is the oldest version that is upgraded in place. Older
	// stores are dropped and created fresh.
	FloorVersion = 23
)

// knownTables lists every table any schema version has created, children first.
var knownTables = []string{
	"preview_programs",
	"watch_next_programs",
	"recorded_programs",
	"watched_programs",
	"programs",
	"deleted_channels",
	"channels",
}

// CheckDBMigrationStatus verifies that the database schema is up-to-date.
// Returns nil if the database is at the latest version.
// Returns an error describing any version mismatch or migration issues.
func CheckDBMigrationStatus(db *sql.DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// Note: We don't close m here because it would close the db connection
	// The caller owns the db and is responsible for closing it

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return fmt.Errorf("database has no schema version (needs migration)")
		}
		return fmt.Errorf("failed to get database version: %w", err)
	}

	if dirty {
		return fmt.Errorf("database is in dirty state at version %d (migration failed previously)", version)
	}

	sourceDriver, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}
	defer sourceDriver.Close()

	latestVersion, err := getLatestVersion(sourceDriver)
	if err != nil {
		return fmt.Errorf("failed to determine latest version: %w", err)
	}

	if version < FloorVersion {
		return fmt.Errorf("database is at version %d, below %d (will be rebuilt, data will be lost)",
			version, FloorVersion)
	}

	if version < latestVersion {
		return fmt.Errorf("database is at version %d but latest is %d (%d migrations behind)",
			version, latestVersion, latestVersion-version)
	}

	if version > latestVersion {
		return fmt.Errorf("database version %d is ahead of binary version %d (binary needs update)",
			version, latestVersion)
	}

	return nil
}

// MigrateUp brings the store to CurrentVersion.
//
// A store without a version gets the current schema in one step. A store below
// FloorVersion is dropped and created fresh. Stores between FloorVersion and
// CurrentVersion are upgraded one version at a time. A current store is left
// untouched. Any failure is fatal to store initialization.
func MigrateUp(db *sql.DB, log tv.Logger) error {
	m, err := newMigrate(db)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// Note: We don't close m here because it would close the db connection
	// The caller owns the db and is responsible for closing it

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		log.Info("creating store schema", "version", CurrentVersion)
		return createFresh(db, m)
	case err != nil:
		return fmt.Errorf("failed to get database version: %w", err)
	case dirty:
		return fmt.Errorf("database is in dirty state at version %d (migration failed previously)", version)
	case version > CurrentVersion:
		return fmt.Errorf("database version %d is ahead of binary version %d", version, CurrentVersion)
	case version == CurrentVersion:
		return nil
	case version < FloorVersion:
		log.Warn("upgrading store below floor version, data will be lost",
			"from", version, "to", CurrentVersion)
		if err := dropKnownTables(db); err != nil {
			return err
		}
		return createFresh(db, m)
	}

	log.Info("upgrading store schema", "from", version, "to", CurrentVersion)
	if err := m.Migrate(CurrentVersion); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	log.Info("upgraded store schema", "from", version, "to", CurrentVersion)
	return nil
}

func createFresh(db *sql.DB, m *migrate.Migrate) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("starting schema transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(currentSchema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema: %w", err)
	}

	if err := m.Force(CurrentVersion); err != nil {
		return fmt.Errorf("recording schema version: %w", err)
	}
	return nil
}

func dropKnownTables(db *sql.DB) error {
	for _, table := range knownTables {
		if _, err := db.Exec("DROP TABLE IF EXISTS " + table); err != nil {
			return fmt.Errorf("dropping %s: %w", table, err)
		}
	}
	return nil
}

// newMigrate creates a new migrate instance for the given database.
func newMigrate(db *sql.DB) (*migrate.Migrate, error) {
	sourceDriver, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return nil, fmt.Errorf("failed to create source driver: %w", err)
	}

	// Create database driver (wraps *sql.DB with SQLite-specific migration logic)
	dbDriver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		sourceDriver.Close()
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", dbDriver)
	if err != nil {
		sourceDriver.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return m, nil
}

// getLatestVersion returns the highest version number available in the source.
func getLatestVersion(src source.Driver) (uint, error) {
	version, err := src.First()
	if err != nil {
		return 0, err
	}

	latestVersion := version
	for {
		nextVersion, err := src.Next(latestVersion)
		if err != nil {
			// Any error from Next() means we've reached the end
			break
		}
		latestVersion = nextVersion
	}

	return latestVersion, nil
}
