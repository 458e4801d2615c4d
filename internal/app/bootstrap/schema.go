package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/wolfman30/bridal-quote-platform/migrations"
	"github.com/wolfman30/bridal-quote-platform/pkg/logging"
)

var migrationFile = regexp.MustCompile(`^(\d+)_.+\.up\.sql$`)

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: migrate db driver: %w", err)
	}
	srcDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("bootstrap: migrate source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: create migrator: %w", err)
	}
	return m, nil
}

// RunMigrations applies every pending embedded migration.
func RunMigrations(db *sql.DB, logger *logging.Logger) error {
	if logger == nil {
		logger = logging.Default()
	}
	m, err := newMigrator(db)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("schema up to date")
			return nil
		}
		return fmt.Errorf("bootstrap: migrate up: %w", err)
	}
	version, dirty, _ := m.Version()
	logger.Info("migrations applied", "version", version, "dirty", dirty)
	return nil
}

// ForceMigrationVersion clears a dirty flag after a failed migration was
// repaired by hand.
func ForceMigrationVersion(db *sql.DB, version int) error {
	m, err := newMigrator(db)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()
	if err := m.Force(version); err != nil {
		return fmt.Errorf("bootstrap: force version %d: %w", version, err)
	}
	return nil
}

// LatestMigrationVersion returns the highest up-migration number in fsys.
func LatestMigrationVersion(fsys fs.FS) (uint, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return 0, fmt.Errorf("bootstrap: read migrations: %w", err)
	}
	var latest uint64
	for _, e := range entries {
		m := migrationFile.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		v, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("bootstrap: migration %s: %w", e.Name(), err)
		}
		if v > latest {
			latest = v
		}
	}
	return uint(latest), nil
}

// SchemaVersion reads golang-migrate's bookkeeping row. An empty table
// reports version 0.
func SchemaVersion(ctx context.Context, db *sql.DB) (uint, bool, error) {
	var (
		version int64
		dirty   bool
	)
	err := db.QueryRowContext(ctx, `SELECT version, dirty FROM schema_migrations LIMIT 1`).Scan(&version, &dirty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("bootstrap: read schema version: %w", err)
	}
	return uint(version), dirty, nil
}

// SchemaCheck fails health checks while the database lags the binary's
// migrations or is left dirty.
func SchemaCheck(db *sql.DB, want uint) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		version, dirty, err := SchemaVersion(ctx, db)
		if err != nil {
			return err
		}
		if dirty {
			return fmt.Errorf("schema version %d is dirty", version)
		}
		if version < want {
			return fmt.Errorf("schema version %d behind %d", version, want)
		}
		return nil
	}
}
