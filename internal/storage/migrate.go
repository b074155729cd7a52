package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrateLogger routes golang-migrate's progress lines to slog at debug level.
type migrateLogger struct {
	ctx  context.Context
	path string
}

func (l migrateLogger) Printf(format string, v ...interface{}) {
	slog.DebugContext(l.ctx, strings.TrimSpace(fmt.Sprintf(format, v...)),
		"component", "migrate",
		"path", l.path)
}

func (l migrateLogger) Verbose() bool {
	return slog.Default().Enabled(l.ctx, slog.LevelDebug)
}

// RunMigrations brings the expenses schema at dbPath up to date and reports
// the resulting schema version. Running it against an up-to-date database
// applies nothing.
func RunMigrations(ctx context.Context, dbPath string) (uint, error) {
	// The migrate driver closes its DB on Close, so it gets its own handle.
	migrateDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return 0, fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	driver, err := sqlite.WithInstance(migrateDB, &sqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("create sqlite driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return 0, fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()
	m.Log = migrateLogger{ctx: ctx, path: dbPath}

	from, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migrate expenses schema from v%d: %w", from, err)
	}
	version, dirty, err := m.Version()
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("expenses schema v%d is dirty", version)
	}
	if version != from {
		slog.InfoContext(ctx, "Expenses schema migrated", "path", dbPath, "from", from, "to", version)
	}
	return version, nil
}
