package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"

	"github.com/frahmantamala/cost-tracker/internal"
	"github.com/pressly/goose/v3"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrator applies the embedded schema for one driver. The schema version is
// the store version: version 1 creates the costs table.
type Migrator struct {
	provider *goose.Provider
	logger   *slog.Logger
}

func NewMigrator(db *sql.DB, driver string, logger *slog.Logger) (*Migrator, error) {
	var dialect goose.Dialect
	switch driver {
	case internal.StoreDriverSQLite:
		dialect = goose.DialectSQLite3
	case internal.StoreDriverPostgres:
		dialect = goose.DialectPostgres
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	dir, err := fs.Sub(migrationsFS, path.Join("migrations", driver))
	if err != nil {
		return nil, fmt.Errorf("load %s migrations: %w", driver, err)
	}

	provider, err := goose.NewProvider(dialect, db, dir)
	if err != nil {
		return nil, fmt.Errorf("create migration provider: %w", err)
	}

	return &Migrator{provider: provider, logger: logger}, nil
}

// Current returns the version recorded in the store, 0 for a fresh store.
func (m *Migrator) Current(ctx context.Context) (int64, error) {
	return m.provider.GetDBVersion(ctx)
}

// Latest returns the highest version the embedded schema can reach.
func (m *Migrator) Latest() int64 {
	sources := m.provider.ListSources()
	if len(sources) == 0 {
		return 0
	}
	return sources[len(sources)-1].Version
}

// UpTo brings the store to version. Asking for a version lower than the one
// already recorded fails with ErrVersionDowngrade and leaves the store untouched.
func (m *Migrator) UpTo(ctx context.Context, version int64) error {
	current, err := m.Current(ctx)
	if err != nil {
		return fmt.Errorf("read store version: %w", err)
	}

	if current > version {
		return fmt.Errorf("%w: store is at version %d, requested %d", internal.ErrVersionDowngrade, current, version)
	}

	if latest := m.Latest(); version > latest {
		return fmt.Errorf("no schema for store version %d, latest is %d", version, latest)
	}

	if current == version {
		m.logger.Debug("store schema up to date", "version", current)
		return nil
	}

	results, err := m.provider.UpTo(ctx, version)
	if err != nil && !errors.Is(err, goose.ErrNoNextVersion) {
		return fmt.Errorf("apply schema up to version %d: %w", version, err)
	}

	for _, r := range results {
		m.logger.Info("store schema applied",
			"version", r.Source.Version,
			"duration_ms", r.Duration.Milliseconds())
	}
	return nil
}

// Down rolls back the most recent version and returns the version now recorded.
func (m *Migrator) Down(ctx context.Context) (int64, error) {
	result, err := m.provider.Down(ctx)
	if err != nil && !errors.Is(err, goose.ErrNoNextVersion) {
		return 0, fmt.Errorf("roll back store schema: %w", err)
	}
	if result != nil && result.Source != nil {
		m.logger.Info("store schema rolled back", "version", result.Source.Version)
	}
	return m.Current(ctx)
}
