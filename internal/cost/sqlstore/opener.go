package sqlstore

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/frahmantamala/cost-tracker/internal"
	"github.com/frahmantamala/cost-tracker/internal/cost"
	"golang.org/x/sync/singleflight"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Opener opens the store named by its config at the configured version,
// creating it on first use. The handle is cached until it is closed, and
// concurrent first calls share one open.
type Opener struct {
	cfg    internal.StoreConfig
	logger *slog.Logger

	group singleflight.Group
	mu    sync.Mutex
	store *Store
}

var _ cost.Opener = (*Opener)(nil)

func NewOpener(cfg internal.StoreConfig, logger *slog.Logger) *Opener {
	return &Opener{cfg: cfg, logger: logger}
}

func (o *Opener) Open(ctx context.Context) (cost.Store, error) {
	if s := o.cached(); s != nil {
		return s, nil
	}

	v, err, shared := o.group.Do(o.cfg.Name, func() (interface{}, error) {
		if s := o.cached(); s != nil {
			return s, nil
		}

		// The flight is shared, so one caller's cancellation must not fail the others.
		octx, cancel := internal.WithTimeout(context.WithoutCancel(ctx), o.cfg.RequestTimeout)
		defer cancel()

		s, err := o.open(octx)
		if err != nil {
			return nil, err
		}

		o.mu.Lock()
		o.store = s
		o.mu.Unlock()
		return s, nil
	})
	if err != nil {
		o.logger.Error("failed to open store",
			"name", o.cfg.Name,
			"version", o.cfg.Version,
			"driver", o.cfg.Driver,
			"error", err)
		return nil, internal.NewStoreUnavailableError(fmt.Sprintf("failed to open store %s", o.cfg.Name), err)
	}

	o.logger.Debug("store opened", "name", o.cfg.Name, "version", o.cfg.Version, "shared", shared)
	return v.(*Store), nil
}

func (o *Opener) cached() *Store {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.store
}

func (o *Opener) forget(s *Store) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.store == s {
		o.store = nil
	}
}

func (o *Opener) open(ctx context.Context) (*Store, error) {
	db, err := Connect(o.cfg, o.logger)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	migrator, err := NewMigrator(sqlDB, o.cfg.Driver, o.logger)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if err := migrator.UpTo(ctx, o.cfg.Version); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	s := NewStore(db, o.cfg.RequestTimeout)
	s.onClose = func() { o.forget(s) }
	return s, nil
}

// Connect opens the gorm connection pool for cfg without touching the schema.
func Connect(cfg internal.StoreConfig, logger *slog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case internal.StoreDriverSQLite:
		if cfg.Name != ":memory:" && cfg.Dir != "" {
			if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
				return nil, fmt.Errorf("create store directory: %w", err)
			}
		}
		dialector = sqlite.Open(cfg.Path())
	case internal.StoreDriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to store: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// SQLite allows a single writer, and an in-memory database lives on one connection.
	maxOpen, maxIdle := cfg.MaxOpenConns, cfg.MaxIdleConns
	if cfg.Driver == internal.StoreDriverSQLite {
		maxOpen, maxIdle = 1, 1
	}
	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	if maxIdle > 0 {
		sqlDB.SetMaxIdleConns(maxIdle)
	}

	return db, nil
}

func newGormLogger(logger *slog.Logger) gormlogger.Interface {
	return gormlogger.New(
		log.New(slogWriter{logger: logger}, "", 0),
		gormlogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
}

type slogWriter struct {
	logger *slog.Logger
}

func (w slogWriter) Write(p []byte) (int, error) {
	w.logger.Warn("gorm", "message", string(p))
	return len(p), nil
}
