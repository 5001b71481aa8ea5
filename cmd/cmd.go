package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/frahmantamala/cost-tracker/internal"
	"github.com/frahmantamala/cost-tracker/internal/core/events"
	"github.com/frahmantamala/cost-tracker/internal/cost"
	"github.com/frahmantamala/cost-tracker/internal/cost/sqlstore"
	"github.com/frahmantamala/cost-tracker/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configDir string
	clearData bool
)

var rootCmd = &cobra.Command{
	Use:           "cost-tracker",
	Short:         "Cost Tracker",
	Long:          `Record personal expenses, filter them by year and month and keep a running total.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*internal.Config, error) {
	// .env is optional; variables already set in the environment win
	_ = godotenv.Load(filepath.Join(path, ".env"))

	// Check if we're running in a container
	if os.Getenv("APP_ENV") == "production" || os.Getenv("DOCKER_ENV") == "true" {
		cfg := internal.LoadConfigFromEnv()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("error validating config from environment: %w", err)
		}
		return cfg, nil
	}

	// Load configuration from file (development)
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.SetEnvPrefix("ENV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, internal.DefaultConfig())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg internal.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("error validating config: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys missing from the file.
func setDefaults(v *viper.Viper, d *internal.Config) {
	v.SetDefault("env", d.Env)

	v.SetDefault("http_server.port", d.Server.Port)
	v.SetDefault("http_server.base_url", d.Server.BaseURL)
	v.SetDefault("http_server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("http_server.read_header_timeout", d.Server.ReadHeaderTimeout)
	v.SetDefault("http_server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("http_server.idle_timeout", d.Server.IdleTimeout)
	v.SetDefault("http_server.write_timeout", d.Server.WriteTimeout)

	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.name", d.Store.Name)
	v.SetDefault("store.version", d.Store.Version)
	v.SetDefault("store.dir", d.Store.Dir)
	v.SetDefault("store.dsn", d.Store.DSN)
	v.SetDefault("store.max_open_conns", d.Store.MaxOpenConns)
	v.SetDefault("store.max_idle_conns", d.Store.MaxIdleConns)
	v.SetDefault("store.request_timeout", d.Store.RequestTimeout)

	v.SetDefault("filter.min_year", d.Filter.MinYear)
	v.SetDefault("filter.max_year", d.Filter.MaxYear)

	v.SetDefault("observability.logging.level", d.Observability.Logging.Level)
	v.SetDefault("observability.logging.format", d.Observability.Logging.Format)
}

func initLogger(cfg *internal.Config, out io.Writer) *slog.Logger {
	return logger.InitWithOptions(logger.Options{
		Level:  cfg.Observability.Logging.Level,
		Format: cfg.Observability.Logging.Format,
		Output: out,
	})
}

// session is one opened collection manager with its event bus.
type session struct {
	cfg     *internal.Config
	logger  *slog.Logger
	bus     *events.EventBus
	opener  *sqlstore.Opener
	manager *cost.Manager
}

// newSession loads config and wires the manager without opening the store.
func newSession(logOut io.Writer) (*session, error) {
	cfg, err := loadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	lg := initLogger(cfg, logOut)
	bus := events.NewEventBus(lg)
	subscribeEventLogger(bus, lg)

	opener := sqlstore.NewOpener(cfg.Store, lg)
	return &session{
		cfg:     cfg,
		logger:  lg,
		bus:     bus,
		opener:  opener,
		manager: cost.NewManager(opener, bus, lg),
	}, nil
}

// openSession is newSession followed by loading the collection.
func openSession(ctx context.Context, logOut io.Writer) (*session, error) {
	s, err := newSession(logOut)
	if err != nil {
		return nil, err
	}
	if err := s.manager.Open(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *session) Close() {
	s.bus.Close()
	if err := s.manager.Close(); err != nil {
		s.logger.Error("failed to close store", "error", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "directory holding config.yml and .env")
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "Clear existing data before seeding")

	rootCmd.AddCommand(httpServerCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(costsCmd)
}
