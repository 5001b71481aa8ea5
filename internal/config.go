package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
)

type Config struct {
	Env           string              `mapstructure:"env"`
	Server        ServerConfig        `mapstructure:"http_server"`
	Store         StoreConfig         `mapstructure:"store"`
	Filter        FilterConfig        `mapstructure:"filter"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

// StoreConfig identifies the record store by name and schema version.
type StoreConfig struct {
	Driver         string        `mapstructure:"driver" validate:"required,oneof=sqlite postgres"`
	Name           string        `mapstructure:"name" validate:"required"`
	Version        int64         `mapstructure:"version" validate:"required,min=1"`
	Dir            string        `mapstructure:"dir"`
	DSN            string        `mapstructure:"dsn"`
	MaxOpenConns   int           `mapstructure:"max_open_conns"`
	MaxIdleConns   int           `mapstructure:"max_idle_conns"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type FilterConfig struct {
	MinYear int `mapstructure:"min_year"`
	MaxYear int `mapstructure:"max_year"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// DefaultConfig returns the settings used when no config file is present.
func DefaultConfig() *Config {
	return &Config{
		Env: "development",
		Server: ServerConfig{
			Port:              8080,
			AllowedOrigins:    "*",
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			IdleTimeout:       60 * time.Second,
			WriteTimeout:      15 * time.Second,
		},
		Store: StoreConfig{
			Driver:         StoreDriverSQLite,
			Name:           "costsdb",
			Version:        1,
			Dir:            "data",
			MaxOpenConns:   1,
			MaxIdleConns:   1,
			RequestTimeout: 5 * time.Second,
		},
		Filter: FilterConfig{
			MinYear: 2015,
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{Level: "info", Format: "text"},
		},
	}
}

// LoadConfigFromEnv builds the config from environment variables on top of the defaults.
func LoadConfigFromEnv() *Config {
	cfg := DefaultConfig()

	cfg.Env = getEnv("APP_ENV", cfg.Env)

	cfg.Server.Port = getEnvAsInt("HTTP_PORT", cfg.Server.Port)
	cfg.Server.BaseURL = getEnv("HTTP_BASE_URL", cfg.Server.BaseURL)
	cfg.Server.AllowedOrigins = getEnv("HTTP_ALLOWED_ORIGINS", cfg.Server.AllowedOrigins)
	cfg.Server.ReadTimeout = getEnvAsDuration("HTTP_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = getEnvAsDuration("HTTP_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.IdleTimeout = getEnvAsDuration("HTTP_IDLE_TIMEOUT", cfg.Server.IdleTimeout)

	cfg.Store.Driver = getEnv("STORE_DRIVER", cfg.Store.Driver)
	cfg.Store.Name = getEnv("STORE_NAME", cfg.Store.Name)
	cfg.Store.Version = int64(getEnvAsInt("STORE_VERSION", int(cfg.Store.Version)))
	cfg.Store.Dir = getEnv("STORE_DIR", cfg.Store.Dir)
	cfg.Store.DSN = getEnv("STORE_DSN", cfg.Store.DSN)
	cfg.Store.MaxOpenConns = getEnvAsInt("STORE_MAX_OPEN_CONNS", cfg.Store.MaxOpenConns)
	cfg.Store.MaxIdleConns = getEnvAsInt("STORE_MAX_IDLE_CONNS", cfg.Store.MaxIdleConns)
	cfg.Store.RequestTimeout = getEnvAsDuration("STORE_REQUEST_TIMEOUT", cfg.Store.RequestTimeout)

	cfg.Filter.MinYear = getEnvAsInt("FILTER_MIN_YEAR", cfg.Filter.MinYear)
	cfg.Filter.MaxYear = getEnvAsInt("FILTER_MAX_YEAR", cfg.Filter.MaxYear)

	cfg.Observability.Logging.Level = getEnv("LOG_LEVEL", cfg.Observability.Logging.Level)
	cfg.Observability.Logging.Format = getEnv("LOG_FORMAT", cfg.Observability.Logging.Format)

	return cfg
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Store.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("store config: %v", err))
	}

	if err := c.Filter.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("filter config: %v", err))
	}

	if err := c.Observability.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", c.Port)
	}
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *StoreConfig) Validate() error {
	switch c.Driver {
	case StoreDriverSQLite:
		if strings.TrimSpace(c.Name) == "" {
			return errors.New("name is required")
		}
	case StoreDriverPostgres:
		if c.DSN == "" {
			return errors.New("dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported driver %q: must be one of [sqlite postgres]", c.Driver)
	}
	if c.Version < 1 {
		return errors.New("version must be >= 1")
	}
	if c.MaxIdleConns > c.MaxOpenConns && c.MaxOpenConns > 0 {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

// Path returns the SQLite file backing the store.
func (c *StoreConfig) Path() string {
	if c.Name == ":memory:" {
		return c.Name
	}
	return filepath.Join(c.Dir, c.Name+".db")
}

func (c *FilterConfig) Validate() error {
	if c.MaxYear != 0 && c.MinYear > c.MaxYear {
		return errors.New("min_year cannot be greater than max_year")
	}
	return nil
}

// YearRange returns the selectable years, capping an unset max year at the current year.
func (c *FilterConfig) YearRange(now time.Time) (int, int) {
	from, to := c.MinYear, c.MaxYear
	if to == 0 {
		to = now.Year()
	}
	if from == 0 || from > to {
		from = to
	}
	return from, to
}

func (c *LoggingConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid level %q", c.Level)
	}
	switch strings.ToLower(c.Format) {
	case "", "json", "text":
	default:
		return fmt.Errorf("invalid format %q", c.Format)
	}
	return nil
}
