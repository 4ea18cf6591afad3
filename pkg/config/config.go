// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/spencer-p/tidegraph/pkg/curve"
	"github.com/spencer-p/tidegraph/pkg/data"
	"github.com/spencer-p/tidegraph/pkg/tides"
	"github.com/spencer-p/tidegraph/pkg/timetricks"
)

type Config struct {
	Env      string `default:"production"`
	LogLevel string `split_words:"true" default:"info"`

	// HTTP server
	Port         string `default:"8080"`
	Prefix       string `default:"/"`
	DisplayUnits string `split_words:"true" default:"ft"`
	CacheSize    int    `split_words:"true" default:"256"`
	// slightly less than one day so daily clients don't see stale data
	CacheTTL time.Duration `envconfig:"CACHE_TTL" default:"23h"`

	// Batch jobs
	SampleIntervalMinutes int           `split_words:"true" default:"60"`
	WindowDays            int           `split_words:"true" default:"7"`
	Workers               int           `default:"4"`
	RebuildInterval       time.Duration `split_words:"true" default:"0"`
	WriteTimeout          time.Duration `split_words:"true" default:"30s"`
	MetricsAddr           string        `split_words:"true" default:":9090"`
	TimeZone              string        `split_words:"true" default:"UTC"`

	// WorldWeatherOnline
	APIKey      string        `envconfig:"API_KEY"`
	WWOBaseURL  string        `envconfig:"WWO_BASE_URL" default:"https://api.worldweatheronline.com/premium/v1/marine.ashx"`
	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"15s"`

	RedisURL string `envconfig:"REDIS_URL"`

	// Embedded; its variables have no prefix.
	Database
}

// Database falls back to the libpq environment variables when DATABASE_URL
// is unset.
type Database struct {
	URL          string        `envconfig:"DATABASE_URL"`
	Host         string        `envconfig:"PGHOST" default:"localhost"`
	Port         string        `envconfig:"PGPORT" default:"5432"`
	User         string        `envconfig:"PGUSER" default:"postgres"`
	Password     string        `envconfig:"PGPASSWORD"`
	Name         string        `envconfig:"PGDATABASE" default:"tidegraph"`
	SSLMode      string        `envconfig:"PGSSLMODE" default:"disable"`
	MaxOpenConns int           `envconfig:"DB_MAX_OPEN_CONNS"`
	AutoMigrate  bool          `envconfig:"DB_AUTO_MIGRATE" default:"true"`
	MaxRetries   int           `envconfig:"DB_MAX_RETRIES" default:"3"`
	RetryBackoff time.Duration `envconfig:"DB_RETRY_BACKOFF" default:"200ms"`
}

// Load reads the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.SampleIntervalMinutes < 1 || c.SampleIntervalMinutes > timetricks.MinutesPerDay {
		return fmt.Errorf("SAMPLE_INTERVAL_MINUTES must be in [1, %d], got %d", timetricks.MinutesPerDay, c.SampleIntervalMinutes)
	}
	if c.WindowDays < 1 {
		return fmt.Errorf("WINDOW_DAYS must be positive, got %d", c.WindowDays)
	}
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be positive, got %d", c.Workers)
	}
	if c.RebuildInterval < 0 {
		return fmt.Errorf("REBUILD_INTERVAL must not be negative, got %s", c.RebuildInterval)
	}
	if _, err := tides.ParseUnits(c.DisplayUnits); err != nil {
		return fmt.Errorf("DISPLAY_UNITS: %w", err)
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return fmt.Errorf("TIME_ZONE: %w", err)
	}
	if c.CacheSize < 1 {
		return fmt.Errorf("CACHE_SIZE must be positive, got %d", c.CacheSize)
	}
	return nil
}

// Units returns the validated display units.
func (c Config) Units() tides.Units {
	u, _ := tides.ParseUnits(c.DisplayUnits)
	return u
}

// Location returns the validated time zone used to pick the target date.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c Config) CurveOptions() curve.Options {
	return curve.Options{Interval: c.SampleIntervalMinutes}
}

// DSN returns DATABASE_URL, or a keyword DSN built from the PG* variables.
func (d Database) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
}

// Store describes the database for data.Open. The pool defaults to one
// connection per worker.
func (c Config) Store() data.Config {
	conns := c.Database.MaxOpenConns
	if conns <= 0 {
		conns = c.Workers
	}
	return data.Config{
		DSN:          c.Database.DSN(),
		MaxOpenConns: conns,
		AutoMigrate:  c.Database.AutoMigrate,
		Retry: data.RetryPolicy{
			MaxRetries: c.Database.MaxRetries,
			Backoff:    c.Database.RetryBackoff,
		},
	}
}

// Redacted hides credentials in a DSN for logging.
func Redacted(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return "<keyword dsn>"
	}
	return u.Redacted()
}
