package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultPath is read when no --config flag is given. A missing file is not an error.
const DefaultPath = "config.toml"

// Config represents the entire application configuration.
type Config struct {
	Server   Server   `koanf:"server"`
	Database Database `koanf:"database"`
	Store    Store    `koanf:"store"`
	Redis    Redis    `koanf:"redis"`
	Lock     Lock     `koanf:"lock"`
	Rating   Rating   `koanf:"rating"`
	Slug     Slug     `koanf:"slug"`
	Search   Search   `koanf:"search"`
	Log      Log      `koanf:"log"`
}

type Server struct {
	Port string `koanf:"port"`
}

// Database selects the gorm dialector. Driver is "postgres" or "sqlite".
type Database struct {
	Driver       string        `koanf:"driver"`
	DSN          string        `koanf:"dsn"`
	MaxOpenConns int           `koanf:"max_open_conns"`
	MaxIdleConns int           `koanf:"max_idle_conns"`
	ConnLifetime time.Duration `koanf:"conn_lifetime"`
	SeedDefaults bool          `koanf:"seed_defaults"`
}

// Store bounds every store round trip and its retries.
type Store struct {
	Timeout         time.Duration `koanf:"timeout"`
	MaxRetries      uint64        `koanf:"max_retries"`
	InitialInterval time.Duration `koanf:"initial_interval"`
	MaxInterval     time.Duration `koanf:"max_interval"`
	MaxElapsedTime  time.Duration `koanf:"max_elapsed_time"`
}

// Redis is optional. An empty Addr keeps locks in-process.
type Redis struct {
	Addr     string `koanf:"addr"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type Lock struct {
	TTL  time.Duration `koanf:"ttl"`
	Wait time.Duration `koanf:"wait"`
}

type Rating struct {
	Workers        int           `koanf:"workers"`
	QueueSize      int           `koanf:"queue_size"`
	MaxRedelivery  int           `koanf:"max_redelivery"`
	RedeliverDelay time.Duration `koanf:"redeliver_delay"`
	SweepWorkers   int           `koanf:"sweep_workers"`
}

type Slug struct {
	MaxSuffix   int `koanf:"max_suffix"`
	MaxAttempts int `koanf:"max_attempts"`
}

type Search struct {
	CacheSize int           `koanf:"cache_size"`
	CacheTTL  time.Duration `koanf:"cache_ttl"`
	// Limit caps the rows a search returns. Zero returns every match.
	Limit     int           `koanf:"limit"`
}

type Log struct {
	Debug bool `koanf:"debug"`
}

// Default returns the configuration used when nothing else is provided.
func Default() *Config {
	return &Config{
		Server: Server{Port: "8080"},
		Database: Database{
			Driver:       "postgres",
			DSN:          "host=localhost user=postgres password=postgres dbname=ficehub port=5432 sslmode=disable TimeZone=UTC",
			MaxOpenConns: 100,
			MaxIdleConns: 10,
			ConnLifetime: time.Hour,
			SeedDefaults: true,
		},
		Store: Store{
			Timeout:         5 * time.Second,
			MaxRetries:      3,
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     2 * time.Second,
			MaxElapsedTime:  15 * time.Second,
		},
		Lock: Lock{
			TTL:  10 * time.Second,
			Wait: 5 * time.Second,
		},
		Rating: Rating{
			Workers:        4,
			QueueSize:      1000,
			MaxRedelivery:  5,
			RedeliverDelay: time.Second,
			SweepWorkers:   8,
		},
		Slug: Slug{
			MaxSuffix:   10000,
			MaxAttempts: 8,
		},
		Search: Search{
			CacheSize: 500,
			CacheTTL:  30 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, an optional TOML file, the .env file
// and well-known environment variables, in that order of precedence (last wins).
func Load(path string) (*Config, error) {
	// .env is optional, the process environment may already carry everything
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = DefaultPath
	}
	if _, err := os.Stat(path); err == nil {
		k := koanf.New(".")
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		if err := k.Unmarshal("", cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("LOG_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Log.Debug = b
		}
	}
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Store.Timeout <= 0 {
		return errors.New("store.timeout must be positive")
	}
	if c.Rating.Workers <= 0 || c.Rating.QueueSize <= 0 {
		return errors.New("rating.workers and rating.queue_size must be positive")
	}
	if c.Slug.MaxSuffix < 2 || c.Slug.MaxAttempts <= 0 {
		return errors.New("slug.max_suffix must be at least 2 and slug.max_attempts positive")
	}
	return nil
}
