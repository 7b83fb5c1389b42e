// Package config loads service configuration from a YAML file with
// environment variable overrides. A .env file is loaded first if present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultServerPort      = 8060
	defaultServerTimeout   = 30
	defaultDatabasePort    = 5432
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5
	defaultRedisAddress    = "localhost:6379"

	defaultTickInterval       = time.Minute
	defaultFetchTimeout       = 30 * time.Second
	defaultGenerationTimeout  = 2 * time.Minute
	defaultGenerationModel    = "claude-3-5-haiku-latest"
	defaultMaxAutoGenerate    = 3
	defaultFirstCrawlNewLimit = 3
)

// Config is the root configuration for the service.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Crawl      CrawlConfig      `yaml:"crawl"`
	Generation GenerationConfig `yaml:"generation"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	CORSOrigins  []string      `yaml:"cors_origins"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	DBName          string        `yaml:"dbname"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig holds Redis connection settings for event publishing.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled  bool   `yaml:"enabled"`
}

// CrawlConfig holds crawl scheduler settings.
type CrawlConfig struct {
	// TickInterval is how often the scheduler evaluates due sources.
	TickInterval time.Duration `yaml:"tick_interval"`
	// FetchTimeout bounds a single feed fetch.
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	// AutoGenerate enables artifact generation for newly discovered items
	// during the crawl cycle itself.
	AutoGenerate bool `yaml:"auto_generate"`
	// MaxAutoGenerate caps artifacts generated per crawl cycle.
	MaxAutoGenerate int `yaml:"max_auto_generate"`
	// FirstCrawlNewLimit caps how many entries of a source's very first
	// crawl are treated as new, so a long backlog is not ingested at once.
	FirstCrawlNewLimit int `yaml:"first_crawl_new_limit"`
}

// GenerationConfig holds text-generation collaborator settings.
type GenerationConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// Load reads the YAML config at path, applies defaults and env overrides.
// A missing config file is not an error; defaults plus environment apply.
func Load(path string) (*Config, error) {
	// Load .env first so overrides below can see it (non-fatal if absent).
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if unmarshalErr := yaml.Unmarshal(data, &cfg); unmarshalErr != nil {
			return nil, fmt.Errorf("parse config: %w", unmarshalErr)
		}
	case os.IsNotExist(err):
		// Run on defaults and environment only.
	default:
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	setDefaults(&cfg)
	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// Validate checks that required settings are present.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return errors.New("server.port must be positive")
	}
	if c.Database.Host == "" {
		return errors.New("database.host is required")
	}
	if c.Database.User == "" {
		return errors.New("database.user is required")
	}
	if c.Database.DBName == "" {
		return errors.New("database.dbname is required")
	}
	if c.Crawl.TickInterval <= 0 {
		return errors.New("crawl.tick_interval must be positive")
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultServerTimeout * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultServerTimeout * time.Second
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = defaultDatabasePort
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = defaultMaxOpenConns
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = defaultMaxIdleConns
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = defaultConnMaxLifetime * time.Minute
	}
	if cfg.Redis.Address == "" {
		cfg.Redis.Address = defaultRedisAddress
	}
	if cfg.Crawl.TickInterval == 0 {
		cfg.Crawl.TickInterval = defaultTickInterval
	}
	if cfg.Crawl.FetchTimeout == 0 {
		cfg.Crawl.FetchTimeout = defaultFetchTimeout
	}
	if cfg.Crawl.MaxAutoGenerate == 0 {
		cfg.Crawl.MaxAutoGenerate = defaultMaxAutoGenerate
	}
	if cfg.Crawl.FirstCrawlNewLimit == 0 {
		cfg.Crawl.FirstCrawlNewLimit = defaultFirstCrawlNewLimit
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = defaultGenerationModel
	}
	if cfg.Generation.Timeout == 0 {
		cfg.Generation.Timeout = defaultGenerationTimeout
	}
}

// applyEnvOverrides maps well-known environment variables onto the config.
// Environment always wins over file values.
func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Server.Host, "SERVER_HOST")
	overrideInt(&cfg.Server.Port, "SERVER_PORT")
	overrideBool(&cfg.Debug, "APP_DEBUG")

	overrideString(&cfg.Database.Host, "DB_HOST")
	overrideInt(&cfg.Database.Port, "DB_PORT")
	overrideString(&cfg.Database.User, "DB_USER")
	overrideString(&cfg.Database.Password, "DB_PASSWORD")
	overrideString(&cfg.Database.DBName, "DB_NAME")
	overrideString(&cfg.Database.SSLMode, "DB_SSLMODE")

	overrideString(&cfg.Redis.Address, "REDIS_ADDRESS")
	overrideString(&cfg.Redis.Password, "REDIS_PASSWORD")
	overrideInt(&cfg.Redis.DB, "REDIS_DB")
	overrideBool(&cfg.Redis.Enabled, "REDIS_EVENTS_ENABLED")

	overrideDuration(&cfg.Crawl.TickInterval, "CRAWL_TICK_INTERVAL")
	overrideBool(&cfg.Crawl.AutoGenerate, "CRAWL_AUTO_GENERATE")

	overrideString(&cfg.Generation.APIKey, "ANTHROPIC_API_KEY")
	overrideString(&cfg.Generation.Model, "GENERATION_MODEL")
	overrideDuration(&cfg.Generation.Timeout, "GENERATION_TIMEOUT")
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*dst = i
		}
	}
}

func overrideBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "true" || v == "1" || v == "yes"
	}
}

func overrideDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

// GetConfigPath returns the config path from CONFIG_PATH or the default.
func GetConfigPath(defaultPath string) string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return defaultPath
}
