package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string `envconfig:"DB_HOST"`
	Port               string `envconfig:"DB_PORT" default:"5432"`
	User               string `envconfig:"DB_USER"`
	Password           string `envconfig:"DB_PASSWORD"`
	Name               string `envconfig:"DB_NAME"`
	SSLMode            string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxOpenConns       int    `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns       int    `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetimeSec int    `envconfig:"DB_CONN_MAX_LIFETIME_SEC" default:"300"`
	ConnectTimeoutSec  int    `envconfig:"DB_CONNECT_TIMEOUT_SEC" default:"5"`
	ApplicationName    string `envconfig:"DB_APPLICATION_NAME" default:"marketapi"`
}

// RedisConfig holds the cache endpoint. An empty Addr disables the cache.
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// CacheConfig holds the per-entity TTLs of the point cache.
type CacheConfig struct {
	ShopTTL      time.Duration `envconfig:"CACHE_TTL_SHOP" default:"10m"`
	ItemTTL      time.Duration `envconfig:"CACHE_TTL_ITEM" default:"10m"`
	InventoryTTL time.Duration `envconfig:"CACHE_TTL_INVENTORY" default:"1m"`
	SessionTTL   time.Duration `envconfig:"CACHE_TTL_SESSION" default:"5m"`
}

// SearchConfig holds the Typesense endpoint and mirroring settings.
type SearchConfig struct {
	URL           string        `envconfig:"TYPESENSE_URL" default:"http://localhost:8108"`
	APIKey        string        `envconfig:"TYPESENSE_API_KEY"`
	Timeout       time.Duration `envconfig:"INDEX_TIMEOUT" default:"2s"`
	Workers       int           `envconfig:"MIRROR_WORKERS" default:"4"`
	QueueSize     int           `envconfig:"MIRROR_QUEUE_SIZE" default:"256"`
	ImportTimeout time.Duration `envconfig:"INDEX_IMPORT_TIMEOUT" default:"30s"`
}

// SessionConfig controls the session cookie and session lifetimes.
type SessionConfig struct {
	CookieName   string        `envconfig:"SESSION_COOKIE" default:"session_token"`
	CookieSecure bool          `envconfig:"SESSION_COOKIE_SECURE" default:"false"`
	TTL          time.Duration `envconfig:"SESSION_TTL" default:"90h"`
	LongTTL      time.Duration `envconfig:"SESSION_TTL_LONG" default:"720h"`
}

// ReindexConfig controls the full resync job.
type ReindexConfig struct {
	BatchSize  int           `envconfig:"REINDEX_BATCH_SIZE" default:"100"`
	StaleAfter time.Duration `envconfig:"REINDEX_STALE_AFTER" default:"1h"`
}

// MinIOConfig holds object storage settings for reindex reports.
// An empty Endpoint disables report archiving.
type MinIOConfig struct {
	Endpoint  string `envconfig:"MINIO_ENDPOINT"`
	AccessKey string `envconfig:"MINIO_ACCESS_KEY"`
	SecretKey string `envconfig:"MINIO_SECRET_KEY"`
	Bucket    string `envconfig:"MINIO_BUCKET" default:"marketapi-reports"`
	UseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	Port      string `envconfig:"PORT" default:"8080"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	RateLimit int    `envconfig:"RATE_LIMIT_PER_MINUTE" default:"30"`
	Database  DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Search    SearchConfig
	Session   SessionConfig
	Reindex   ReindexConfig
	MinIO     MinIOConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
func Load() (*AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	if c.Session.CookieName == "" {
		return fmt.Errorf("SESSION_COOKIE must not be empty")
	}
	if c.Session.TTL <= 0 || c.Session.LongTTL <= 0 {
		return fmt.Errorf("session TTLs must be positive")
	}
	if c.Reindex.BatchSize <= 0 {
		return fmt.Errorf("REINDEX_BATCH_SIZE must be positive")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative")
	}
	if c.Search.Timeout <= 0 {
		return fmt.Errorf("INDEX_TIMEOUT must be positive")
	}
	return nil
}

// CacheEnabled reports whether a cache endpoint is configured.
func (c *AppConfig) CacheEnabled() bool { return c.Redis.Addr != "" }

// ArchiveEnabled reports whether reindex reports are archived to object storage.
func (c *AppConfig) ArchiveEnabled() bool { return c.MinIO.Endpoint != "" }
