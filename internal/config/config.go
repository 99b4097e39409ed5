// Package config provides centralized configuration management for the application.
// It loads configuration from an optional YAML file and environment variables
// with sensible defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

// Config holds all application configuration.
// Every setting can be configured via environment variables, which override
// values read from the YAML file.
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Store    StoreConfig     `yaml:"store"`
	Upload   UploadConfig    `yaml:"upload"`
	Rate     RateLimitConfig `yaml:"rate"`
	Security SecurityConfig  `yaml:"security"`
	CORS     CORSConfig      `yaml:"cors"`
	Logging  LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host" env:"SERVER_HOST" env-default:"0.0.0.0" env-description:"interface to bind to"`
	Port int    `yaml:"port" env:"SERVER_PORT" env-default:"8080" env-description:"port to listen on"`

	// ReadTimeout is the maximum duration for reading the request including the body.
	ReadTimeout time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"30s"`

	WriteTimeout time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"2m"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including draining uploads.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"30s"`

	// RequestTimeout is the middleware timeout for requests.
	RequestTimeout time.Duration `yaml:"request_timeout" env:"SERVER_REQUEST_TIMEOUT" env-default:"90s"`
}

// StoreConfig selects and configures the record store.
type StoreConfig struct {
	// Driver is one of postgres, sqlite, mongo, memory.
	Driver string `yaml:"driver" env:"STORE_DRIVER" env-default:"postgres"`

	// URL is the PostgreSQL connection string.
	URL string `yaml:"url" env:"DATABASE_URL"`

	SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH" env-default:"records.db"`

	MongoURI      string `yaml:"mongo_uri" env:"MONGO_URI"`
	MongoDatabase string `yaml:"mongo_database" env:"MONGO_DATABASE" env-default:"employees"`

	MaxConns        int           `yaml:"max_conns" env:"DB_MAX_CONNS" env-default:"20"`
	MinConns        int           `yaml:"min_conns" env:"DB_MIN_CONNS" env-default:"2"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env:"DB_MAX_CONN_LIFETIME" env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DB_MAX_CONN_IDLE_TIME" env-default:"30m"`

	// AutoMigrate applies schema migrations on startup.
	AutoMigrate bool `yaml:"auto_migrate" env:"STORE_AUTO_MIGRATE" env-default:"true"`
}

// UploadConfig holds spreadsheet upload settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 20MB).
	MaxFileSize int64 `yaml:"max_file_size" env:"UPLOAD_MAX_FILE_SIZE" env-default:"20971520"`

	// MaxConcurrent is the maximum number of uploads processed at once.
	MaxConcurrent int `yaml:"max_concurrent" env:"UPLOAD_MAX_CONCURRENT" env-default:"5"`

	// MaxWaitTime is how long a request waits for an upload slot.
	MaxWaitTime time.Duration `yaml:"max_wait_time" env:"UPLOAD_MAX_WAIT_TIME" env-default:"30s"`

	// PersistTimeout bounds the insert of one validated batch.
	PersistTimeout time.Duration `yaml:"persist_timeout" env:"UPLOAD_PERSIST_TIMEOUT" env-default:"2m"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled" env:"RATE_LIMIT_ENABLED" env-default:"true"`

	// RequestsPerMinute is the default rate limit per IP.
	RequestsPerMinute int `yaml:"requests_per_minute" env:"RATE_LIMIT_REQUESTS_PER_MINUTE" env-default:"300"`

	// UploadLimit is requests per minute for upload endpoints.
	UploadLimit int `yaml:"upload_limit" env:"RATE_LIMIT_UPLOAD" env-default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs.
	TrustedProxies []string `yaml:"trusted_proxies" env:"TRUSTED_PROXIES" env-separator:","`
}

// CORSConfig controls cross-origin access for the browser client.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"*"`
	MaxAge         int      `yaml:"max_age" env:"CORS_MAX_AGE" env-default:"300"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`

	// Format is the log format: text or json.
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
