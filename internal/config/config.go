// Package config provides centralized configuration management for the application.
// It loads configuration from an optional YAML file and environment variables
// with sensible defaults, and validates all settings on startup to fail fast
// on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Every setting can be configured via environment variables; a YAML file
// named by CONFIG_FILE may provide base values that the environment overrides.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Upload   UploadConfig   `yaml:"upload"`
	Query    QueryConfig    `yaml:"query"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `yaml:"host" env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `yaml:"port" env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading the request (default: 60s)
	ReadTimeout time.Duration `yaml:"readTimeout" env:"SERVER_READ_TIMEOUT" default:"60s"`

	// WriteTimeout is the maximum duration for writing the response (default: 60s)
	WriteTimeout time.Duration `yaml:"writeTimeout" env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `yaml:"idleTimeout" env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for non-import requests (default: 60s)
	RequestTimeout time.Duration `yaml:"requestTimeout" env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// TrustedProxies lists proxy CIDRs whose X-Real-IP / X-Forwarded-For
	// headers are honored. Empty means client headers are ignored.
	TrustedProxies []string `yaml:"trustedProxies" env:"SERVER_TRUSTED_PROXIES"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Driver selects the store: postgres, sqlite or memory (default: postgres)
	Driver string `yaml:"driver" env:"DB_DRIVER" default:"postgres"`

	// URL is the connection string: a postgres URL, a sqlite file path,
	// or any non-empty name for memory (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `yaml:"url" env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `yaml:"maxConns" env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `yaml:"minConns" env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `yaml:"maxConnLifetime" env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `yaml:"maxConnIdleTime" env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// BusyTimeout is how long sqlite waits on a locked database (default: 5s)
	BusyTimeout time.Duration `yaml:"busyTimeout" env:"DB_BUSY_TIMEOUT" default:"5s"`

	// EnsureSchema applies the embedded schema on startup (default: true)
	EnsureSchema bool `yaml:"ensureSchema" env:"DB_ENSURE_SCHEMA" default:"true"`
}

// UploadConfig holds sample file import settings.
type UploadConfig struct {
	// MaxFileSize is the maximum accepted upload size in bytes (default: 32MB)
	MaxFileSize int64 `yaml:"maxFileSize" env:"UPLOAD_MAX_FILE_SIZE" default:"33554432"`

	// MaxConcurrent is the maximum number of parallel imports (default: 5)
	MaxConcurrent int `yaml:"maxConcurrent" env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for an import slot (default: 30s)
	MaxWaitTime time.Duration `yaml:"maxWaitTime" env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// BatchSize is the number of samples to insert per batch (default: 1000)
	BatchSize int `yaml:"batchSize" env:"UPLOAD_BATCH_SIZE" default:"1000"`

	// MaxRows is the maximum number of samples per file (default: 10000)
	MaxRows int `yaml:"maxRows" env:"UPLOAD_MAX_ROWS" default:"10000"`

	// Timeout is the maximum duration for a single import (default: 5m)
	Timeout time.Duration `yaml:"timeout" env:"UPLOAD_TIMEOUT" default:"5m"`
}

// QueryConfig holds read-side settings.
type QueryConfig struct {
	// RecentCount is the default number of recent samples returned (default: 10)
	RecentCount int `yaml:"recentCount" env:"QUERY_RECENT_COUNT" default:"10"`

	// RecentMax caps the number of recent samples per request (default: 1000)
	RecentMax int `yaml:"recentMax" env:"QUERY_RECENT_MAX" default:"1000"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `yaml:"level" env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `yaml:"format" env:"LOG_FORMAT" default:"text"`

	// File additionally writes logs to a rotating file when set
	File string `yaml:"file" env:"LOG_FILE"`

	// MaxSizeMB is the size at which the log file rotates (default: 64)
	MaxSizeMB int `yaml:"maxSizeMB" env:"LOG_MAX_SIZE_MB" default:"64"`

	// MaxBackups is the number of rotated files kept (default: 7)
	MaxBackups int `yaml:"maxBackups" env:"LOG_MAX_BACKUPS" default:"7"`

	// MaxAgeDays is how long rotated files are kept (default: 7)
	MaxAgeDays int `yaml:"maxAgeDays" env:"LOG_MAX_AGE_DAYS" default:"7"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
