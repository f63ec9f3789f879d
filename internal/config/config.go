// Package config provides centralized configuration management for tlmlog.
// Settings come from defaults, an optional YAML file and TLM_* environment
// variables, in that order, and are validated once to fail fast on
// misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"

	"github.com/JonMunkholm/tlmlog/internal/core"
)

// Config holds all application configuration.
type Config struct {
	Ingest   IngestConfig    `yaml:"ingest"`
	Server   ServerConfig    `yaml:"server"`
	Rate     RateLimitConfig `yaml:"rate"`
	Security SecurityConfig  `yaml:"security"`
	Logging  LoggingConfig   `yaml:"logging"`
}

// IngestConfig holds dataset construction settings.
type IngestConfig struct {
	// Root is the directory holding session directories (default: .)
	Root string `yaml:"root" env:"TLM_ROOT" default:"."`

	// Sessions restricts discovery to these session names
	Sessions []string `yaml:"sessions" env:"TLM_SESSIONS"`

	// ParsedDir is the per-session folder holding <network>/<message>.csv (default: parsed)
	ParsedDir string `yaml:"parsed_dir" env:"TLM_PARSED_DIR" default:"parsed"`

	// TimestampColumn names the index column (default: _timestamp)
	TimestampColumn string `yaml:"timestamp_column" env:"TLM_TIMESTAMP_COLUMN" default:"_timestamp"`

	// MinFileSize is the size in bytes at or below which a file is empty (default: 2)
	MinFileSize int64 `yaml:"min_file_size" env:"TLM_MIN_FILE_SIZE" default:"2"`

	Resample         bool          `yaml:"resample" env:"TLM_RESAMPLE" default:"true"`
	ResampleInterval time.Duration `yaml:"resample_interval" env:"TLM_RESAMPLE_INTERVAL" default:"1ms"`
	ResampleMode     string        `yaml:"resample_mode" env:"TLM_RESAMPLE_MODE" default:"mean_interpolate"`

	// MaxGridPoints caps the rows of one resampled recording (default: 10000000)
	MaxGridPoints int `yaml:"max_grid_points" env:"TLM_MAX_GRID_POINTS" default:"10000000"`

	// Align is none, beginning, end or both (default: none)
	Align string `yaml:"align" env:"TLM_ALIGN" default:"none"`

	IgnoreNetworks   []string `yaml:"ignore_networks" env:"TLM_IGNORE_NETWORKS"`
	ConsiderNetworks []string `yaml:"consider_networks" env:"TLM_CONSIDER_NETWORKS"`
	IgnoreFiles      []string `yaml:"ignore_files" env:"TLM_IGNORE_FILES"`

	// NullTokens replaces the built-in list of missing-value markers
	NullTokens []string `yaml:"null_tokens" env:"TLM_NULL_TOKENS"`

	// Workers bounds concurrent file ingestion (default: 4)
	Workers int `yaml:"workers" env:"TLM_WORKERS" default:"4"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 127.0.0.1)
	Host string `yaml:"host" env:"TLM_SERVER_HOST" default:"127.0.0.1"`

	// Port is the port to listen on (default: 8080)
	Port int `yaml:"port" env:"TLM_SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `yaml:"read_timeout" env:"TLM_SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"TLM_SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"TLM_SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"TLM_SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 30s)
	RequestTimeout time.Duration `yaml:"request_timeout" env:"TLM_SERVER_REQUEST_TIMEOUT" default:"30s"`
}

// RateLimitConfig holds per-IP rate limiting settings for the HTTP API.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `yaml:"enabled" env:"TLM_RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the sustained rate per IP (default: 120)
	RequestsPerMinute int `yaml:"requests_per_minute" env:"TLM_RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// Burst is the number of requests allowed at once (default: 20)
	Burst int `yaml:"burst" env:"TLM_RATE_LIMIT_BURST" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Real-IP / X-Forwarded-For headers are believed
	TrustedProxies []string `yaml:"trusted_proxies" env:"TLM_TRUSTED_PROXIES"`

	// RequireAPIKey enables X-API-Key checks on /api routes (default: false)
	RequireAPIKey bool `yaml:"require_api_key" env:"TLM_REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `yaml:"api_keys" env:"TLM_API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `yaml:"level" env:"TLM_LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `yaml:"format" env:"TLM_LOG_FORMAT" default:"text"`
}

// Options converts the ingest settings into loader options. Mode strings are
// passed through unparsed; core.Options.Validate rejects unknown values.
func (c *IngestConfig) Options() core.Options {
	return core.Options{
		Resample:         c.Resample,
		ResampleInterval: c.ResampleInterval,
		ResampleMode:     core.ResampleMode(c.ResampleMode),
		MaxGridPoints:    c.MaxGridPoints,
		Align:            core.AlignMode(c.Align),
		IgnoreNetworks:   c.IgnoreNetworks,
		ConsiderNetworks: c.ConsiderNetworks,
		IgnoreFiles:      c.IgnoreFiles,
		ParsedDir:        c.ParsedDir,
		TimestampColumn:  c.TimestampColumn,
		MinFileSize:      c.MinFileSize,
		NullTokens:       c.NullTokens,
		Workers:          c.Workers,
	}
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
