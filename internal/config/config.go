// Package config provides centralized configuration management for the report service.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Grades    GradesConfig
	Redis     RedisConfig
	Render    RenderConfig
	Report    ReportConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
	Retention RetentionConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing a response.
	// Zero disables it; large bundles stream for longer than any sane fixed limit.
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout bounds non-streaming API requests (default: 30s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`

	// GenerateTimeout bounds a single report generation (default: 10m)
	GenerateTimeout time.Duration `env:"SERVER_GENERATE_TIMEOUT" default:"10m"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// GradesConfig selects where student and grade rows are read from.
type GradesConfig struct {
	// MySQLDSN points at a MySQL registrar database. When empty, grades are
	// read from the PostgreSQL database above.
	MySQLDSN string `env:"GRADES_MYSQL_DSN"`

	// MySQLMaxOpenConns caps the MySQL pool (default: 10)
	MySQLMaxOpenConns int `env:"GRADES_MYSQL_MAX_OPEN_CONNS" default:"10"`
}

// RedisConfig holds the optional shared rate-limit store.
type RedisConfig struct {
	// URL is a redis:// URL. Empty keeps rate limiting in process memory.
	URL string `env:"REDIS_URL"`
}

// RenderConfig holds headless browser settings for PDF output.
type RenderConfig struct {
	// ChromePath overrides browser discovery (default: search PATH)
	ChromePath string `env:"RENDER_CHROME_PATH"`

	// NoSandbox disables the Chrome sandbox, required in most containers (default: true)
	NoSandbox bool `env:"RENDER_NO_SANDBOX" default:"true"`

	// Timeout bounds a single markup-to-PDF conversion (default: 60s)
	Timeout time.Duration `env:"RENDER_TIMEOUT" default:"60s"`

	// MaxEngines is the number of browser instances allowed across all requests (default: 2)
	MaxEngines int `env:"RENDER_MAX_ENGINES" default:"2"`

	// MaxWait is how long a request waits for a browser slot (default: 30s)
	MaxWait time.Duration `env:"RENDER_MAX_WAIT" default:"30s"`

	// Concurrency is the number of students rendered in parallel per bundle (default: 4)
	Concurrency int `env:"RENDER_CONCURRENCY" default:"4"`

	// PageMarginInches is the margin applied on every side of an A4 page (default: 0.75)
	PageMarginInches float64 `env:"RENDER_PAGE_MARGIN_IN" default:"0.75"`
}

// ReportConfig holds report content settings.
type ReportConfig struct {
	// MaxSemesters is the number of semester-indexed workbook columns (default: 10)
	MaxSemesters int `env:"REPORT_MAX_SEMESTERS" default:"10"`

	// GradeScaleFile is a TOML grade scale. Empty uses the built-in scale.
	GradeScaleFile string `env:"REPORT_GRADE_SCALE_FILE"`

	// InstitutionName is printed in document headers and footers
	InstitutionName string `env:"REPORT_INSTITUTION_NAME" default:"Your Institution Name"`

	// MaxStudents caps identifiers per request (default: 500)
	MaxStudents int `env:"REPORT_MAX_STUDENTS" default:"500"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per client (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// GenerateLimit is requests per minute for report generation (default: 10)
	GenerateLimit int `env:"RATE_LIMIT_GENERATE" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// AuthRequired enables bearer token validation on API routes (default: true)
	AuthRequired bool `env:"AUTH_REQUIRED" default:"true"`

	// JWTSecret is the HMAC secret used to verify bearer tokens
	JWTSecret string `env:"AUTH_JWT_SECRET"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// RetentionConfig holds report history retention settings.
type RetentionConfig struct {
	// ReportDays is how long generated-report history is kept (default: 180)
	ReportDays int `env:"RETENTION_REPORT_DAYS" default:"180"`

	// CheckInterval is how often the purge runs (default: 24h)
	CheckInterval time.Duration `env:"RETENTION_CHECK_INTERVAL" default:"24h"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
