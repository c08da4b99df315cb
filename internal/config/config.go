// Package config provides configuration management for the enrichment
// engine: plain environment-variable loading into a typed Config struct,
// the pattern malbeclabs-doublezero's services use (e.g.
// lake/api/config/{config,postgres}.go, telemetry/flow-ingest's loadConfig) —
// read os.Getenv with a fallback default per field, no config file, no
// mapstructure tags.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Log      LogConfig
	River    RiverConfig
	Worker   WorkerConfig
	Pipeline PipelineConfig
}

// ServerConfig contains HTTP server settings for the Submission & Batch API.
type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// CORS settings.
	AllowedOrigins        []string
	AllowCredentials      bool
	UnsafeAllowAllOrigins bool
}

// DatabaseConfig contains PostgreSQL connection settings.
// A single shared pgxpool backs the entity store, River, and the submission
// repository.
type DatabaseConfig struct {
	URL string

	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	// Pool configuration (shared by entity store, River, submission repository).
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	AutoMigrate bool
}

// DSN returns the PostgreSQL connection string.
// Priority: DATABASE_URL > constructed from individual fields.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, sslmode,
	)
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string
	Format string // json or console
}

// RiverConfig contains River Queue settings for the task dispatcher.
type RiverConfig struct {
	MaxWorkers                  int
	CompletedJobRetentionPeriod time.Duration
}

// WorkerConfig contains worker pool settings.
type WorkerConfig struct {
	RunsPoolSize     int
	ProviderPoolSize int
}

// PipelineConfig contains pipeline runtime settings.
type PipelineConfig struct {
	// MaxFanoutDepth bounds how many levels deep a fan-out-spawned pipeline
	// run may itself fan out, preventing unbounded recursive expansion.
	MaxFanoutDepth int

	// DefaultFreshnessHours is the fallback freshness window used when a
	// blueprint step does not specify its own max_age_hours.
	DefaultFreshnessHours float64

	// StepTimeout bounds a single step executor invocation, including
	// provider call and retries.
	StepTimeout time.Duration
}

// Load reads configuration from environment variables, falling back to
// defaults for anything unset. Standard, unprefixed names (DATABASE_URL,
// SERVER_PORT, LOG_LEVEL, ...).
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:                  getenvInt("SERVER_PORT", 8080),
			ReadTimeout:           getenvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:          getenvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout:       getenvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			AllowedOrigins:        splitCSV(os.Getenv("SERVER_ALLOWED_ORIGINS")),
			AllowCredentials:      getenvBool("SERVER_ALLOW_CREDENTIALS", true),
			UnsafeAllowAllOrigins: getenvBool("SERVER_UNSAFE_ALLOW_ALL_ORIGINS", false),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Host:            getenv("DATABASE_HOST", "localhost"),
			Port:            getenvInt("DATABASE_PORT", 5432),
			User:            getenv("DATABASE_USER", "enrichpipe"),
			Password:        os.Getenv("DATABASE_PASSWORD"),
			Database:        getenv("DATABASE_NAME", "enrichpipe"),
			SSLMode:         getenv("DATABASE_SSLMODE", "disable"),
			MaxConns:        int32(getenvInt("DATABASE_MAX_CONNS", 50)),
			MinConns:        int32(getenvInt("DATABASE_MIN_CONNS", 5)),
			MaxConnLifetime: getenvDuration("DATABASE_MAX_CONN_LIFETIME", time.Hour),
			MaxConnIdleTime: getenvDuration("DATABASE_MAX_CONN_IDLE_TIME", 10*time.Minute),
			AutoMigrate:     getenvBool("DATABASE_AUTO_MIGRATE", false),
		},
		Log: LogConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "json"),
		},
		River: RiverConfig{
			MaxWorkers:                  getenvInt("RIVER_MAX_WORKERS", 10),
			CompletedJobRetentionPeriod: getenvDuration("RIVER_COMPLETED_JOB_RETENTION_PERIOD", 24*time.Hour),
		},
		Worker: WorkerConfig{
			RunsPoolSize:     getenvInt("WORKER_RUNS_POOL_SIZE", 100),
			ProviderPoolSize: getenvInt("WORKER_PROVIDER_POOL_SIZE", 50),
		},
		Pipeline: PipelineConfig{
			MaxFanoutDepth:        getenvInt("PIPELINE_MAX_FANOUT_DEPTH", 3),
			DefaultFreshnessHours: getenvFloat("PIPELINE_DEFAULT_FRESHNESS_HOURS", 24.0),
			StepTimeout:           getenvDuration("PIPELINE_STEP_TIMEOUT", 2*time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks for critical configuration errors.
func (c *Config) Validate() error {
	if c.Pipeline.MaxFanoutDepth < 1 {
		return fmt.Errorf("pipeline max_fanout_depth must be at least 1")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name must not be empty")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
