package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/ekaya-inc/plantsync/pkg/retry"
)

// Config holds all configuration for plantsync.
// Configuration can come from a YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Storage is the catalog database the engine reconciles against.
	Storage StorageConfig `yaml:"storage"`

	// Retry bounds how transient database errors are retried.
	Retry RetryConfig `yaml:"retry"`

	Run RunConfig `yaml:"run"`

	Metrics MetricsConfig `yaml:"metrics"`
}

// StorageConfig selects and configures the storage adapter.
type StorageConfig struct {
	// Driver is a registered adapter type, e.g. "mssql" or "postgres".
	// Unknown drivers are reported by storage.Open.
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"mssql"`
	Host   string `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	// Port 0 selects the driver's default (1433 for mssql, 5432 for postgres).
	Port     int    `yaml:"port" env:"DB_PORT"`
	User     string `yaml:"user" env:"DB_USER" env-default:"plantsync"`
	Password string `yaml:"-" env:"DB_PASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"DB_NAME" env-default:"plants"`
	Schema   string `yaml:"schema" env:"DB_SCHEMA" env-default:"gamma"`

	// PostgreSQL only.
	SSLMode string `yaml:"ssl_mode" env:"DB_SSL_MODE" env-default:"disable"`

	// SQL Server only.
	Encrypt                bool `yaml:"encrypt" env:"DB_ENCRYPT" env-default:"true"`
	TrustServerCertificate bool `yaml:"trust_server_certificate" env:"DB_TRUST_SERVER_CERTIFICATE" env-default:"false"`
	ConnectionTimeout      int  `yaml:"connection_timeout" env:"DB_CONNECTION_TIMEOUT" env-default:"30"`

	MaxConnections int32 `yaml:"max_connections" env:"DB_MAX_CONNECTIONS" env-default:"4"`
}

// RetryConfig holds the backoff used for snapshot loads and batch writes.
type RetryConfig struct {
	MaxRetries   int           `yaml:"max_retries" env:"RETRY_MAX_RETRIES" env-default:"3"`
	InitialDelay time.Duration `yaml:"initial_delay" env:"RETRY_INITIAL_DELAY" env-default:"200ms"`
	MaxDelay     time.Duration `yaml:"max_delay" env:"RETRY_MAX_DELAY" env-default:"5s"`
}

// RunConfig holds settings for a single reconciliation run.
type RunConfig struct {
	// LockKey names the run-level lock; runs sharing a key are serialized.
	LockKey string `yaml:"lock_key" env:"RUN_LOCK_KEY" env-default:"plantsync"`
	// LockTimeout is how long a run waits for the lock before failing.
	LockTimeout time.Duration `yaml:"lock_timeout" env:"RUN_LOCK_TIMEOUT" env-default:"30s"`
}

// MetricsConfig controls the per-run metrics push. Metrics are only pushed
// when PushgatewayURL is set.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url" env:"METRICS_PUSHGATEWAY_URL" env-default:""`
	Job            string `yaml:"job" env:"METRICS_JOB" env-default:"plantsync"`
}

// LoadFrom reads configuration from path with environment variable overrides.
// An empty path reads the environment only.
func LoadFrom(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if path == "" {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the fields that cannot be defaulted sensibly.
func (c *Config) Validate() error {
	if c.Storage.Driver == "" {
		return errors.New("storage driver is required")
	}
	if c.Storage.Host == "" {
		return errors.New("storage host is required")
	}
	if c.Storage.Port < 0 || c.Storage.Port > 65535 {
		return fmt.Errorf("invalid storage port: %d", c.Storage.Port)
	}
	if c.Storage.Database == "" {
		return errors.New("storage database is required")
	}
	if !isIdentifier(c.Storage.Schema) {
		return fmt.Errorf("invalid storage schema %q", c.Storage.Schema)
	}
	if c.Run.LockKey == "" {
		return errors.New("run lock_key is required")
	}
	if c.Run.LockTimeout <= 0 {
		return fmt.Errorf("run lock_timeout must be positive, got %s", c.Run.LockTimeout)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry max_retries must not be negative, got %d", c.Retry.MaxRetries)
	}
	return nil
}

// Policy converts the configured backoff into a retry.Config.
func (r RetryConfig) Policy() *retry.Config {
	cfg := retry.DefaultConfig()
	cfg.MaxRetries = r.MaxRetries
	if r.InitialDelay > 0 {
		cfg.InitialDelay = r.InitialDelay
	}
	if r.MaxDelay > 0 {
		cfg.MaxDelay = r.MaxDelay
	}
	return cfg
}

// isIdentifier reports whether s is safe to splice into SQL as a schema name.
func isIdentifier(s string) bool {
	if s == "" || len(s) > 128 {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// ResolveHostForDocker returns host.docker.internal for a loopback host when
// running inside a container, so a containerized run can reach a database on
// the host machine. Other hosts are returned unchanged.
func ResolveHostForDocker(host string) string {
	if host != "localhost" && host != "127.0.0.1" {
		return host
	}
	if _, err := os.Stat("/.dockerenv"); err != nil {
		return host
	}
	return "host.docker.internal"
}
