package postgres

import (
	"fmt"

	"github.com/ekaya-inc/plantsync/pkg/config"
	"github.com/ekaya-inc/plantsync/pkg/database"
)

// Config contains PostgreSQL connection options.
type Config struct {
	Host           string
	Port           int
	User           string
	Password       string
	Database       string
	Schema         string
	SSLMode        string
	MaxConnections int32
}

// DefaultPort returns the default PostgreSQL port.
func DefaultPort() int {
	return 5432
}

// FromStorageConfig builds a Config from the application storage settings.
// When running in Docker, localhost is resolved to host.docker.internal.
func FromStorageConfig(sc *config.StorageConfig) *Config {
	cfg := &Config{
		Host:           config.ResolveHostForDocker(sc.Host),
		Port:           sc.Port,
		User:           sc.User,
		Password:       sc.Password,
		Database:       sc.Database,
		Schema:         sc.Schema,
		SSLMode:        sc.SSLMode,
		MaxConnections: sc.MaxConnections,
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort()
	}
	return cfg
}

// Validate checks that required fields are set.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if c.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if c.User == "" {
		return fmt.Errorf("user is required")
	}
	return nil
}

func (c *Config) connectionString() string {
	return database.PostgresURL(c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}
