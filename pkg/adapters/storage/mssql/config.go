package mssql

import (
	"fmt"
	"net/url"

	"github.com/ekaya-inc/plantsync/pkg/config"
)

// Config contains SQL Server connection options.
type Config struct {
	Host     string
	Port     int
	Database string
	Schema   string

	// SQL Authentication
	Username string
	Password string

	// Connection options
	Encrypt                bool
	TrustServerCertificate bool
	ConnectionTimeout      int
	MaxConnections         int
}

// DefaultPort returns the default SQL Server port.
func DefaultPort() int {
	return 1433
}

// DefaultConnectionTimeout returns the default connection timeout in seconds.
func DefaultConnectionTimeout() int {
	return 30
}

// FromStorageConfig builds a Config from the application storage settings.
func FromStorageConfig(sc *config.StorageConfig) *Config {
	cfg := &Config{
		Host:                   config.ResolveHostForDocker(sc.Host),
		Port:                   sc.Port,
		Database:               sc.Database,
		Schema:                 sc.Schema,
		Username:               sc.User,
		Password:               sc.Password,
		Encrypt:                sc.Encrypt,
		TrustServerCertificate: sc.TrustServerCertificate,
		ConnectionTimeout:      sc.ConnectionTimeout,
		MaxConnections:         int(sc.MaxConnections),
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort()
	}
	if cfg.ConnectionTimeout == 0 {
		cfg.ConnectionTimeout = DefaultConnectionTimeout()
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
	if c.Username == "" {
		return fmt.Errorf("username is required for SQL authentication")
	}
	if c.Password == "" {
		return fmt.Errorf("password is required for SQL authentication")
	}
	return nil
}

// connectionString builds the sqlserver:// URL for SQL authentication.
func (c *Config) connectionString() string {
	query := url.Values{}
	query.Add("database", c.Database)

	if c.Encrypt {
		query.Add("encrypt", "true")
	} else {
		query.Add("encrypt", "false")
	}

	if c.TrustServerCertificate {
		query.Add("TrustServerCertificate", "true")
	}

	if c.ConnectionTimeout > 0 {
		query.Add("connection timeout", fmt.Sprintf("%d", c.ConnectionTimeout))
	}

	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(c.Username, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		RawQuery: query.Encode(),
	}
	return u.String()
}
