package mssql

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/plantsync/pkg/config"
)

func TestFromStorageConfig(t *testing.T) {
	cfg := FromStorageConfig(&config.StorageConfig{
		Host:                   "db.internal",
		User:                   "sa",
		Password:               "p@ss:word",
		Database:               "plants",
		Schema:                 "gamma",
		Encrypt:                true,
		TrustServerCertificate: true,
		MaxConnections:         8,
	})

	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, DefaultPort(), cfg.Port)
	assert.Equal(t, DefaultConnectionTimeout(), cfg.ConnectionTimeout)
	assert.Equal(t, 8, cfg.MaxConnections)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{Host: "h", Database: "d", Schema: "gamma", Username: "u", Password: "p"}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing host", func(c *Config) { c.Host = "" }, "host is required"},
		{"missing database", func(c *Config) { c.Database = "" }, "database is required"},
		{"missing schema", func(c *Config) { c.Schema = "" }, "schema is required"},
		{"missing username", func(c *Config) { c.Username = "" }, "username is required"},
		{"missing password", func(c *Config) { c.Password = "" }, "password is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ConnectionString(t *testing.T) {
	cfg := &Config{
		Host:                   "db.internal",
		Port:                   1433,
		Database:               "plants",
		Username:               "sa",
		Password:               "p@ss:word",
		Encrypt:                false,
		TrustServerCertificate: true,
		ConnectionTimeout:      15,
	}

	u, err := url.Parse(cfg.connectionString())
	require.NoError(t, err)

	assert.Equal(t, "sqlserver", u.Scheme)
	assert.Equal(t, "db.internal:1433", u.Host)
	assert.Equal(t, "sa", u.User.Username())
	password, _ := u.User.Password()
	assert.Equal(t, "p@ss:word", password)

	q := u.Query()
	assert.Equal(t, "plants", q.Get("database"))
	assert.Equal(t, "false", q.Get("encrypt"))
	assert.Equal(t, "true", q.Get("TrustServerCertificate"))
	assert.Equal(t, "15", q.Get("connection timeout"))
}
