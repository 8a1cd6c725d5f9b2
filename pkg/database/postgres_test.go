package database

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresURL(t *testing.T) {
	raw := PostgresURL("db.internal", 5432, "plant user", "p@ss/w#rd?", "plants", "")

	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "postgresql", u.Scheme)
	assert.Equal(t, "db.internal:5432", u.Host)
	assert.Equal(t, "/plants", u.Path)
	assert.Equal(t, "plant user", u.User.Username())
	password, ok := u.User.Password()
	require.True(t, ok)
	assert.Equal(t, "p@ss/w#rd?", password)
	assert.Equal(t, "require", u.Query().Get("sslmode"), "sslmode defaults to require")
}

func TestPostgresURL_SSLMode(t *testing.T) {
	u, err := url.Parse(PostgresURL("localhost", 5433, "u", "p", "d", "disable"))
	require.NoError(t, err)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
}
