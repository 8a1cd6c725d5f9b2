//go:build mssql

package mssql

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ekaya-inc/plantsync/pkg/adapters/storage"
	"github.com/ekaya-inc/plantsync/pkg/apperrors"
)

// testConfig reads SQL Server settings from the environment and skips the
// test when they are missing.
func testConfig(t *testing.T) *Config {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	host := os.Getenv("MSSQL_HOST")
	user := os.Getenv("MSSQL_USER")
	password := os.Getenv("MSSQL_PASSWORD")
	database := os.Getenv("MSSQL_DATABASE")
	if host == "" || user == "" || password == "" || database == "" {
		t.Skip("skipping integration test: MSSQL_HOST, MSSQL_USER, MSSQL_PASSWORD, or MSSQL_DATABASE not set")
	}

	port := DefaultPort()
	if p := os.Getenv("MSSQL_PORT"); p != "" {
		var err error
		port, err = strconv.Atoi(p)
		require.NoError(t, err, "invalid MSSQL_PORT")
	}

	return &Config{
		Host:                   host,
		Port:                   port,
		Database:               database,
		Schema:                 "gamma",
		Username:               user,
		Password:               password,
		TrustServerCertificate: true,
		ConnectionTimeout:      DefaultConnectionTimeout(),
		MaxConnections:         4,
	}
}

func TestStore_Ping(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := NewStore(ctx, testConfig(t), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer store.Close()

	assert.NoError(t, store.Ping(ctx))
}

func TestStore_RunInTx_LockIsExclusive(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := NewStore(ctx, testConfig(t), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer store.Close()

	lock := storage.Lock{Key: "plantsync-lock-test", Timeout: 200 * time.Millisecond}

	err = store.RunInTx(ctx, lock, func(ctx context.Context, _ storage.WriteTx) error {
		// A second transaction cannot take the same lock while this one holds it.
		inner := store.RunInTx(ctx, lock, func(context.Context, storage.WriteTx) error {
			t.Error("second transaction acquired a held lock")
			return nil
		})
		assert.ErrorIs(t, inner, apperrors.ErrLockNotAcquired)
		return nil
	})
	require.NoError(t, err)

	// Released on commit.
	err = store.RunInTx(ctx, lock, func(context.Context, storage.WriteTx) error { return nil })
	assert.NoError(t, err)
}
