package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver
	"go.uber.org/zap"

	"github.com/ekaya-inc/plantsync/pkg/adapters/storage"
	"github.com/ekaya-inc/plantsync/pkg/apperrors"
	"github.com/ekaya-inc/plantsync/pkg/logging"
)

// lockSQL takes a transaction-owned application lock. sp_getapplock returns
// 0 or 1 when granted and a negative value on timeout, deadlock or error.
const lockSQL = `DECLARE @result INT;
EXEC @result = sp_getapplock
	@Resource = @resource,
	@LockMode = 'Exclusive',
	@LockOwner = 'Transaction',
	@LockTimeout = @timeout;
SELECT @result;`

// Store is the SQL Server catalog store.
type Store struct {
	config *Config
	db     *sql.DB
	schema string
	logger *zap.Logger
}

// NewStore opens a connection pool and verifies it with a ping.
func NewStore(ctx context.Context, cfg *Config, logger *zap.Logger) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dsn := cfg.connectionString()
	logger.Debug("Opening SQL Server connection", zap.String("dsn", logging.SanitizeConnectionString(dsn)))
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("open SQL auth connection: %s", logging.SanitizeError(err))
	}
	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}

	s := &Store{
		config: cfg,
		db:     db,
		schema: cfg.Schema,
		logger: logger.Named("mssql"),
	}
	if err := s.Ping(ctx); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("Connected to SQL Server",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("schema", cfg.Schema))
	return s, nil
}

// Ping verifies the database is reachable with valid credentials.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	var result int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// table returns the qualified name of a table in the configured schema.
func (s *Store) table(name string) string {
	return buildFullyQualifiedName(s.schema, name)
}

// RunInTx runs fn in a transaction holding an exclusive application lock on
// lock.Key. The lock is owned by the transaction and released on commit or
// rollback.
func (s *Store) RunInTx(ctx context.Context, lock storage.Lock, fn func(ctx context.Context, tx storage.WriteTx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				s.logger.Error("Rollback failed", zap.Error(rbErr))
			}
		}
	}()

	if err = s.acquireLock(ctx, tx, lock); err != nil {
		return err
	}

	if err = fn(ctx, &writeTx{store: s, tx: tx}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) acquireLock(ctx context.Context, tx *sql.Tx, lock storage.Lock) error {
	started := time.Now()
	var result int
	err := tx.QueryRowContext(ctx, lockSQL,
		sql.Named("resource", lock.Key),
		sql.Named("timeout", lock.Timeout.Milliseconds()),
	).Scan(&result)
	if err != nil {
		return fmt.Errorf("acquire lock %q: %w", lock.Key, err)
	}
	if result < 0 {
		return fmt.Errorf("%w: %q (sp_getapplock returned %d)", apperrors.ErrLockNotAcquired, lock.Key, result)
	}

	s.logger.Debug("Acquired run lock",
		zap.String("key", lock.Key),
		zap.Duration("waited", time.Since(started)))
	return nil
}

// Ensure Store implements storage.Store at compile time.
var _ storage.Store = (*Store)(nil)
