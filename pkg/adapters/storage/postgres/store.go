package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/ekaya-inc/plantsync/pkg/adapters/storage"
	"github.com/ekaya-inc/plantsync/pkg/apperrors"
	"github.com/ekaya-inc/plantsync/pkg/database"
)

const (
	// lock_not_available, raised when lock_timeout expires.
	codeLockNotAvailable = "55P03"
	codeUniqueViolation  = "23505"
)

// Store is the PostgreSQL catalog store.
type Store struct {
	db     *database.DB
	schema string
	logger *zap.Logger
}

// NewStore opens a connection pool and verifies it with a ping.
func NewStore(ctx context.Context, cfg *Config, logger *zap.Logger) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.connectionString(),
		MaxConnections: cfg.MaxConnections,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	s := newStore(db, cfg.Schema, logger)
	s.logger.Info("Connected to PostgreSQL",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("schema", cfg.Schema))
	return s, nil
}

func newStore(db *database.DB, schema string, logger *zap.Logger) *Store {
	return &Store{
		db:     db,
		schema: schema,
		logger: logger.Named("postgres"),
	}
}

// Ping verifies the database is reachable with valid credentials.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	var result int
	if err := s.db.QueryRow(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.db.Close()
	return nil
}

// table returns the quoted, schema-qualified name of a table.
func (s *Store) table(name string) string {
	return pgx.Identifier{s.schema, name}.Sanitize()
}

// RunInTx runs fn in a transaction holding a transaction-scoped advisory lock
// derived from lock.Key. The lock is released on commit or rollback.
func (s *Store) RunInTx(ctx context.Context, lock storage.Lock, fn func(ctx context.Context, tx storage.WriteTx) error) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if err := s.acquireLock(ctx, tx, lock); err != nil {
			return err
		}
		return fn(ctx, &writeTx{store: s, tx: tx})
	})
}

// acquireLock waits at most lock.Timeout for the advisory lock. The timeout
// is scoped to the lock statement only.
func (s *Store) acquireLock(ctx context.Context, tx pgx.Tx, lock storage.Lock) error {
	timeout := fmt.Sprintf("%dms", lock.Timeout.Milliseconds())
	if _, err := tx.Exec(ctx, "SELECT set_config('lock_timeout', $1, true)", timeout); err != nil {
		return fmt.Errorf("set lock_timeout: %w", err)
	}

	_, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", lock.Key)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == codeLockNotAvailable {
			return fmt.Errorf("%w: %q after %s", apperrors.ErrLockNotAcquired, lock.Key, lock.Timeout)
		}
		return fmt.Errorf("acquire lock %q: %w", lock.Key, err)
	}

	if _, err := tx.Exec(ctx, "SELECT set_config('lock_timeout', '0', true)"); err != nil {
		return fmt.Errorf("reset lock_timeout: %w", err)
	}
	s.logger.Debug("Acquired run lock", zap.String("key", lock.Key))
	return nil
}

// wrapWriteError marks unique violations as conflicts: a concurrent run
// created the same natural key after this run's snapshot was read.
func wrapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation {
		return fmt.Errorf("%s: %w: %w", op, apperrors.ErrConflict, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Ensure Store implements storage.Store at compile time.
var _ storage.Store = (*Store)(nil)
