// Package retry retries transient database failures with exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Config defines retry behavior with exponential backoff
type Config struct {
	MaxRetries       int
	InitialDelay     time.Duration
	MaxDelay         time.Duration
	Multiplier       float64
	JitterFactor     float64 // 0.0-1.0, default 0.1 for +/-10% jitter
	MaxSameErrorType int     // After N consecutive same-type errors, treat as permanent (default: 5)
}

// DefaultConfig returns defaults for database operations:
// 3 retries with 100ms initial delay, capped at 5s, doubling each time, with 10% jitter
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:       3,
		InitialDelay:     100 * time.Millisecond,
		MaxDelay:         5 * time.Second,
		Multiplier:       2.0,
		JitterFactor:     0.1,
		MaxSameErrorType: 5,
	}
}

// applyJitter returns delay +/- (delay * jitterFactor * random(-1 to +1)).
func applyJitter(delay time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return delay
	}
	jitter := float64(delay) * jitterFactor * (rand.Float64()*2 - 1)
	return time.Duration(float64(delay) + jitter)
}

// wait sleeps for the jittered delay and returns the next delay, or the
// context error if ctx is done first.
func wait(ctx context.Context, cfg *Config, delay time.Duration) (time.Duration, error) {
	select {
	case <-time.After(applyJitter(delay, cfg.JitterFactor)):
		next := time.Duration(float64(delay) * cfg.Multiplier)
		if next > cfg.MaxDelay {
			next = cfg.MaxDelay
		}
		return next, nil
	case <-ctx.Done():
		return delay, ctx.Err()
	}
}

// DoWithResult executes fn and returns both result and error.
// Useful for functions that return values (like opening a connection pool).
func DoWithResult[T any](ctx context.Context, cfg *Config, fn func() (T, error)) (T, error) {
	var result T
	err := DoIfRetryable(ctx, cfg, func() error {
		r, err := fn()
		result = r // Keep last result even on error
		return err
	})
	return result, err
}

// RetryableError is an interface for errors that explicitly declare their retryability.
type RetryableError interface {
	error
	IsRetryable() bool
}

// sqlStateError is implemented by *pgconn.PgError.
type sqlStateError interface {
	SQLState() string
}

// sqlNumberError is implemented by mssql.Error.
type sqlNumberError interface {
	SQLErrorNumber() int32
}

// Retryable PostgreSQL SQLSTATE codes (and classes, when two characters).
var retryableSQLStates = []string{
	"40001", // serialization_failure
	"40P01", // deadlock_detected
	"53300", // too_many_connections
	"57P03", // cannot_connect_now
	"08",    // connection_exception
}

// Retryable SQL Server error numbers.
var retryableSQLNumbers = map[int32]string{
	1205:  "deadlock",
	4060:  "database_unavailable",
	10928: "resource_limit",
	10929: "resource_limit",
	40197: "service_error",
	40501: "service_busy",
	40613: "database_unavailable",
	49918: "resource_limit",
	49919: "resource_limit",
	49920: "resource_limit",
}

// IsRetryable determines if an error is transient and worth retrying.
// This prevents wasting retries on permanent failures (auth errors, bad SQL,
// constraint violations).
//
// The function checks errors in this order:
// 1. If the error implements RetryableError, use its IsRetryable() method
// 2. PostgreSQL SQLSTATE and SQL Server error numbers
// 3. Otherwise, pattern-match against known retryable error strings
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var r RetryableError
	if errors.As(err, &r) {
		return r.IsRetryable()
	}

	var pgErr sqlStateError
	if errors.As(err, &pgErr) {
		return retryableSQLState(pgErr.SQLState())
	}

	var msErr sqlNumberError
	if errors.As(err, &msErr) {
		_, ok := retryableSQLNumbers[msErr.SQLErrorNumber()]
		return ok
	}

	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		// Connection errors
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"timeout",
		"timed out",
		"temporary failure",
		"too many connections",
		"deadlock",
		"i/o timeout",
		"network is unreachable",
		"connection timed out",
		"bad connection",
		"unexpected eof",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

func retryableSQLState(code string) bool {
	for _, prefix := range retryableSQLStates {
		if strings.HasPrefix(code, prefix) {
			return true
		}
	}
	return false
}

// classifyErrorType extracts a category from err for comparison.
// This is used to detect repeated failures of the same error type.
func classifyErrorType(err error) string {
	if err == nil {
		return "nil"
	}

	var pgErr sqlStateError
	if errors.As(err, &pgErr) {
		return "sqlstate_" + pgErr.SQLState()
	}
	var msErr sqlNumberError
	if errors.As(err, &msErr) {
		if kind, ok := retryableSQLNumbers[msErr.SQLErrorNumber()]; ok {
			return kind
		}
		return fmt.Sprintf("mssql_%d", msErr.SQLErrorNumber())
	}

	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "deadlock") {
		return "deadlock"
	}
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "bad connection") {
		return "connection"
	}
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out") {
		return "timeout"
	}
	if strings.Contains(errStr, "broken pipe") {
		return "broken_pipe"
	}

	return "unknown"
}

// DoIfRetryable only retries if the error is transient
// For permanent errors (auth failures, bad SQL, etc.), it returns immediately
// After N consecutive failures of the same error type, escalates to permanent failure
// Respects context cancellation during wait periods
func DoIfRetryable(ctx context.Context, cfg *Config, fn func() error) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var lastErr error
	delay := cfg.InitialDelay
	sameErrorCount := 0
	var lastErrorType string

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}

		currentErrorType := classifyErrorType(err)
		if currentErrorType == lastErrorType {
			sameErrorCount++
			if cfg.MaxSameErrorType > 0 && sameErrorCount >= cfg.MaxSameErrorType {
				return fmt.Errorf("repeated error (%d times, type=%s): %w", sameErrorCount, currentErrorType, err)
			}
		} else {
			sameErrorCount = 1
			lastErrorType = currentErrorType
		}

		if attempt < cfg.MaxRetries {
			if delay, err = wait(ctx, cfg, delay); err != nil {
				return err
			}
		}
	}

	return fmt.Errorf("retries exhausted after %d attempts: %w", cfg.MaxRetries+1, lastErr)
}
