package dbretry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ficehub/internal/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// Options bounds one retried store operation. Timeout applies to each attempt.
type Options struct {
	Timeout         time.Duration
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// FromConfig converts the store section of the configuration.
func FromConfig(cfg config.Store) Options {
	return Options{
		Timeout:         cfg.Timeout,
		MaxRetries:      cfg.MaxRetries,
		InitialInterval: cfg.InitialInterval,
		MaxInterval:     cfg.MaxInterval,
		MaxElapsedTime:  cfg.MaxElapsedTime,
	}
}

// IsRetryableError checks if the given error is transient.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return false
	}

	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) {
		// connection exceptions, transaction rollbacks, insufficient resources,
		// operator intervention, lock not available
		switch {
		case strings.HasPrefix(pgerr.Code, "08"),
			strings.HasPrefix(pgerr.Code, "40"),
			strings.HasPrefix(pgerr.Code, "53"),
			strings.HasPrefix(pgerr.Code, "57"),
			pgerr.Code == "55P03":
			return true
		}
		return false
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errMsg := err.Error()
	return strings.Contains(errMsg, "connection reset by peer") ||
		strings.Contains(errMsg, "broken pipe") ||
		strings.Contains(errMsg, "connection refused") ||
		strings.Contains(errMsg, "no connection") ||
		strings.Contains(errMsg, "i/o timeout") ||
		strings.Contains(errMsg, "unexpected EOF")
}

// Operation runs op until it succeeds, fails permanently, or the retry budget runs out.
// The error of the last attempt is returned so callers can classify it.
func Operation[T any](ctx context.Context, opts Options, op func(context.Context) (T, error)) (T, error) {
	var result T
	var lastErr error

	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(opts.MaxElapsedTime),
		backoff.WithInitialInterval(opts.InitialInterval),
		backoff.WithMaxInterval(opts.MaxInterval),
	), opts.MaxRetries)

	err := backoff.Retry(func() error {
		attemptCtx, cancel := attemptContext(ctx, opts.Timeout)
		defer cancel()

		var err error
		result, err = op(attemptCtx)
		if err != nil {
			lastErr = err
			if !IsRetryableError(err) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		if lastErr != nil {
			return result, lastErr
		}
		return result, fmt.Errorf("database operation aborted: %w", err)
	}
	return result, nil
}

// NoResult wraps an operation that only reports an error.
func NoResult(ctx context.Context, opts Options, op func(context.Context) error) error {
	_, err := Operation(ctx, opts, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Transaction runs fn in a transaction with retry. Each attempt gets a fresh transaction.
func Transaction(ctx context.Context, db *gorm.DB, opts Options, fn func(tx *gorm.DB) error) error {
	return NoResult(ctx, opts, func(ctx context.Context) error {
		return db.WithContext(ctx).Transaction(fn)
	})
}

func attemptContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
