package dbretry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fastOpts = Options{
	Timeout:         time.Second,
	MaxRetries:      3,
	InitialInterval: time.Millisecond,
	MaxInterval:     2 * time.Millisecond,
	MaxElapsedTime:  time.Second,
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, IsRetryableError(nil))
	assert.False(t, IsRetryableError(gorm.ErrRecordNotFound))
	assert.False(t, IsRetryableError(fmt.Errorf("wrapped: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, IsRetryableError(&pgconn.PgError{Code: "40001"}))
	assert.True(t, IsRetryableError(&pgconn.PgError{Code: "08006"}))
	assert.False(t, IsRetryableError(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsRetryableError(context.DeadlineExceeded))
	assert.True(t, IsRetryableError(errors.New("dial tcp: connection refused")))
	assert.False(t, IsRetryableError(errors.New("syntax error")))
}

func TestOperationRetriesTransientErrors(t *testing.T) {
	calls := 0
	got, err := Operation(context.Background(), fastOpts, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, &pgconn.PgError{Code: "40P01"}
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestOperationStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := NoResult(context.Background(), fastOpts, func(context.Context) error {
		calls++
		return gorm.ErrRecordNotFound
	})

	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Equal(t, 1, calls)
}

func TestOperationGivesUpAfterBudget(t *testing.T) {
	calls := 0
	err := NoResult(context.Background(), fastOpts, func(context.Context) error {
		calls++
		return &pgconn.PgError{Code: "57P01"}
	})

	var pgerr *pgconn.PgError
	require.ErrorAs(t, err, &pgerr)
	assert.Equal(t, int(fastOpts.MaxRetries)+1, calls)
}

func TestOperationAppliesAttemptTimeout(t *testing.T) {
	opts := fastOpts
	opts.Timeout = 5 * time.Millisecond
	opts.MaxRetries = 1

	err := NoResult(context.Background(), opts, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
