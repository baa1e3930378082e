package services

import (
	"context"
	"errors"
	"fmt"

	"ficehub/internal/dbretry"
	"ficehub/internal/lock"

	"gorm.io/gorm"
)

var (
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	ErrNotFound            = errors.New("not found")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrTimeout             = errors.New("timeout")
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidParent = errors.New("invalid parent comment")
	ErrForbidden     = errors.New("forbidden")
)

// IsRetryable reports whether the operation may succeed if simply tried again.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrencyConflict)
}

// storeError maps an error from the store or a lock onto the service sentinels, keeping the
// original in the chain.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case isClassified(err):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w: %w", op, ErrDuplicateIdentifier, err)
	case errors.Is(err, lock.ErrNotAcquired):
		return fmt.Errorf("%s: %w: %w", op, ErrConcurrencyConflict, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w: %w", op, ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", op, err)
	case dbretry.IsRetryableError(err):
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isClassified(err error) bool {
	for _, sentinel := range []error{
		ErrDuplicateIdentifier, ErrNotFound, ErrStoreUnavailable, ErrTimeout, ErrConcurrencyConflict,
		ErrInvalidInput, ErrInvalidParent, ErrForbidden,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
