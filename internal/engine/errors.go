package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	domeng "github.com/nordvale/planline-backend/internal/domain/engine"
	"gorm.io/gorm"
)

var (
	// ErrValidation indicates caller input validation failure.
	ErrValidation = errors.New("engine validation")
	// ErrConflict indicates optimistic/concurrency conflict.
	ErrConflict = errors.New("engine conflict")
	// ErrRetryable indicates transient retryable failure.
	ErrRetryable = errors.New("engine retryable")
)

// ValidationError tags an error as validation failure.
func ValidationError(msg string) error {
	return errors.Join(ErrValidation, errors.New(strings.TrimSpace(msg)))
}

// ConflictError tags an error as conflict failure.
func ConflictError(msg string) error {
	return errors.Join(ErrConflict, errors.New(strings.TrimSpace(msg)))
}

// RetryableError tags an error as retryable failure.
func RetryableError(msg string) error {
	return errors.Join(ErrRetryable, errors.New(strings.TrimSpace(msg)))
}

// MapError maps infrastructure/domain failures into engine error codes.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*domeng.Error); ok {
		return err
	}
	switch {
	case errors.Is(err, ErrValidation):
		return domeng.Wrap(domeng.CodeValidation, op, err)
	case errors.Is(err, ErrConflict):
		return domeng.Wrap(domeng.CodeConflict, op, err)
	case errors.Is(err, ErrRetryable):
		return domeng.Wrap(domeng.CodeRetryable, op, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domeng.Wrap(domeng.CodeNotFound, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domeng.Wrap(domeng.CodeRetryable, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return domeng.Wrap(domeng.CodeConflict, op, err) // unique_violation
		case "23503":
			return domeng.Wrap(domeng.CodeValidation, op, err) // foreign_key_violation
		case "40001", "40P01", "55P03":
			return domeng.Wrap(domeng.CodeRetryable, op, err) // serialization/deadlock/lock_not_available
		}
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "duplicate key"), strings.Contains(msg, "already exists"):
		return domeng.Wrap(domeng.CodeConflict, op, err)
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serialization"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "temporar"):
		return domeng.Wrap(domeng.CodeRetryable, op, err)
	default:
		return domeng.Wrap(domeng.CodeInternal, op, err)
	}
}
