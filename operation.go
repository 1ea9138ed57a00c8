package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
)

// DefaultOperationTimeout bounds every store facing workflow call
const DefaultOperationTimeout = 10 * time.Second

// runOperation fails fast on a cancelled context and bounds fn with timeout.
func runOperation(ctx context.Context, name string, timeout time.Duration, fn func(ctx context.Context) error) error {
	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.CategoryOperation, "context cancelled during "+name)
	default:
	}

	if timeout <= 0 {
		timeout = DefaultOperationTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return fn(ctx)
}

// passThrough returns rich errors untouched so sentinel identity holds and
// wraps anything else as an internal failure.
func passThrough(err error, msg string) error {
	if err == nil {
		return nil
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return err
	}

	return errors.Wrap(err, errors.CategoryInternal, msg)
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.Category == errors.CategoryNotFound
	}
	return false
}
