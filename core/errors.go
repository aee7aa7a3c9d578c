package core

import (
	"context"
	"errors"
	"fmt"
)

// ErrCanceled is returned by every blocking monitor operation when the caller's
// context is done before the operation could proceed. The returned error also
// wraps context.Cause(ctx), so errors.Is(err, context.Canceled) and
// errors.Is(err, context.DeadlineExceeded) work as expected.
var ErrCanceled = errors.New("wait canceled")

// ErrInvalidConfig indicates a construction parameter failed validation.
var ErrInvalidConfig = errors.New("invalid config")

func canceled(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrCanceled, context.Cause(ctx))
}

// IsCanceled reports whether err is a cancellation outcome.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func invalid(field string, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, field, fmt.Sprintf(format, args...))
}
