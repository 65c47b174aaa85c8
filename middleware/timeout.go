package middleware

import (
	"context"
	"log/slog"
)

// Timeout returns middleware that enforces a per-sort execution deadline.
// If the operation has a non-zero Timeout, a context.WithTimeout wraps
// the handler call. The routing pass itself runs to completion once
// started; the deadline guards the surrounding work (enumeration,
// persistence) against a stuck backend.
func Timeout(logger *slog.Logger) Middleware {
	return func(ctx context.Context, op *Operation, next Handler) error {
		if op.Timeout > 0 {
			logger.Debug("sort timeout set",
				slog.String("sort_id", op.SortID.String()),
				slog.Duration("timeout", op.Timeout),
			)
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, op.Timeout)
			defer cancel()
		}
		return next(ctx)
	}
}
