package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Recover returns middleware that recovers from panics in the handler
// chain. A panicking sort (typically a broken container contract) is
// converted to an error and logged with a stack trace, so one bad
// container does not take the whole process down.
func Recover(logger *slog.Logger) Middleware {
	return func(ctx context.Context, op *Operation, next Handler) (retErr error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				logger.Error("sort panicked",
					slog.String("sort_id", op.SortID.String()),
					slog.String("site", op.Site),
					slog.Any("panic", r),
					slog.String("stack", stack),
				)
				retErr = fmt.Errorf("panic in sort on %s: %v", op.Site, r)
			}
		}()
		return next(ctx)
	}
}
