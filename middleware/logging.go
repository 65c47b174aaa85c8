package middleware

import (
	"context"
	"log/slog"
	"time"
)

// Logging returns middleware that logs sort start and completion.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, op *Operation, next Handler) error {
		logger.Info("sort started",
			slog.String("sort_id", op.SortID.String()),
			slog.String("site", op.Site),
			slog.Int("containers", op.Containers),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("sort failed",
				slog.String("sort_id", op.SortID.String()),
				slog.String("site", op.Site),
				slog.Duration("elapsed", elapsed),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Info("sort completed",
				slog.String("sort_id", op.SortID.String()),
				slog.String("site", op.Site),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
