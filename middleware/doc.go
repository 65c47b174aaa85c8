// Package middleware provides composable middleware for sort execution.
//
// A [Middleware] wraps the routing pass with cross-cutting behaviour:
//
//   - [Logging]: structured start/finish logs via log/slog
//   - [Recover]: converts panics (broken container contracts) to errors
//   - [Timeout]: per-sort deadline for the surrounding work
//   - [Metrics]: OTel histogram + counter per invocation
//   - [Tracing]: OTel span per invocation
//
// Compose with [Chain]; the first middleware is the outermost wrapper:
//
//	chain := middleware.Chain(
//	    middleware.Logging(logger),
//	    middleware.Recover(logger),
//	    middleware.Tracing(),
//	    middleware.Metrics(),
//	)
package middleware
