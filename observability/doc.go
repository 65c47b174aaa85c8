// Package observability provides an OpenTelemetry metrics extension for
// autosort. The MetricsExtension implements lifecycle hooks to record
// system-wide counters for sort starts, completions, failures, stack
// placements, leftover returns, and schedule fires.
//
// For per-sort tracing and duration metrics, see the middleware package:
// middleware.Tracing() and middleware.Metrics().
package observability
