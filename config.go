package autosort

import "time"

// Config holds configuration for the Sorter.
type Config struct {
	// SortTimeout bounds one routing pass. Zero means no deadline.
	SortTimeout time.Duration

	// DefaultMaxConcurrent caps concurrent sorts per site when the site
	// has no explicit gate config. 1 keeps the one-sort-per-site
	// guarantee.
	DefaultMaxConcurrent int

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SortTimeout:          30 * time.Second,
		DefaultMaxConcurrent: 1,
		ShutdownTimeout:      30 * time.Second,
	}
}
