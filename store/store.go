package store

import (
	"context"

	"github.com/Spiderbuttons/autosort/report"
	"github.com/Spiderbuttons/autosort/schedule"
)

// Store is the composite persistence interface. Each subsystem (report,
// schedule) defines its own store interface; a single backend implements
// all of them plus lifecycle operations.
type Store interface {
	// Migrate creates or upgrades backend schema. No-op for schemaless
	// backends.
	Migrate(ctx context.Context) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error

	report.Store
	schedule.Store
}
