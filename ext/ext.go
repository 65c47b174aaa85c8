// Package ext defines the extension system for autosort.
// Extensions are notified of lifecycle events (sort started, stack
// placed, leftovers returned, etc.) and can react to them: auditing,
// metrics, streaming, etc.
//
// Each lifecycle hook is a separate interface so extensions opt in only
// to the events they care about.
package ext

import (
	"context"
	"time"

	"github.com/Spiderbuttons/autosort/id"
	"github.com/Spiderbuttons/autosort/item"
	"github.com/Spiderbuttons/autosort/report"
)

// Extension is the base interface all extensions must implement.
type Extension interface {
	// Name returns a unique human-readable name for the extension.
	Name() string
}

// ──────────────────────────────────────────────────
// Sort lifecycle hooks
// ──────────────────────────────────────────────────

// SortStarted is called when a sort invocation begins, after the per-site
// gate is acquired.
type SortStarted interface {
	OnSortStarted(ctx context.Context, sortID id.SortID, site string) error
}

// SortCompleted is called after a sort finishes, with its report.
type SortCompleted interface {
	OnSortCompleted(ctx context.Context, r *report.Report, elapsed time.Duration) error
}

// SortFailed is called when a sort aborts before routing completes
// (enumeration error, panic in the chain).
type SortFailed interface {
	OnSortFailed(ctx context.Context, sortID id.SortID, site string, err error) error
}

// ──────────────────────────────────────────────────
// Routing hooks
// ──────────────────────────────────────────────────

// StackPlaced is called each time a stack portion lands in a destination.
type StackPlaced interface {
	OnStackPlaced(ctx context.Context, sortID id.SortID, st item.Stack, dest id.ContainerID) error
}

// LeftoverReturned is called once per sort when unplaced stacks go back
// to the input container.
type LeftoverReturned interface {
	OnLeftoverReturned(ctx context.Context, sortID id.SortID, stacks []item.Stack) error
}

// ──────────────────────────────────────────────────
// Other lifecycle hooks
// ──────────────────────────────────────────────────

// ScheduleFired is called when a schedule entry fires and triggers a sort.
type ScheduleFired interface {
	OnScheduleFired(ctx context.Context, entryName string, sortID id.SortID) error
}

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
