package ext

import (
	"context"
	"log/slog"
	"time"

	"github.com/Spiderbuttons/autosort/id"
	"github.com/Spiderbuttons/autosort/item"
	"github.com/Spiderbuttons/autosort/report"
)

// Named entry types pair a hook implementation with the extension name
// captured at registration time. This avoids type-asserting back to
// Extension inside the emit methods.
type sortStartedEntry struct {
	name string
	hook SortStarted
}

type sortCompletedEntry struct {
	name string
	hook SortCompleted
}

type sortFailedEntry struct {
	name string
	hook SortFailed
}

type stackPlacedEntry struct {
	name string
	hook StackPlaced
}

type leftoverReturnedEntry struct {
	name string
	hook LeftoverReturned
}

type scheduleFiredEntry struct {
	name string
	hook ScheduleFired
}

type shutdownEntry struct {
	name string
	hook Shutdown
}

// Registry holds registered extensions and dispatches lifecycle events
// to them. It type-caches extensions at registration time so emit calls
// iterate only over extensions that implement the relevant hook.
type Registry struct {
	extensions []Extension
	logger     *slog.Logger

	// Type-cached slices for each lifecycle hook.
	sortStarted      []sortStartedEntry
	sortCompleted    []sortCompletedEntry
	sortFailed       []sortFailedEntry
	stackPlaced      []stackPlacedEntry
	leftoverReturned []leftoverReturnedEntry
	scheduleFired    []scheduleFiredEntry
	shutdown         []shutdownEntry
}

// NewRegistry creates an extension registry with the given logger.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Register adds an extension and type-asserts it into all applicable
// hook caches. Extensions are notified in registration order.
func (r *Registry) Register(e Extension) {
	r.extensions = append(r.extensions, e)
	name := e.Name()

	if h, ok := e.(SortStarted); ok {
		r.sortStarted = append(r.sortStarted, sortStartedEntry{name, h})
	}
	if h, ok := e.(SortCompleted); ok {
		r.sortCompleted = append(r.sortCompleted, sortCompletedEntry{name, h})
	}
	if h, ok := e.(SortFailed); ok {
		r.sortFailed = append(r.sortFailed, sortFailedEntry{name, h})
	}
	if h, ok := e.(StackPlaced); ok {
		r.stackPlaced = append(r.stackPlaced, stackPlacedEntry{name, h})
	}
	if h, ok := e.(LeftoverReturned); ok {
		r.leftoverReturned = append(r.leftoverReturned, leftoverReturnedEntry{name, h})
	}
	if h, ok := e.(ScheduleFired); ok {
		r.scheduleFired = append(r.scheduleFired, scheduleFiredEntry{name, h})
	}
	if h, ok := e.(Shutdown); ok {
		r.shutdown = append(r.shutdown, shutdownEntry{name, h})
	}
}

// Extensions returns all registered extensions.
func (r *Registry) Extensions() []Extension { return r.extensions }

// ──────────────────────────────────────────────────
// Sort event emitters
// ──────────────────────────────────────────────────

// EmitSortStarted notifies all extensions that implement SortStarted.
func (r *Registry) EmitSortStarted(ctx context.Context, sortID id.SortID, site string) {
	for _, e := range r.sortStarted {
		if err := e.hook.OnSortStarted(ctx, sortID, site); err != nil {
			r.logHookError("OnSortStarted", e.name, err)
		}
	}
}

// EmitSortCompleted notifies all extensions that implement SortCompleted.
func (r *Registry) EmitSortCompleted(ctx context.Context, rep *report.Report, elapsed time.Duration) {
	for _, e := range r.sortCompleted {
		if err := e.hook.OnSortCompleted(ctx, rep, elapsed); err != nil {
			r.logHookError("OnSortCompleted", e.name, err)
		}
	}
}

// EmitSortFailed notifies all extensions that implement SortFailed.
func (r *Registry) EmitSortFailed(ctx context.Context, sortID id.SortID, site string, sortErr error) {
	for _, e := range r.sortFailed {
		if err := e.hook.OnSortFailed(ctx, sortID, site, sortErr); err != nil {
			r.logHookError("OnSortFailed", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Routing event emitters
// ──────────────────────────────────────────────────

// EmitStackPlaced notifies all extensions that implement StackPlaced.
func (r *Registry) EmitStackPlaced(ctx context.Context, sortID id.SortID, st item.Stack, dest id.ContainerID) {
	for _, e := range r.stackPlaced {
		if err := e.hook.OnStackPlaced(ctx, sortID, st, dest); err != nil {
			r.logHookError("OnStackPlaced", e.name, err)
		}
	}
}

// EmitLeftoverReturned notifies all extensions that implement LeftoverReturned.
func (r *Registry) EmitLeftoverReturned(ctx context.Context, sortID id.SortID, stacks []item.Stack) {
	for _, e := range r.leftoverReturned {
		if err := e.hook.OnLeftoverReturned(ctx, sortID, stacks); err != nil {
			r.logHookError("OnLeftoverReturned", e.name, err)
		}
	}
}

// ──────────────────────────────────────────────────
// Other emitters
// ──────────────────────────────────────────────────

// EmitScheduleFired notifies all extensions that implement ScheduleFired.
func (r *Registry) EmitScheduleFired(ctx context.Context, entryName string, sortID id.SortID) {
	for _, e := range r.scheduleFired {
		if err := e.hook.OnScheduleFired(ctx, entryName, sortID); err != nil {
			r.logHookError("OnScheduleFired", e.name, err)
		}
	}
}

// EmitShutdown notifies all extensions that implement Shutdown.
func (r *Registry) EmitShutdown(ctx context.Context) {
	for _, e := range r.shutdown {
		if err := e.hook.OnShutdown(ctx); err != nil {
			r.logHookError("OnShutdown", e.name, err)
		}
	}
}

// logHookError logs a hook failure. Extension errors never interrupt the
// sort that emitted them.
func (r *Registry) logHookError(hook, extension string, err error) {
	r.logger.Error("extension hook error",
		slog.String("hook", hook),
		slog.String("extension", extension),
		slog.String("error", err.Error()),
	)
}
