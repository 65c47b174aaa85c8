package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Spiderbuttons/autosort/ext"
	"github.com/Spiderbuttons/autosort/id"
	"github.com/Spiderbuttons/autosort/item"
	"github.com/Spiderbuttons/autosort/report"
)

// Compile-time interface checks.
var (
	_ ext.Extension        = (*Extension)(nil)
	_ ext.SortStarted      = (*Extension)(nil)
	_ ext.SortCompleted    = (*Extension)(nil)
	_ ext.SortFailed       = (*Extension)(nil)
	_ ext.StackPlaced      = (*Extension)(nil)
	_ ext.LeftoverReturned = (*Extension)(nil)
	_ ext.ScheduleFired    = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// It is defined locally so this package carries no backend dependency;
// callers inject the concrete sink at wiring time.
type Recorder interface {
	// Record persists a fully-formed audit event.
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	// What happened
	Action   string `json:"action"`
	Resource string `json:"resource"`
	Category string `json:"category"`

	// Details
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Severity constants.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome constants.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Extension bridges autosort lifecycle events to an audit trail backend.
// Each lifecycle hook emits a structured audit event through the [Recorder].
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements ext.Extension.
func (e *Extension) Name() string { return "audit" }

// ── Sort lifecycle hooks ────────────────────────────

// OnSortStarted implements ext.SortStarted.
func (e *Extension) OnSortStarted(ctx context.Context, sortID id.SortID, site string) error {
	return e.record(ctx, ActionSortStarted, SeverityInfo, OutcomeSuccess,
		ResourceSort, sortID.String(), CategorySort, nil,
		"site", site,
	)
}

// OnSortCompleted implements ext.SortCompleted.
func (e *Extension) OnSortCompleted(ctx context.Context, r *report.Report, elapsed time.Duration) error {
	severity := SeverityInfo
	if r.Leftover > 0 {
		severity = SeverityWarning
	}
	return e.record(ctx, ActionSortCompleted, severity, OutcomeSuccess,
		ResourceSort, r.SortID.String(), CategorySort, nil,
		"site", r.Site,
		"report_id", r.ID.String(),
		"drained", r.Drained,
		"placed", r.Placed,
		"leftover", r.Leftover,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnSortFailed implements ext.SortFailed.
func (e *Extension) OnSortFailed(ctx context.Context, sortID id.SortID, site string, sortErr error) error {
	return e.record(ctx, ActionSortFailed, SeverityCritical, OutcomeFailure,
		ResourceSort, sortID.String(), CategorySort, sortErr,
		"site", site,
	)
}

// ── Routing hooks ───────────────────────────────────

// OnStackPlaced implements ext.StackPlaced.
func (e *Extension) OnStackPlaced(ctx context.Context, sortID id.SortID, st item.Stack, dest id.ContainerID) error {
	return e.record(ctx, ActionStackPlaced, SeverityInfo, OutcomeSuccess,
		ResourceStack, sortID.String(), CategoryRouting, nil,
		"item_name", st.Name,
		"tag", st.Tag(),
		"qty", st.Qty,
		"container_id", dest.String(),
	)
}

// OnLeftoverReturned implements ext.LeftoverReturned.
func (e *Extension) OnLeftoverReturned(ctx context.Context, sortID id.SortID, stacks []item.Stack) error {
	return e.record(ctx, ActionLeftoverReturned, SeverityWarning, OutcomeSuccess,
		ResourceStack, sortID.String(), CategoryRouting, nil,
		"stacks", len(stacks),
		"total_qty", item.TotalQty(stacks),
	)
}

// ── Schedule lifecycle hooks ────────────────────────

// OnScheduleFired implements ext.ScheduleFired.
func (e *Extension) OnScheduleFired(ctx context.Context, entryName string, sortID id.SortID) error {
	return e.record(ctx, ActionScheduleFired, SeverityInfo, OutcomeSuccess,
		ResourceSchedule, entryName, CategorySchedule, nil,
		"sort_id", sortID.String(),
	)
}

// ── Internal helpers ────────────────────────────────

// record builds and sends an audit event if the action is enabled.
// The kvPairs argument is a list of key-value pairs added to Metadata.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
