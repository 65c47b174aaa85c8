// Package audit is an autosort extension that bridges lifecycle events
// to an audit trail backend.
//
// Every sort, routing, and schedule lifecycle hook emits a structured audit
// event through the [Recorder] interface. The extension assigns appropriate
// severity levels (info for normal operations, warning for leftovers,
// critical for failed sorts) and rich metadata (site, drained units,
// elapsed time, errors).
//
// # Usage
//
//	audit.New(audit.RecorderFunc(func(ctx context.Context, evt *audit.AuditEvent) error {
//	    return trail.Write(ctx, evt.Action, evt.Resource, evt.ResourceID, evt.Metadata)
//	}))
//
// # Selective filtering
//
//	audit.New(recorder,
//	    audit.WithActions(
//	        audit.ActionSortFailed,
//	        audit.ActionLeftoverReturned,
//	    ),
//	)
package audit
