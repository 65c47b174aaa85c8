// Package gate serializes sort invocations per site.
//
// No global ordering exists between two sorts running in true parallel
// over the same containers, so the gate provides the external
// serialization point: by default one sort per site at a time, with
// optional per-site concurrency caps and token-bucket rate limits
// (golang.org/x/time/rate).
//
//	m := gate.NewManager(gate.Config{Site: "barn", RateLimit: 2})
//	if m.Acquire(siteID) {
//	    defer m.Release(siteID)
//	    // run the sort
//	}
//
// Acquire is non-blocking: a denied invocation is reported to the caller
// rather than queued, matching the no-waiting policy used for container
// locks.
package gate
