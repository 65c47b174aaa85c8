package middleware

import (
	"context"
	"time"

	"github.com/Spiderbuttons/autosort/id"
)

// Operation describes one sort invocation as seen by middleware.
type Operation struct {
	// SortID identifies the invocation.
	SortID id.SortID

	// Site is the site being sorted.
	Site string

	// Containers is the number of labeled destinations in the index.
	Containers int

	// Timeout bounds the routing pass. Zero means no deadline.
	Timeout time.Duration
}

// Handler is the terminal function that executes the routing pass.
type Handler func(ctx context.Context) error

// Middleware wraps a Handler with cross-cutting logic.
// It receives the current context, the operation being executed, and the
// next handler to call. Middleware MUST call next to continue the chain
// (unless short-circuiting on error).
type Middleware func(ctx context.Context, op *Operation, next Handler) error

// Chain composes multiple middleware into a single Middleware.
// Middleware are applied right-to-left: the first middleware in the
// list is the outermost wrapper.
//
// Example: Chain(logging, recover, timeout) executes as:
//
//	logging -> recover -> timeout -> handler
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, op *Operation, next Handler) error {
		// Build the chain from the end backwards.
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) error {
				return mw(ctx, op, prev)
			}
		}
		return h(ctx)
	}
}
