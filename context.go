package autosort

import (
	"context"

	"github.com/Spiderbuttons/autosort/id"
)

type contextKey int

const sortIDKey contextKey = iota

// WithSortID returns a context carrying the sort invocation ID.
// The Sorter attaches it before running the middleware chain.
func WithSortID(ctx context.Context, sortID id.SortID) context.Context {
	return context.WithValue(ctx, sortIDKey, sortID)
}

// SortIDFromContext returns the sort invocation ID carried by the
// context, if any.
func SortIDFromContext(ctx context.Context) (id.SortID, bool) {
	sortID, ok := ctx.Value(sortIDKey).(id.SortID)
	return sortID, ok
}
