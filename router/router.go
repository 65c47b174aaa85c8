package router

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Spiderbuttons/autosort/container"
	"github.com/Spiderbuttons/autosort/id"
	"github.com/Spiderbuttons/autosort/item"
	"github.com/Spiderbuttons/autosort/label"
)

// Emitter emits routing lifecycle events.
// ext.Registry satisfies this interface.
type Emitter interface {
	EmitStackPlaced(ctx context.Context, sortID id.SortID, st item.Stack, dest id.ContainerID)
	EmitLeftoverReturned(ctx context.Context, sortID id.SortID, stacks []item.Stack)
}

// Placement records one portion of a stack landing in one container.
type Placement struct {
	Stack       item.Stack     `json:"stack"`
	ContainerID id.ContainerID `json:"container_id"`
}

// Result summarizes one routing pass.
type Result struct {
	// Drained is the total units taken from the input container.
	Drained int

	// Placements lists every insert that landed, in execution order.
	Placements []Placement

	// Leftovers are the stacks returned to the input container.
	Leftovers []item.Stack
}

// PlacedQty returns the total units placed into destinations.
func (r *Result) PlacedQty() int {
	total := 0
	for _, p := range r.Placements {
		total += p.Stack.Qty
	}
	return total
}

// LeftoverQty returns the total units returned to the input container.
func (r *Result) LeftoverQty() int { return item.TotalQty(r.Leftovers) }

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// WithEmitter sets the lifecycle event emitter.
func WithEmitter(e Emitter) Option {
	return func(r *Router) { r.emitter = e }
}

// Router redistributes an input container's stacks across the
// destinations in a category index. It holds no lock across a whole pass;
// every container is re-locked per insertion attempt, so a container
// grabbed by another actor mid-sort is simply skipped from then on.
type Router struct {
	logger  *slog.Logger
	emitter Emitter
}

// New creates a Router.
func New(opts ...Option) *Router {
	r := &Router{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route drains the input container, classifies and distributes every
// stack, and returns whatever could not be placed to the input container.
// No stack is ever lost or duplicated: at every instant each unit is in
// exactly one container or the working set. Already-placed portions are
// never rolled back.
func (r *Router) Route(ctx context.Context, sortID id.SortID, input container.Input, idx *label.Index) *Result {
	snapshot := input.SnapshotAndClear()
	res := &Result{Drained: item.TotalQty(snapshot)}

	for _, st := range snapshot {
		if st.IsEmpty() {
			continue
		}

		leftover := r.routeStack(ctx, sortID, st, idx, res)
		if leftover != nil {
			res.Leftovers = append(res.Leftovers, *leftover)
		}
	}

	// The single point at which the input container is repopulated.
	if len(res.Leftovers) > 0 {
		input.AppendAll(res.Leftovers)
		r.emit(func(e Emitter) { e.EmitLeftoverReturned(ctx, sortID, res.Leftovers) })
		r.logger.Debug("leftovers returned to input",
			slog.String("sort_id", sortID.String()),
			slog.Int("stacks", len(res.Leftovers)),
			slog.Int("units", res.LeftoverQty()),
		)
	}

	if res.PlacedQty()+res.LeftoverQty() != res.Drained {
		panic(fmt.Sprintf("router: conservation broken: placed %d + leftover %d != drained %d",
			res.PlacedQty(), res.LeftoverQty(), res.Drained))
	}

	return res
}

// routeStack walks the stack's destination list and returns the portion
// that could not be placed, or nil if the stack was fully placed.
func (r *Router) routeStack(ctx context.Context, sortID id.SortID, st item.Stack, idx *label.Index, res *Result) *item.Stack {
	tag := st.Tag()

	dests, ok := idx.Destinations(tag)
	if !ok {
		// No list for the tag and no catch-all: nowhere to go.
		return &st
	}

	working := st
	for _, dest := range dests {
		// Second lock check, immediately before mutation. The index probe
		// happened at scan time; another actor may have grabbed the
		// container since.
		if !dest.TryLock() {
			r.logger.Debug("destination locked, skipping",
				slog.String("sort_id", sortID.String()),
				slog.String("container_id", dest.ID().String()),
				slog.String("tag", tag),
			)
			continue
		}
		leftover := dest.Insert(working)
		dest.Unlock()

		if leftover != nil {
			if leftover.Qty > working.Qty || !leftover.SameKind(working) {
				panic(fmt.Sprintf("router: container %s returned invalid leftover %v for %v",
					dest.ID(), leftover, working))
			}
			if leftover.Qty == working.Qty {
				// Nothing fit here; try the next destination.
				continue
			}
		}

		placed := working.Qty
		if leftover != nil {
			placed -= leftover.Qty
		}
		placement := Placement{Stack: working.WithQty(placed), ContainerID: dest.ID()}
		res.Placements = append(res.Placements, placement)
		r.emit(func(e Emitter) { e.EmitStackPlaced(ctx, sortID, placement.Stack, dest.ID()) })

		if leftover == nil {
			return nil
		}
		// The inserted portion stays put; keep walking with the rest.
		working = *leftover
	}

	return &working
}

func (r *Router) emit(fn func(Emitter)) {
	if r.emitter != nil {
		fn(r.emitter)
	}
}
