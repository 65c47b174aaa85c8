// Package container defines the container abstraction sorts route into:
// a bounded holder of item stacks with an advisory try-lock and
// partial-insert semantics.
//
// # Contracts
//
// [Container.Insert] inserts as much of a stack as capacity allows and
// returns the exact remainder (nil when fully inserted). A leftover with
// more units than were given indicates a broken implementation and callers
// treat it as fatal.
//
// The advisory lock is non-blocking by design: a sort skips a container it
// cannot lock rather than waiting, because the lock holder is typically
// another live actor in the shared world.
//
// # Implementations
//
// [Chest] is the in-memory implementation used for single-process sites
// and tests. The redis subpackage provides a Redis-backed chest whose
// advisory lock is a lease visible to other processes.
package container
