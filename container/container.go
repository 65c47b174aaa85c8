package container

import (
	"github.com/Spiderbuttons/autosort/id"
	"github.com/Spiderbuttons/autosort/item"
)

// Container is a bounded holder of stackable items with advisory exclusive
// access. The lock models other actors in a shared world: whoever holds it
// owns the container for the moment, and a sort never reads or writes a
// container it could not lock.
type Container interface {
	// ID returns the container's identifier.
	ID() id.ContainerID

	// TryLock attempts to take the advisory lock without blocking.
	// Returns false if another actor holds it.
	TryLock() bool

	// Unlock releases the advisory lock. The caller must hold it.
	Unlock()

	// Insert adds as much of the stack as capacity allows and returns the
	// remainder, or nil if the stack was fully inserted. The caller must
	// hold the advisory lock. A returned leftover always carries the same
	// kind and never more units than were given.
	Insert(st item.Stack) *item.Stack
}

// Input is the container a sort drains. Snapshot-and-clear transfers the
// recorded contents to the caller in one step so stacks are moved, never
// duplicated; AppendAll is the single point where contents come back.
type Input interface {
	Container

	// SnapshotAndClear returns all stacks currently held and empties the
	// recorded contents.
	SnapshotAndClear() []item.Stack

	// AppendAll adds the given stacks back, merging with existing stacks
	// of the same kind. It ignores capacity: returned leftovers must
	// never be dropped.
	AppendAll(stacks []item.Stack)
}
