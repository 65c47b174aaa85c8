package container

import (
	"sync"

	"github.com/Spiderbuttons/autosort/id"
	"github.com/Spiderbuttons/autosort/item"
)

// Compile-time interface checks.
var (
	_ Container = (*Chest)(nil)
	_ Input     = (*Chest)(nil)
)

// Chest is the in-memory Container implementation. Capacity is a total
// unit count across all kinds; stacks of the same kind merge into one
// slot. Safe for concurrent use.
//
// The advisory lock (TryLock/Unlock) is separate from the internal data
// mutex: the data mutex keeps individual operations race-free, while the
// advisory lock is the shared-world ownership protocol that sorts and
// other actors negotiate through.
type Chest struct {
	ident    id.ContainerID
	capacity int

	mu       sync.Mutex
	contents []item.Stack

	// inUse is the advisory actor lock.
	inUse sync.Mutex
}

// NewChest creates a chest holding at most capacity units.
// Zero capacity means unbounded.
func NewChest(capacity int) *Chest {
	return &Chest{ident: id.NewContainerID(), capacity: capacity}
}

// ID implements Container.
func (c *Chest) ID() id.ContainerID { return c.ident }

// TryLock implements Container.
func (c *Chest) TryLock() bool { return c.inUse.TryLock() }

// Unlock implements Container.
func (c *Chest) Unlock() { c.inUse.Unlock() }

// Insert implements Container. It merges the stack into existing contents
// up to the free capacity and returns the exact remainder, or nil when the
// stack fit entirely.
func (c *Chest) Insert(st item.Stack) *item.Stack {
	if st.IsEmpty() {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	free := st.Qty
	if c.capacity > 0 {
		free = c.capacity - c.totalLocked()
		if free <= 0 {
			leftover := st
			return &leftover
		}
		if free > st.Qty {
			free = st.Qty
		}
	}

	taken, rest := st.Split(free)
	c.mergeLocked(taken)
	if rest.IsEmpty() {
		return nil
	}
	return &rest
}

// SnapshotAndClear implements Input.
func (c *Chest) SnapshotAndClear() []item.Stack {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.contents
	c.contents = nil
	return out
}

// AppendAll implements Input.
func (c *Chest) AppendAll(stacks []item.Stack) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, st := range stacks {
		if st.IsEmpty() {
			continue
		}
		c.mergeLocked(st)
	}
}

// Contents returns a copy of the chest's stacks in slot order.
func (c *Chest) Contents() []item.Stack {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]item.Stack, len(c.contents))
	copy(out, c.contents)
	return out
}

// Total returns the number of units currently held.
func (c *Chest) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalLocked()
}

// QtyOf returns the number of units of the named kind currently held.
func (c *Chest) QtyOf(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0
	for _, st := range c.contents {
		if st.Name == name {
			total += st.Qty
		}
	}
	return total
}

// Capacity returns the chest's unit capacity (0 = unbounded).
func (c *Chest) Capacity() int { return c.capacity }

func (c *Chest) totalLocked() int {
	total := 0
	for _, st := range c.contents {
		total += st.Qty
	}
	return total
}

// mergeLocked folds a stack into an existing slot of the same kind, or
// appends a new slot. Caller must hold c.mu. Capacity is enforced by
// Insert; AppendAll deliberately overfills rather than dropping returned
// leftovers.
func (c *Chest) mergeLocked(st item.Stack) {
	for i := range c.contents {
		if c.contents[i].SameKind(st) {
			c.contents[i].Qty += st.Qty
			return
		}
	}
	c.contents = append(c.contents, st)
}
