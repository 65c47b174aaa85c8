package container

import (
	"testing"

	"github.com/Spiderbuttons/autosort/item"
)

// ---------------------------------------------------------------------------
// Insert / capacity
// ---------------------------------------------------------------------------

func TestChest_Insert_FullFit(t *testing.T) {
	c := NewChest(10)
	leftover := mustLockInsert(t, c, item.Stack{Name: "apple", Category: "fruit", Qty: 5})
	if leftover != nil {
		t.Fatalf("expected full insert, got leftover %v", leftover)
	}
	if c.QtyOf("apple") != 5 {
		t.Errorf("expected 5 apples, got %d", c.QtyOf("apple"))
	}
}

func TestChest_Insert_PartialExact(t *testing.T) {
	c := NewChest(500)
	leftover := mustLockInsert(t, c, item.Stack{Name: "apple", Category: "fruit", Qty: 999})

	if leftover == nil {
		t.Fatal("expected a leftover")
	}
	if leftover.Qty != 499 {
		t.Errorf("expected leftover of 499, got %d", leftover.Qty)
	}
	if c.QtyOf("apple") != 500 {
		t.Errorf("expected 500 inserted, got %d", c.QtyOf("apple"))
	}
	if c.QtyOf("apple")+leftover.Qty != 999 {
		t.Error("units appeared or vanished across a partial insert")
	}
}

func TestChest_Insert_Full(t *testing.T) {
	c := NewChest(2)
	mustLockInsert(t, c, item.Stack{Name: "apple", Qty: 2})

	leftover := mustLockInsert(t, c, item.Stack{Name: "rock", Qty: 3})
	if leftover == nil || leftover.Qty != 3 {
		t.Fatalf("expected untouched leftover of 3, got %v", leftover)
	}
}

func TestChest_Insert_MergesSameKind(t *testing.T) {
	c := NewChest(0)
	mustLockInsert(t, c, item.Stack{Name: "apple", Category: "fruit", Qty: 2})
	mustLockInsert(t, c, item.Stack{Name: "apple", Category: "fruit", Qty: 3})

	if got := len(c.Contents()); got != 1 {
		t.Fatalf("expected 1 merged slot, got %d", got)
	}
	if c.QtyOf("apple") != 5 {
		t.Errorf("expected 5 apples, got %d", c.QtyOf("apple"))
	}
}

func TestChest_Insert_Unbounded(t *testing.T) {
	c := NewChest(0)
	if leftover := mustLockInsert(t, c, item.Stack{Name: "apple", Qty: 1_000_000}); leftover != nil {
		t.Fatalf("unbounded chest returned leftover %v", leftover)
	}
}

// ---------------------------------------------------------------------------
// Advisory lock
// ---------------------------------------------------------------------------

func TestChest_TryLock(t *testing.T) {
	c := NewChest(10)
	if !c.TryLock() {
		t.Fatal("first TryLock should succeed")
	}
	if c.TryLock() {
		t.Fatal("second TryLock should fail while held")
	}
	c.Unlock()
	if !c.TryLock() {
		t.Fatal("TryLock should succeed after Unlock")
	}
	c.Unlock()
}

// ---------------------------------------------------------------------------
// Input semantics
// ---------------------------------------------------------------------------

func TestChest_SnapshotAndClear(t *testing.T) {
	c := NewChest(0)
	c.AppendAll([]item.Stack{
		{Name: "apple", Qty: 5},
		{Name: "rock", Qty: 3},
	})

	snap := c.SnapshotAndClear()
	if item.TotalQty(snap) != 8 {
		t.Fatalf("expected snapshot of 8 units, got %d", item.TotalQty(snap))
	}
	if c.Total() != 0 {
		t.Errorf("chest should be empty after snapshot, has %d units", c.Total())
	}

	// Restoring puts everything back.
	c.AppendAll(snap)
	if c.Total() != 8 {
		t.Errorf("expected 8 units restored, got %d", c.Total())
	}
}

func TestChest_AppendAll_IgnoresCapacity(t *testing.T) {
	c := NewChest(2)
	c.AppendAll([]item.Stack{{Name: "apple", Qty: 10}})
	if c.Total() != 10 {
		t.Fatalf("AppendAll must never drop units, got %d of 10", c.Total())
	}
}

func TestChest_AppendAll_SkipsEmptyStacks(t *testing.T) {
	c := NewChest(0)
	c.AppendAll([]item.Stack{{Name: "apple", Qty: 0}})
	if len(c.Contents()) != 0 {
		t.Fatal("empty stacks should not create slots")
	}
}

func mustLockInsert(t *testing.T, c *Chest, st item.Stack) *item.Stack {
	t.Helper()
	if !c.TryLock() {
		t.Fatal("could not lock chest for insert")
	}
	defer c.Unlock()
	return c.Insert(st)
}
