package site

import (
	"context"
	"testing"

	"github.com/Spiderbuttons/autosort/container"
	"github.com/Spiderbuttons/autosort/label"
)

func TestRegistry_EnumerateOrder(t *testing.T) {
	r := NewRegistry("barn")
	a := container.NewChest(10)
	b := container.NewChest(10)
	c := container.NewChest(10)

	r.Add(a, label.For("fruit"))
	r.AddUnlabeled(b)
	r.Add(c, label.CatchAll())

	bindings, err := r.Enumerate(context.Background())
	if err != nil {
		t.Fatalf("enumerate failed: %v", err)
	}
	if len(bindings) != 3 {
		t.Fatalf("expected 3 bindings, got %d", len(bindings))
	}
	if bindings[0].Container != a || bindings[1].Container != b || bindings[2].Container != c {
		t.Error("bindings out of registration order")
	}
	if bindings[1].Label != nil {
		t.Error("unlabeled container should have nil label")
	}
	if !bindings[2].Label.IsCatchAll() {
		t.Error("expected catch-all label")
	}
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry("barn")
	a := container.NewChest(10)
	b := container.NewChest(10)

	r.Add(a, label.For("fruit"))
	r.Add(b, label.For("mineral"))
	r.Remove(a)

	if r.Len() != 1 {
		t.Fatalf("expected 1 binding after remove, got %d", r.Len())
	}

	bindings, _ := r.Enumerate(context.Background())
	if bindings[0].Container != b {
		t.Error("wrong container removed")
	}
}

func TestRegistry_EnumerateIsCopy(t *testing.T) {
	r := NewRegistry("barn")
	r.Add(container.NewChest(10), label.For("fruit"))

	bindings, _ := r.Enumerate(context.Background())
	bindings[0] = label.Binding{}

	again, _ := r.Enumerate(context.Background())
	if again[0].Container == nil {
		t.Fatal("mutating the returned slice must not affect the registry")
	}
}
