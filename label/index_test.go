package label

import (
	"testing"

	"github.com/Spiderbuttons/autosort/container"
)

func labeled(c container.Container, tag string) Binding {
	l := For(tag)
	return Binding{Container: c, Label: &l}
}

// ---------------------------------------------------------------------------
// Build
// ---------------------------------------------------------------------------

func TestBuildIndex_GroupsByTag(t *testing.T) {
	a := container.NewChest(10)
	b := container.NewChest(10)
	c := container.NewChest(10)

	idx := BuildIndex([]Binding{
		labeled(a, "fruit"),
		labeled(b, "mineral"),
		labeled(c, "fruit"),
	})

	fruit := idx.Tagged("fruit")
	if len(fruit) != 2 {
		t.Fatalf("expected 2 fruit containers, got %d", len(fruit))
	}
	if len(idx.Tagged("mineral")) != 1 {
		t.Fatalf("expected 1 mineral container")
	}
	if idx.Tags() != 2 {
		t.Errorf("expected 2 tags, got %d", idx.Tags())
	}
}

func TestBuildIndex_DiscoveryOrderPreserved(t *testing.T) {
	a := container.NewChest(10)
	b := container.NewChest(10)
	c := container.NewChest(10)

	idx := BuildIndex([]Binding{
		labeled(a, "fruit"),
		labeled(b, "fruit"),
		labeled(c, "fruit"),
	})

	fruit := idx.Tagged("fruit")
	want := []container.Container{a, b, c}
	for i, ctr := range fruit {
		if ctr.ID() != want[i].ID() {
			t.Fatalf("position %d: expected %s, got %s", i, want[i].ID(), ctr.ID())
		}
	}
}

func TestBuildIndex_CatchAll(t *testing.T) {
	a := container.NewChest(10)
	b := container.NewChest(10)
	catchAll := CatchAll()

	idx := BuildIndex([]Binding{
		labeled(a, "fruit"),
		{Container: b, Label: &catchAll},
	})

	if len(idx.CatchAll()) != 1 {
		t.Fatalf("expected 1 catch-all container, got %d", len(idx.CatchAll()))
	}
	if len(idx.Tagged("fruit")) != 1 {
		t.Fatalf("expected 1 fruit container")
	}
}

func TestBuildIndex_SkipsUnlabeled(t *testing.T) {
	a := container.NewChest(10)
	idx := BuildIndex([]Binding{{Container: a, Label: nil}})
	if !idx.Empty() {
		t.Fatal("unlabeled container must not enter the index")
	}
}

func TestBuildIndex_SkipsLocked(t *testing.T) {
	a := container.NewChest(10)
	b := container.NewChest(10)

	// Another actor holds a's lock during the scan.
	if !a.TryLock() {
		t.Fatal("setup: could not lock chest")
	}
	defer a.Unlock()

	idx := BuildIndex([]Binding{
		labeled(a, "fruit"),
		labeled(b, "fruit"),
	})

	fruit := idx.Tagged("fruit")
	if len(fruit) != 1 {
		t.Fatalf("expected locked container excluded, got %d containers", len(fruit))
	}
	if fruit[0].ID() != b.ID() {
		t.Error("surviving container should be the unlocked one")
	}
}

func TestBuildIndex_ProbeReleasesLock(t *testing.T) {
	a := container.NewChest(10)
	BuildIndex([]Binding{labeled(a, "fruit")})

	if !a.TryLock() {
		t.Fatal("index build must not leave containers locked")
	}
	a.Unlock()
}

// ---------------------------------------------------------------------------
// Destinations
// ---------------------------------------------------------------------------

func TestDestinations_TagThenCatchAll(t *testing.T) {
	a := container.NewChest(10)
	b := container.NewChest(10)
	catchAll := CatchAll()

	idx := BuildIndex([]Binding{
		labeled(a, "fruit"),
		{Container: b, Label: &catchAll},
	})

	dests, ok := idx.Destinations("fruit")
	if !ok {
		t.Fatal("expected destinations for fruit")
	}
	if len(dests) != 2 {
		t.Fatalf("expected tag + catch-all, got %d", len(dests))
	}
	if dests[0].ID() != a.ID() || dests[1].ID() != b.ID() {
		t.Error("tag-specific container must come before catch-all")
	}
}

func TestDestinations_CatchAllOnly(t *testing.T) {
	b := container.NewChest(10)
	catchAll := CatchAll()

	idx := BuildIndex([]Binding{{Container: b, Label: &catchAll}})

	dests, ok := idx.Destinations("mineral")
	if !ok || len(dests) != 1 {
		t.Fatalf("expected catch-all fallback, got ok=%v len=%d", ok, len(dests))
	}
}

func TestDestinations_NoneExist(t *testing.T) {
	idx := BuildIndex(nil)
	if _, ok := idx.Destinations("fruit"); ok {
		t.Fatal("empty index should report no destinations")
	}
	if !idx.Empty() {
		t.Fatal("index built from nothing should be empty")
	}
}
