package gate

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Manager basics
// ---------------------------------------------------------------------------

func TestNewManager_DefaultSerializesPerSite(t *testing.T) {
	m := NewManager()

	if !m.Acquire("barn") {
		t.Fatal("first Acquire should succeed")
	}
	// Default is one sort per site.
	if m.Acquire("barn") {
		t.Fatal("second Acquire on the same site should fail")
	}
	// Other sites are independent.
	if !m.Acquire("shed") {
		t.Fatal("Acquire on a different site should succeed")
	}

	m.Release("barn")
	if !m.Acquire("barn") {
		t.Fatal("Acquire should succeed after Release")
	}
}

func TestNewManager_WithConfig(t *testing.T) {
	m := NewManager(Config{Site: "barn", MaxConcurrent: 2})
	if m.ActiveCount("barn") != 0 {
		t.Fatal("expected 0 active sorts initially")
	}
}

// ---------------------------------------------------------------------------
// Concurrency limits
// ---------------------------------------------------------------------------

func TestManager_MaxConcurrent(t *testing.T) {
	m := NewManager(Config{Site: "barn", MaxConcurrent: 2})

	if !m.Acquire("barn") {
		t.Fatal("first Acquire should succeed")
	}
	if !m.Acquire("barn") {
		t.Fatal("second Acquire should succeed")
	}
	if m.Acquire("barn") {
		t.Fatal("third Acquire should fail (max 2)")
	}

	m.Release("barn")
	if !m.Acquire("barn") {
		t.Fatal("Acquire should succeed after Release")
	}
}

func TestManager_UnlimitedDefault(t *testing.T) {
	m := NewManager()
	m.Configure(WithDefaultMaxConcurrent(0))

	for i := range 10 {
		if !m.Acquire("barn") {
			t.Fatalf("Acquire %d should succeed with no cap", i)
		}
	}
}

func TestManager_ActiveCount(t *testing.T) {
	m := NewManager(Config{Site: "barn", MaxConcurrent: 5})

	for i := range 3 {
		if !m.Acquire("barn") {
			t.Fatalf("Acquire %d should succeed", i)
		}
	}
	if m.ActiveCount("barn") != 3 {
		t.Fatalf("expected 3 active, got %d", m.ActiveCount("barn"))
	}

	m.Release("barn")
	m.Release("barn")
	if m.ActiveCount("barn") != 1 {
		t.Fatalf("expected 1 active, got %d", m.ActiveCount("barn"))
	}
}

func TestManager_ReleaseNeverGoesNegative(t *testing.T) {
	m := NewManager(Config{Site: "barn", MaxConcurrent: 1})
	m.Release("barn")
	m.Release("barn")
	if m.ActiveCount("barn") != 0 {
		t.Fatalf("expected 0 active, got %d", m.ActiveCount("barn"))
	}
}

// ---------------------------------------------------------------------------
// Rate limiting
// ---------------------------------------------------------------------------

func TestManager_RateLimit(t *testing.T) {
	m := NewManager(Config{Site: "barn", MaxConcurrent: 100, RateLimit: 1, RateBurst: 1})

	if !m.Acquire("barn") {
		t.Fatal("first Acquire should pass the rate limiter")
	}
	if m.Acquire("barn") {
		t.Fatal("second immediate Acquire should be rate limited")
	}
}

func TestManager_RateLimitRefills(t *testing.T) {
	m := NewManager(Config{Site: "barn", MaxConcurrent: 100, RateLimit: 50, RateBurst: 1})

	if !m.Acquire("barn") {
		t.Fatal("first Acquire should succeed")
	}
	time.Sleep(40 * time.Millisecond) // 50/s refills one token in 20ms
	if !m.Acquire("barn") {
		t.Fatal("Acquire should succeed after token refill")
	}
}

// ---------------------------------------------------------------------------
// Reconfiguration / concurrency safety
// ---------------------------------------------------------------------------

func TestManager_SetConfig_PreservesActive(t *testing.T) {
	m := NewManager(Config{Site: "barn", MaxConcurrent: 2})
	m.Acquire("barn")

	m.SetConfig(Config{Site: "barn", MaxConcurrent: 5})
	if m.ActiveCount("barn") != 1 {
		t.Fatalf("active count lost on reconfigure: %d", m.ActiveCount("barn"))
	}
}

func TestManager_ConcurrentAcquire(t *testing.T) {
	m := NewManager(Config{Site: "barn", MaxConcurrent: 5})

	var granted atomic.Int64
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.Acquire("barn") {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	if granted.Load() != 5 {
		t.Fatalf("expected exactly 5 grants, got %d", granted.Load())
	}
}
