package rate

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryStoreCountsOnlyAdmittedHits(t *testing.T) {
	m := NewMemoryStore()
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		out, err := m.Hit(context.Background(), "k", now, testWindows)
		if err != nil || !out.Allowed {
			t.Fatalf("hit %d: allowed=%v err=%v", i, out.Allowed, err)
		}
	}
	for i := 0; i < 5; i++ {
		out, _ := m.Hit(context.Background(), "k", now, testWindows)
		if out.Allowed || out.Violated != 0 {
			t.Fatalf("expected short window violation, got %+v", out)
		}
		if out.Windows[1].Count != 3 {
			t.Fatalf("rejected hits must not be recorded, daily count=%d", out.Windows[1].Count)
		}
	}
}

func TestMemoryStoreWindowBoundaryIsExclusive(t *testing.T) {
	m := NewMemoryStore()
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if out, _ := m.Hit(context.Background(), "k", start, testWindows); !out.Allowed {
			t.Fatalf("hit %d rejected", i)
		}
	}

	out, _ := m.Hit(context.Background(), "k", start.Add(15*time.Minute-time.Millisecond), testWindows)
	if out.Allowed {
		t.Fatal("expected rejection just inside the window")
	}

	out, _ = m.Hit(context.Background(), "k", start.Add(15*time.Minute), testWindows)
	if !out.Allowed {
		t.Fatal("hits exactly one window old must no longer count")
	}
	if out.Windows[0].Count != 0 || out.Windows[1].Count != 3 {
		t.Fatalf("unexpected window states: %+v", out.Windows)
	}
	if !out.Windows[1].Oldest.Equal(start) {
		t.Fatalf("expected oldest daily hit %v, got %v", start, out.Windows[1].Oldest)
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	m := NewMemoryStore()
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	_, _ = m.Hit(context.Background(), "old", start, testWindows)
	_, _ = m.Hit(context.Background(), "recent", start.Add(20*time.Hour), testWindows)

	if removed := m.Sweep(start.Add(23*time.Hour), 24*time.Hour); removed != 0 {
		t.Fatalf("expected nothing swept, got %d", removed)
	}
	if removed := m.Sweep(start.Add(24*time.Hour), 24*time.Hour); removed != 1 {
		t.Fatalf("expected one key swept, got %d", removed)
	}
	if m.Len() != 1 {
		t.Fatalf("expected one key left, got %d", m.Len())
	}
}

func TestMemoryStoreSweeperStops(t *testing.T) {
	m := NewMemoryStore()
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	_, _ = m.Hit(context.Background(), "old", start, testWindows)

	swept := make(chan int, 1)
	stop := m.StartSweeper(5*time.Millisecond, 24*time.Hour, func() time.Time {
		return start.Add(48 * time.Hour)
	}, func(n int) {
		if n > 0 {
			select {
			case swept <- n:
			default:
			}
		}
	})
	defer stop()

	select {
	case n := <-swept:
		if n != 1 {
			t.Fatalf("expected 1 key swept, got %d", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper never ran")
	}

	stop()
	stop()
}

func TestMemoryStoreConcurrentHitsNeverOvershoot(t *testing.T) {
	m := NewMemoryStore()
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, _ := m.Hit(context.Background(), "burst", now, testWindows)
			if out.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 3 {
		t.Fatalf("expected exactly 3 admitted hits, got %d", allowed)
	}
}
