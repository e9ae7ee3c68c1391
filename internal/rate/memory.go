package rate

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps raw hit timestamps per key in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	hits map[string][]time.Time
}

// NewMemoryStore creates an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{hits: make(map[string][]time.Time)}
}

// Hit implements [Store]. It never fails.
func (m *MemoryStore) Hit(_ context.Context, key string, now time.Time, windows []Window) (Outcome, error) {
	cutoff := now.Add(-maxWindow(windows))

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.hits[key][:0]
	for _, t := range m.hits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	out := Outcome{Allowed: true, Violated: -1, Windows: make([]WindowState, len(windows))}
	for i, w := range windows {
		lower := now.Add(-w.Size)
		var st WindowState
		for _, t := range kept {
			if !t.After(lower) {
				continue
			}
			st.Count++
			if st.Oldest.IsZero() || t.Before(st.Oldest) {
				st.Oldest = t
			}
		}
		out.Windows[i] = st
		if out.Allowed && st.Count >= w.Limit {
			out.Allowed = false
			out.Violated = i
		}
	}

	if out.Allowed {
		kept = append(kept, now)
	}
	if len(kept) == 0 {
		delete(m.hits, key)
	} else {
		m.hits[key] = kept
	}
	return out, nil
}

// Sweep drops every key whose most recent hit is at or before now-maxAge and
// returns how many keys were removed.
func (m *MemoryStore) Sweep(now time.Time, maxAge time.Duration) int {
	cutoff := now.Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, hits := range m.hits {
		latest := time.Time{}
		for _, t := range hits {
			if t.After(latest) {
				latest = t
			}
		}
		if !latest.After(cutoff) {
			delete(m.hits, key)
			removed++
		}
	}
	return removed
}

// StartSweeper runs [MemoryStore.Sweep] every interval until the returned stop
// function is called. onSweep, when non-nil, receives the number of keys removed.
func (m *MemoryStore) StartSweeper(interval, maxAge time.Duration, now func() time.Time, onSweep func(int)) (stop func()) {
	done := make(chan struct{})
	var once sync.Once

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				n := m.Sweep(now(), maxAge)
				if onSweep != nil {
					onSweep(n)
				}
			}
		}
	}()

	return func() { once.Do(func() { close(done) }) }
}

// Len returns the number of tracked keys.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.hits)
}
