package rate

import (
	"context"
	"errors"
	"sync"
	"time"
)

var testWindows = []Window{
	{Name: "15min_limit", Size: 15 * time.Minute, Limit: 3},
	{Name: "daily_limit", Size: 24 * time.Hour, Limit: 10},
}

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type failingStore struct {
	calls int
}

func (f *failingStore) Hit(context.Context, string, time.Time, []Window) (Outcome, error) {
	f.calls++
	return Outcome{}, errors.New("connection refused")
}

type blockingStore struct{}

func (blockingStore) Hit(ctx context.Context, _ string, _ time.Time, _ []Window) (Outcome, error) {
	<-ctx.Done()
	return Outcome{}, ctx.Err()
}
