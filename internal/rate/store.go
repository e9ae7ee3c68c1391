package rate

import (
	"context"
	"time"
)

// Window is one sliding-window cap.
type Window struct {
	Name  string
	Size  time.Duration
	Limit int
}

// WindowState is the view of one window before the current hit is applied.
type WindowState struct {
	// Count is the number of recorded hits inside the window.
	Count int
	// Oldest is the earliest recorded hit inside the window. Zero when Count is 0.
	Oldest time.Time
}

// Outcome is the result of a single atomic check-and-record against a [Store].
type Outcome struct {
	// Allowed is true when every window had room. The hit was recorded.
	Allowed bool
	// Violated is the index of the first exhausted window, or -1.
	Violated int
	// Windows holds one state per input window, in input order.
	Windows []WindowState
}

// Store records hits for a key and evaluates them against windows atomically.
//
// Implementations must count a hit at time t inside a window of size d when
// t > now-d, and must only record the hit when every window has room.
type Store interface {
	Hit(ctx context.Context, key string, now time.Time, windows []Window) (Outcome, error)
}

func maxWindow(windows []Window) time.Duration {
	var longest time.Duration
	for _, w := range windows {
		if w.Size > longest {
			longest = w.Size
		}
	}
	return longest
}
