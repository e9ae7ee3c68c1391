package rate

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Source identifies which store answered a check.
type Source string

const (
	SourcePrimary  Source = "primary"
	SourceFallback Source = "fallback"
	SourceNone     Source = "none"
)

// Config holds limiter tuning parameters.
type Config struct {
	// Windows are evaluated in order. The first exhausted window is reported.
	Windows []Window
	// KeyPrefix namespaces identifiers in the store.
	KeyPrefix string
	// StoreTimeout bounds each call to the primary store. Zero disables the bound.
	StoreTimeout time.Duration
}

// Result is the caller-facing verdict of one check.
type Result struct {
	Allowed bool
	// Window is the name of the window the remaining fields describe. When the
	// request was rejected this is the exhausted window.
	Window    string
	Limit     int
	Remaining int
	Reset     time.Time
	Source    Source
}

// Limiter evaluates identifiers against a set of sliding windows.
type Limiter struct {
	primary  Store
	fallback Store
	config   Config
	now      func() time.Time
}

// New creates a [Limiter]. primary may be nil when no shared store is configured,
// in which case fallback answers every check. now defaults to time.Now.
func New(primary, fallback Store, cfg Config, now func() time.Time) (*Limiter, error) {
	if len(cfg.Windows) == 0 {
		return nil, fmt.Errorf("%w: no windows", ErrInvalidWindow)
	}
	for _, w := range cfg.Windows {
		if w.Size <= 0 || w.Limit <= 0 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidWindow, w.Name)
		}
	}
	if now == nil {
		now = time.Now
	}
	windows := make([]Window, len(cfg.Windows))
	copy(windows, cfg.Windows)
	cfg.Windows = windows

	return &Limiter{
		primary:  primary,
		fallback: fallback,
		config:   cfg,
		now:      now,
	}, nil
}

// Windows returns a copy of the configured windows.
func (l *Limiter) Windows() []Window {
	out := make([]Window, len(l.config.Windows))
	copy(out, l.config.Windows)
	return out
}

// Check records a hit for identifier when every window has room.
//
// The returned Result is always usable. A non-nil error reports that the primary
// store (and possibly the fallback) failed; when both failed the request is allowed.
func (l *Limiter) Check(ctx context.Context, identifier string) (Result, error) {
	key := identifier
	if l.config.KeyPrefix != "" {
		key = l.config.KeyPrefix + ":" + identifier
	}
	now := l.now()

	var primaryErr error
	if l.primary != nil {
		out, err := l.hitPrimary(ctx, key, now)
		if err == nil {
			return l.result(out, now, SourcePrimary), nil
		}
		primaryErr = err
	}

	if l.fallback != nil {
		out, err := l.fallback.Hit(ctx, key, now, l.config.Windows)
		if err == nil {
			return l.result(out, now, SourceFallback), primaryErr
		}
		primaryErr = errors.Join(primaryErr, err)
	}

	first := l.config.Windows[0]
	return Result{
		Allowed:   true,
		Window:    first.Name,
		Limit:     first.Limit,
		Remaining: first.Limit,
		Reset:     now.Add(first.Size),
		Source:    SourceNone,
	}, primaryErr
}

func (l *Limiter) hitPrimary(ctx context.Context, key string, now time.Time) (Outcome, error) {
	if l.config.StoreTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.config.StoreTimeout)
		defer cancel()
	}
	out, err := l.primary.Hit(ctx, key, now, l.config.Windows)
	if err != nil {
		if !errors.Is(err, ErrStoreUnavailable) {
			err = fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		return Outcome{}, err
	}
	if len(out.Windows) != len(l.config.Windows) {
		return Outcome{}, fmt.Errorf("%w: store returned %d windows", ErrStoreUnavailable, len(out.Windows))
	}
	return out, nil
}

func (l *Limiter) result(out Outcome, now time.Time, src Source) Result {
	windows := l.config.Windows

	if !out.Allowed {
		w := windows[out.Violated]
		st := out.Windows[out.Violated]
		reset := now.Add(w.Size)
		if !st.Oldest.IsZero() {
			reset = st.Oldest.Add(w.Size)
		}
		return Result{
			Window:    w.Name,
			Limit:     w.Limit,
			Remaining: 0,
			Reset:     reset,
			Source:    src,
		}
	}

	// Report the tightest window after this hit; earlier windows win ties.
	best := -1
	bestRemaining := 0
	for i, w := range windows {
		remaining := w.Limit - (out.Windows[i].Count + 1)
		if best == -1 || remaining < bestRemaining {
			best, bestRemaining = i, remaining
		}
	}

	w := windows[best]
	st := out.Windows[best]
	reset := now.Add(w.Size)
	if !st.Oldest.IsZero() {
		reset = st.Oldest.Add(w.Size)
	}
	return Result{
		Allowed:   true,
		Window:    w.Name,
		Limit:     w.Limit,
		Remaining: bestRemaining,
		Reset:     reset,
		Source:    src,
	}
}
