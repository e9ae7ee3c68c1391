package siteguard

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditDropOther collects drops of event types the engine does not emit itself.
const auditDropOther = "other"

var auditEventTypes = [...]string{
	auditEventSessionCreated,
	auditEventSessionRefreshed,
	auditEventSessionDestroyed,
	auditEventSessionInvalid,
	auditEventAuthzDenied,
	auditEventCSRFRejected,
	auditEventRateLimitTriggered,
	auditEventRateLimitDegraded,
}

// auditDispatcher decouples request goroutines from the sink. With DropIfFull a full
// buffer drops the event instead of blocking the request. An event abandoned because
// the request context ended is counted as dropped too.
type auditDispatcher struct {
	cfg       AuditConfig
	sink      AuditSink
	ch        chan AuditEvent
	done      chan struct{}
	wg        sync.WaitGroup
	closed    atomic.Bool
	closeOnce sync.Once

	dropped atomic.Uint64
	// droppedBy is fixed at construction; only the counters change.
	droppedBy map[string]*atomic.Uint64
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		cfg:       cfg,
		sink:      sink,
		ch:        make(chan AuditEvent, cfg.BufferSize),
		done:      make(chan struct{}),
		droppedBy: make(map[string]*atomic.Uint64, len(auditEventTypes)+1),
	}
	for _, typ := range auditEventTypes {
		d.droppedBy[typ] = new(atomic.Uint64)
	}
	d.droppedBy[auditDropOther] = new(atomic.Uint64)

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *auditDispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.ch:
			d.sink.Emit(context.Background(), event)
		case <-d.done:
			// Drain what was accepted before Close.
			for {
				select {
				case event := <-d.ch:
					d.sink.Emit(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- event:
		case <-d.done:
		default:
			d.drop(event.EventType)
		}
		return
	}

	select {
	case d.ch <- event:
	case <-ctx.Done():
		d.drop(event.EventType)
	case <-d.done:
	}
}

func (d *auditDispatcher) drop(eventType string) {
	d.dropped.Add(1)
	c, ok := d.droppedBy[eventType]
	if !ok {
		c = d.droppedBy[auditDropOther]
	}
	c.Add(1)
}

// Close stops accepting events and blocks until buffered events reach the sink.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// DroppedByType returns the non-zero drop counts keyed by event type.
func (d *auditDispatcher) DroppedByType() map[string]uint64 {
	out := make(map[string]uint64)
	if d == nil {
		return out
	}
	for typ, c := range d.droppedBy {
		if n := c.Load(); n > 0 {
			out[typ] = n
		}
	}
	return out
}
