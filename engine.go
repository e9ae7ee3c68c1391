package siteguard

import (
	"log/slog"
	"time"

	"github.com/MrEthical07/siteguard/cookie"
	"github.com/MrEthical07/siteguard/internal/rate"
	"github.com/MrEthical07/siteguard/permission"
	"github.com/MrEthical07/siteguard/token"
	"github.com/redis/go-redis/v9"
)

// Engine is the security core. It is safe for concurrent use once built.
type Engine struct {
	config       Config
	registry     *permission.Registry
	roleManager  *permission.RoleManager
	cookies      *cookie.Policy
	sessionCodec *token.Codec
	csrfCodec    *token.Codec
	limiter      *rate.Limiter
	memoryStore  *rate.MemoryStore
	stopSweeper  func()
	ownedRedis   redis.UniversalClient
	audit        *auditDispatcher
	metrics      *Metrics
	logger       *slog.Logger
	now          func() time.Time

	// sharedRateStore is set when a Redis store backs the limiter.
	sharedRateStore bool
}

// Close stops background work, flushes pending audit events and closes a Redis
// client the Engine opened itself.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.stopSweeper != nil {
		e.stopSweeper()
	}
	if e.audit != nil {
		e.audit.Close()
	}
	if e.ownedRedis != nil {
		if err := e.ownedRedis.Close(); err != nil {
			e.logger.Warn("closing rate limit redis client", "error", err)
		}
	}
}

// AuditDropped returns how many audit events were dropped because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditDroppedByType breaks [Engine.AuditDropped] down by event type. Types
// with no drops are omitted.
func (e *Engine) AuditDroppedByType() map[string]uint64 {
	if e == nil {
		return map[string]uint64{}
	}
	return e.audit.DroppedByType()
}

// MetricsSnapshot returns the current counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the active configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

// Now returns the engine clock reading.
func (e *Engine) Now() time.Time {
	return e.now()
}

// RolePermissions returns the permissions bound to role, or false if role is unknown.
func (e *Engine) RolePermissions(role Role) ([]Permission, bool) {
	names, ok := e.roleManager.Permissions(string(role))
	if !ok {
		return nil, false
	}
	out := make([]Permission, len(names))
	for i, n := range names {
		out[i] = Permission(n)
	}
	return out, true
}

// HasRole reports whether role is configured.
func (e *Engine) HasRole(role Role) bool {
	if e == nil {
		return false
	}
	_, ok := e.roleManager.Permissions(string(role))
	return ok
}

// HasPermission reports whether perm is registered.
func (e *Engine) HasPermission(perm Permission) bool {
	if e == nil {
		return false
	}
	_, ok := e.registry.Index(string(perm))
	return ok
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) onSweep(removed int) {
	if removed <= 0 {
		return
	}
	e.metrics.Add(MetricRateLimitSwept, uint64(removed))
	e.logger.Debug("swept idle rate limit identifiers", "removed", removed)
}
