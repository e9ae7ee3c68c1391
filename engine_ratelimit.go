package siteguard

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/MrEthical07/siteguard/internal/rate"
)

// CheckLimit records a request for identifier (normally the caller IP) against the
// burst and daily windows. Store failures never reach the caller: the limiter falls
// back to process memory and, failing that, admits the request.
func (e *Engine) CheckLimit(ctx context.Context, identifier string) RateLimitResult {
	if e == nil || e.limiter == nil {
		return RateLimitResult{Success: true}
	}

	start := time.Now()
	res, err := e.limiter.Check(ctx, identifier)
	if e.metrics.LatencyEnabled() {
		e.metrics.Observe(MetricCheckLimitLatency, time.Since(start))
	}

	out := RateLimitResult{
		Success:   res.Allowed,
		Limit:     res.Limit,
		Remaining: res.Remaining,
		Reset:     res.Reset,
		Degraded:  err != nil,
	}

	if err != nil {
		e.recordDegraded(ctx, identifier, res.Source, err)
	}

	if res.Allowed {
		e.metricInc(MetricRateLimitAllowed)
		return out
	}

	out.Reason = res.Window
	e.metricInc(MetricRateLimitRejected)
	e.logger.Info("rate limit triggered",
		"identifier", identifier,
		"reason", out.Reason,
		"reset", out.Reset,
	)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, "", "", ErrRateLimited, func() map[string]string {
		return map[string]string{
			"identifier": identifier,
			"reason":     out.Reason,
			"limit":      strconv.Itoa(out.Limit),
		}
	})
	return out
}

func (e *Engine) recordDegraded(ctx context.Context, identifier string, src rate.Source, err error) {
	switch src {
	case rate.SourceFallback:
		e.metricInc(MetricRateLimitFallback)
		e.logger.Warn("rate limit store unavailable, using in-memory fallback", "error", err)
	default:
		e.metricInc(MetricRateLimitFailOpen)
		e.logger.Error("rate limit unavailable, admitting request", "error", err)
	}

	code := err
	if !errors.Is(err, rate.ErrStoreUnavailable) {
		code = errors.Join(rate.ErrStoreUnavailable, err)
	}
	e.emitAudit(ctx, auditEventRateLimitDegraded, true, "", "", code, func() map[string]string {
		return map[string]string{
			"identifier": identifier,
			"source":     string(src),
		}
	})
}
