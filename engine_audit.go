package siteguard

import (
	"context"
	"errors"

	"github.com/MrEthical07/siteguard/internal/rate"
	"github.com/MrEthical07/siteguard/token"
)

const (
	auditEventSessionCreated     = "session_created"
	auditEventSessionRefreshed   = "session_refreshed"
	auditEventSessionDestroyed   = "session_destroyed"
	auditEventSessionInvalid     = "session_invalid"
	auditEventAuthzDenied        = "authz_denied"
	auditEventCSRFRejected       = "csrf_rejected"
	auditEventRateLimitTriggered = "rate_limit_triggered"
	auditEventRateLimitDegraded  = "rate_limit_degraded"
)

// AuditErrorCode is the specific failure reason recorded on audit events.
type AuditErrorCode string

const (
	auditErrUnauthenticated AuditErrorCode = "unauthenticated"
	auditErrForbidden       AuditErrorCode = "forbidden"
	auditErrCSRFMissing     AuditErrorCode = "csrf_missing"
	auditErrCSRFMismatch    AuditErrorCode = "csrf_mismatch"
	auditErrCSRFInvalid     AuditErrorCode = "csrf_invalid"
	auditErrRateLimited     AuditErrorCode = "rate_limited"
	auditErrInvalidToken    AuditErrorCode = "invalid_token"
	auditErrInvalidRole     AuditErrorCode = "invalid_role"
	auditErrUnavailable     AuditErrorCode = "store_unavailable"
	auditErrInternal        AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	role Role,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	method, path := routeFromContext(ctx)
	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		Role:      string(role),
		IP:        ClientIPFromContext(ctx),
		Method:    method,
		Path:      path,
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnauthenticated):
		return auditErrUnauthenticated
	case errors.Is(err, ErrForbidden):
		return auditErrForbidden
	case errors.Is(err, ErrCSRFMissing):
		return auditErrCSRFMissing
	case errors.Is(err, ErrCSRFMismatch):
		return auditErrCSRFMismatch
	case errors.Is(err, ErrCSRFInvalid):
		return auditErrCSRFInvalid
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrInvalidRole),
		errors.Is(err, ErrInvalidIdentity):
		return auditErrInvalidRole
	case errors.Is(err, rate.ErrStoreUnavailable):
		return auditErrUnavailable
	case errors.Is(err, token.ErrInvalidToken):
		return auditErrInvalidToken
	default:
		return auditErrInternal
	}
}
