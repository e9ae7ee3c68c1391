package siteguard

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/siteguard/permission"
)

// RequireAuthenticated returns the session of r or ErrUnauthenticated.
func (e *Engine) RequireAuthenticated(r *http.Request) (*Session, error) {
	return e.require(r, Requirement{Authenticated: true})
}

// RequireRole passes when the session role is one of roles. Superuser roles always pass.
func (e *Engine) RequireRole(r *http.Request, roles ...Role) (*Session, error) {
	return e.require(r, Requirement{Authenticated: true, Roles: roles})
}

// RequirePermission passes when the session holds perm. Superuser roles always pass.
func (e *Engine) RequirePermission(r *http.Request, perm Permission) (*Session, error) {
	return e.require(r, Requirement{Authenticated: true, Permissions: []Permission{perm}})
}

// RequirePermissions passes when the session holds every perm.
func (e *Engine) RequirePermissions(r *http.Request, perms ...Permission) (*Session, error) {
	return e.require(r, Requirement{Authenticated: true, Permissions: perms})
}

func (e *Engine) require(r *http.Request, req Requirement) (*Session, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	sess := e.GetSession(r)
	if err := e.authorize(r.Context(), sess, req); err != nil {
		return nil, err
	}
	return sess, nil
}

// Authorize checks sess against req without touching the request. A nil session
// yields ErrUnauthenticated unless req is empty; a session that falls short yields
// ErrForbidden.
func (e *Engine) Authorize(ctx context.Context, sess *Session, req Requirement) error {
	if e == nil {
		return ErrEngineNotReady
	}
	return e.authorize(ctx, sess, req)
}

func (e *Engine) authorize(ctx context.Context, sess *Session, req Requirement) error {
	if req.IsZero() {
		return nil
	}

	if sess == nil {
		e.metricInc(MetricAuthzUnauthenticated)
		e.emitAudit(ctx, auditEventAuthzDenied, false, "", "", ErrUnauthenticated, nil)
		return ErrUnauthenticated
	}

	roles := make([]string, len(req.Roles))
	for i, r := range req.Roles {
		roles[i] = string(r)
	}
	required := make([]string, len(req.Permissions))
	for i, p := range req.Permissions {
		required[i] = string(p)
	}
	granted := make([]string, len(sess.Permissions))
	for i, p := range sess.Permissions {
		granted[i] = string(p)
	}

	superuser := e.roleManager.IsSuperuser(string(sess.Role))
	if !permission.Satisfies(string(sess.Role), superuser, granted, roles, required) {
		e.metricInc(MetricAuthzForbidden)
		e.logger.Debug("authorization denied",
			"user_id", sess.UserID,
			"role", sess.Role,
			"required_roles", strings.Join(roles, ","),
			"required_permissions", strings.Join(required, ","),
		)
		e.emitAudit(ctx, auditEventAuthzDenied, false, sess.UserID, sess.Role, ErrForbidden, func() map[string]string {
			return map[string]string{
				"required_roles":       strings.Join(roles, ","),
				"required_permissions": strings.Join(required, ","),
			}
		})
		return ErrForbidden
	}

	e.metricInc(MetricAuthzAllowed)
	return nil
}

// RequireOwnership checks that sess may act on a resource owned by ownerID using
// perm. Superusers always pass. Everyone else needs perm and a CompanyID equal to
// ownerID.
func (e *Engine) RequireOwnership(ctx context.Context, sess *Session, perm Permission, ownerID string) error {
	if err := e.Authorize(ctx, sess, Requirement{Authenticated: true, Permissions: []Permission{perm}}); err != nil {
		return err
	}
	if e.roleManager.IsSuperuser(string(sess.Role)) {
		return nil
	}
	if sess.CompanyID == nil || ownerID == "" || *sess.CompanyID != ownerID {
		e.metricInc(MetricAuthzForbidden)
		e.emitAudit(ctx, auditEventAuthzDenied, false, sess.UserID, sess.Role, ErrForbidden, func() map[string]string {
			return map[string]string{"owner_id": ownerID}
		})
		return ErrForbidden
	}
	return nil
}
