package siteguard

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/siteguard/cookie"
	"github.com/MrEthical07/siteguard/token"
)

// sessionClaims is the signed payload of the session cookie.
type sessionClaims struct {
	UserID      string   `json:"userId"`
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	CompanyID   *string  `json:"companyId"`
	Permissions []string `json:"permissions"`
	token.Timestamps
}

// CreateSession issues a session for id and writes it as a cookie. The permission
// set is taken from the role map at this moment and never changes for the lifetime
// of the token. The signed token is returned for non-cookie transports.
func (e *Engine) CreateSession(ctx context.Context, w http.ResponseWriter, id Identity) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}
	if strings.TrimSpace(id.ID) == "" {
		return "", ErrInvalidIdentity
	}

	perms, ok := e.roleManager.Permissions(string(id.Role))
	if !ok {
		err := fmt.Errorf("%w: %q", ErrInvalidRole, id.Role)
		e.emitAudit(ctx, auditEventSessionCreated, false, id.ID, id.Role, err, nil)
		return "", err
	}

	claims := &sessionClaims{
		UserID:      id.ID,
		Email:       id.Email,
		Role:        string(id.Role),
		CompanyID:   cloneStringPtr(id.CompanyID),
		Permissions: perms,
	}

	tok, err := e.issueSession(w, claims)
	if err != nil {
		e.logger.Error("session issue failed", "user_id", id.ID, "error", err)
		e.emitAudit(ctx, auditEventSessionCreated, false, id.ID, id.Role, err, nil)
		return "", err
	}

	e.metricInc(MetricSessionCreated)
	e.emitAudit(ctx, auditEventSessionCreated, true, id.ID, id.Role, nil, nil)
	e.logger.Info("session created", "user_id", id.ID, "role", id.Role)

	return tok, nil
}

// GetSession returns the session carried by r, or nil when the cookie is missing,
// malformed, tampered with, or expired. Absence is the normal unauthenticated state.
func (e *Engine) GetSession(r *http.Request) *Session {
	if e == nil || r == nil {
		return nil
	}

	raw, ok := e.cookies.Read(r, e.config.Session.CookieName, e.config.Session.CookieLevel)
	if !ok {
		return nil
	}

	sess, err := e.verifySession(raw)
	if err != nil {
		e.metricInc(MetricSessionInvalid)
		e.logger.Debug("session cookie rejected", "error", err)
		e.emitAudit(r.Context(), auditEventSessionInvalid, false, "", "", err, nil)
		return nil
	}

	return sess
}

// DestroySession expires the session cookie on the client. It is safe to call when
// no session exists.
func (e *Engine) DestroySession(w http.ResponseWriter) error {
	if e == nil {
		return ErrEngineNotReady
	}

	ov := cookie.Overrides{Domain: e.config.Cookie.Domain}
	if err := e.cookies.Clear(w, e.config.Session.CookieName, e.config.Session.CookieLevel, ov); err != nil {
		return err
	}

	e.metricInc(MetricSessionDestroyed)
	e.emitAudit(context.Background(), auditEventSessionDestroyed, true, "", "", nil, nil)
	return nil
}

// RefreshSession re-signs the current session with a fresh issue time and expiry.
// The claims are unchanged. It returns nil, nil when r carries no valid session.
func (e *Engine) RefreshSession(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Session, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	cur := e.GetSession(r)
	if cur == nil {
		return nil, nil
	}

	perms := make([]string, len(cur.Permissions))
	for i, p := range cur.Permissions {
		perms[i] = string(p)
	}
	claims := &sessionClaims{
		UserID:      cur.UserID,
		Email:       cur.Email,
		Role:        string(cur.Role),
		CompanyID:   cloneStringPtr(cur.CompanyID),
		Permissions: perms,
	}

	if _, err := e.issueSession(w, claims); err != nil {
		e.logger.Error("session refresh failed", "user_id", cur.UserID, "error", err)
		e.emitAudit(ctx, auditEventSessionRefreshed, false, cur.UserID, cur.Role, err, nil)
		return nil, err
	}

	e.metricInc(MetricSessionRefreshed)
	e.emitAudit(ctx, auditEventSessionRefreshed, true, cur.UserID, cur.Role, nil, nil)

	return sessionFromClaims(claims), nil
}

func (e *Engine) issueSession(w http.ResponseWriter, claims *sessionClaims) (string, error) {
	ttl := e.config.Session.TTL
	tok, err := e.sessionCodec.Sign(claims, ttl)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}

	ov := cookie.Overrides{
		Domain: e.config.Cookie.Domain,
		MaxAge: int(ttl / time.Second),
	}
	if err := e.cookies.Set(w, e.config.Session.CookieName, tok, e.config.Session.CookieLevel, ov); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSessionCreationFailed, err)
	}
	return tok, nil
}

func (e *Engine) verifySession(raw string) (*Session, error) {
	var claims sessionClaims
	if err := e.sessionCodec.Verify(raw, &claims); err != nil {
		return nil, err
	}
	if claims.UserID == "" || !e.roleManager.Has(claims.Role) {
		return nil, fmt.Errorf("%w: incomplete session claims", token.ErrInvalidToken)
	}
	return sessionFromClaims(&claims), nil
}

func sessionFromClaims(c *sessionClaims) *Session {
	perms := make([]Permission, len(c.Permissions))
	for i, p := range c.Permissions {
		perms[i] = Permission(p)
	}
	return &Session{
		UserID:      c.UserID,
		Email:       c.Email,
		Role:        Role(c.Role),
		CompanyID:   cloneStringPtr(c.CompanyID),
		Permissions: perms,
		IssuedAt:    c.Issued(),
		ExpiresAt:   c.Expires(),
	}
}

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
