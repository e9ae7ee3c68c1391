package siteguard

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/MrEthical07/siteguard/cookie"
	"github.com/MrEthical07/siteguard/token"
)

const csrfRandomBytes = 32

// csrfClaims is the signed payload of the CSRF cookie.
type csrfClaims struct {
	CSRF string `json:"csrf"`
	token.Timestamps
}

// IssueCSRFToken writes a fresh CSRF cookie and returns its value. Clients echo the
// value in the CSRF header on mutating requests.
func (e *Engine) IssueCSRFToken(w http.ResponseWriter) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}

	nonce, err := token.RandomHex(csrfRandomBytes)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCSRFIssueFailed, err)
	}

	ttl := e.config.CSRF.TTL
	tok, err := e.csrfCodec.Sign(&csrfClaims{CSRF: nonce}, ttl)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCSRFIssueFailed, err)
	}

	ov := cookie.Overrides{
		Domain: e.config.Cookie.Domain,
		MaxAge: int(ttl / time.Second),
	}
	if err := e.cookies.Set(w, e.config.CSRF.CookieName, tok, e.config.CSRF.CookieLevel, ov); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCSRFIssueFailed, err)
	}

	e.metricInc(MetricCSRFIssued)
	return tok, nil
}

// GetOrIssueCSRFToken returns the current CSRF cookie value when it still verifies,
// so the value stays stable across page loads until expiry. Otherwise a new token
// is issued.
func (e *Engine) GetOrIssueCSRFToken(w http.ResponseWriter, r *http.Request) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}

	if raw, ok := e.readCSRFCookie(r); ok {
		if err := e.verifyCSRF(raw); err == nil {
			return raw, nil
		}
	}
	return e.IssueCSRFToken(w)
}

// ValidateCSRF checks the double-submit pair on r. Checks run in order: both values
// present (ErrCSRFMissing), header equals cookie (ErrCSRFMismatch), cookie verifies
// (ErrCSRFInvalid). Exemptions are the caller's concern; see [Engine.CSRFExempt].
func (e *Engine) ValidateCSRF(r *http.Request) error {
	if e == nil {
		return ErrEngineNotReady
	}

	err := e.validateCSRF(r)
	switch {
	case err == nil:
		e.metricInc(MetricCSRFValid)
		return nil
	case errors.Is(err, ErrCSRFMissing):
		e.metricInc(MetricCSRFMissing)
	case errors.Is(err, ErrCSRFMismatch):
		e.metricInc(MetricCSRFMismatch)
	default:
		e.metricInc(MetricCSRFInvalid)
	}

	e.logger.Warn("csrf validation failed",
		"reason", string(auditErrorCode(err)),
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	e.emitAudit(r.Context(), auditEventCSRFRejected, false, "", "", err, nil)
	return err
}

func (e *Engine) validateCSRF(r *http.Request) error {
	cookieTok, ok := e.readCSRFCookie(r)
	headerTok := r.Header.Get(e.config.CSRF.HeaderName)
	if !ok || headerTok == "" {
		return ErrCSRFMissing
	}

	if subtle.ConstantTimeCompare([]byte(cookieTok), []byte(headerTok)) != 1 {
		return ErrCSRFMismatch
	}

	if err := e.verifyCSRF(cookieTok); err != nil {
		return fmt.Errorf("%w: %v", ErrCSRFInvalid, err)
	}
	return nil
}

// CSRFExempt reports whether a request is outside CSRF protection: safe methods and
// the configured exempt paths.
func (e *Engine) CSRFExempt(method, path string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return slices.Contains(e.config.CSRF.ExemptPaths, path)
}

func (e *Engine) readCSRFCookie(r *http.Request) (string, bool) {
	return e.cookies.Read(r, e.config.CSRF.CookieName, e.config.CSRF.CookieLevel)
}

func (e *Engine) verifyCSRF(raw string) error {
	var claims csrfClaims
	if err := e.csrfCodec.Verify(raw, &claims); err != nil {
		return err
	}
	if claims.CSRF == "" {
		return fmt.Errorf("%w: empty csrf claim", token.ErrInvalidToken)
	}
	return nil
}
