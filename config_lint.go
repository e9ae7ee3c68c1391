package siteguard

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/MrEthical07/siteguard/cookie"
)

// LintSeverity ranks a [LintWarning].
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("LintSeverity(%d)", int(s))
	}
}

// LintWarning flags a configuration that is valid but probably not intended.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the list of warnings returned by [Config.Lint].
type LintResult []LintWarning

const (
	maxRecommendedSessionTTL = 7 * 24 * time.Hour
	maxRecommendedCSRFTTL    = 24 * time.Hour
)

// Lint reviews c for risky but valid settings. Build logs every warning of
// severity LintWarn or above.
func (c Config) Lint() LintResult {
	var out LintResult
	add := func(code string, sev LintSeverity, format string, args ...any) {
		out = append(out, LintWarning{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	if !c.Cookie.Production && !c.Cookie.ForceSecure {
		add("not_production", LintInfo, "cookie names carry no __Host-/__Secure- prefix and only LevelHighest cookies are Secure")
	}
	if len(c.CSRF.Secret) > 0 && bytes.Equal(c.CSRF.Secret, c.Session.Secret) {
		add("csrf_secret_reused", LintHigh, "CSRF and session tokens share a signing secret; leave CSRF secret empty to derive a separate key")
	}
	if c.Session.TTL > maxRecommendedSessionTTL {
		add("session_ttl_long", LintWarn, "session TTL %s exceeds %s", c.Session.TTL, maxRecommendedSessionTTL)
	}
	if c.CSRF.TTL > maxRecommendedCSRFTTL {
		add("csrf_ttl_long", LintWarn, "CSRF TTL %s exceeds %s", c.CSRF.TTL, maxRecommendedCSRFTTL)
	}
	if c.Session.CookieLevel < cookie.LevelHigh {
		add("session_cookie_weak", LintWarn, "session cookie level %s allows cross-site sends or a non-Secure cookie in production", c.Session.CookieLevel)
	}
	if c.CSRF.CookieLevel < cookie.LevelHigh {
		add("csrf_cookie_weak", LintWarn, "CSRF cookie level %s allows cross-site sends or a non-Secure cookie in production", c.CSRF.CookieLevel)
	}
	for _, p := range c.CSRF.ExemptPaths {
		if p == "/" || p == "/api" || strings.HasSuffix(p, "*") {
			add("csrf_exempt_broad", LintWarn, "CSRF exempt path %q looks like a prefix; exempt paths match exactly", p)
		}
	}
	if c.RateLimit.RedisURL == "" {
		add("rate_limit_memory_only", LintInfo, "without a shared store each process keeps its own rate limit counters")
	}
	if c.RateLimit.StoreTimeout == 0 {
		add("store_timeout_disabled", LintWarn, "a stalled rate limit store blocks requests until the caller's context ends")
	}
	if c.RateLimit.TrustProxyHeaders {
		add("trust_proxy_headers", LintInfo, "client IPs come from X-Forwarded-For; clients can spoof it unless a proxy overwrites the header")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "security events are not audited")
	}

	return out
}

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	codes := make([]string, len(r))
	for i, w := range r {
		codes[i] = w.Code
	}
	return codes
}

// Has reports whether code was raised.
func (r LintResult) Has(code string) bool {
	return slices.ContainsFunc(r, func(w LintWarning) bool { return w.Code == code })
}

// BySeverity returns the warnings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError joins the warnings at or above min into one error, or returns nil.
func (r LintResult) AsError(min LintSeverity) error {
	var errs []error
	for _, w := range r.BySeverity(min) {
		errs = append(errs, fmt.Errorf("%s [%s]: %s", w.Code, w.Severity, w.Message))
	}
	return errors.Join(errs...)
}
