package siteguard

import "time"

// SecurityReport summarizes the effective security posture of an Engine.
type SecurityReport struct {
	Production        bool
	SecureCookies     bool
	SessionCookie     string
	CSRFCookie        string
	CSRFHeader        string
	SessionTTL        time.Duration
	CSRFTTL           time.Duration
	CSRFKeyDerived    bool
	SharedRateStore   bool
	ShortWindow       time.Duration
	ShortLimit        int
	DailyWindow       time.Duration
	DailyLimit        int
	TrustProxyHeaders bool
	AuditEnabled      bool
	AuditDropped      map[string]uint64
	MetricsEnabled    bool
	Roles             int
	Permissions       int
	Lint              LintResult
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	cfg := e.config
	return SecurityReport{
		Production:        cfg.Cookie.Production,
		SecureCookies:     cfg.Cookie.Production || cfg.Cookie.ForceSecure,
		SessionCookie:     e.cookies.Name(cfg.Session.CookieName, cfg.Session.CookieLevel),
		CSRFCookie:        e.cookies.Name(cfg.CSRF.CookieName, cfg.CSRF.CookieLevel),
		CSRFHeader:        cfg.CSRF.HeaderName,
		SessionTTL:        cfg.Session.TTL,
		CSRFTTL:           cfg.CSRF.TTL,
		CSRFKeyDerived:    len(cfg.CSRF.Secret) == 0,
		SharedRateStore:   e.sharedRateStore,
		ShortWindow:       cfg.RateLimit.ShortWindow,
		ShortLimit:        cfg.RateLimit.ShortLimit,
		DailyWindow:       cfg.RateLimit.DailyWindow,
		DailyLimit:        cfg.RateLimit.DailyLimit,
		TrustProxyHeaders: cfg.RateLimit.TrustProxyHeaders,
		AuditEnabled:      cfg.Audit.Enabled,
		AuditDropped:      e.audit.DroppedByType(),
		MetricsEnabled:    cfg.Metrics.Enabled,
		Roles:             e.roleManager.Count(),
		Permissions:       e.registry.Count(),
		Lint:              cfg.Lint(),
	}
}
