package siteguard

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/siteguard/cookie"
	"github.com/MrEthical07/siteguard/token"
)

// Config holds every tunable of the [Engine]. Start from [DefaultConfig] and
// override fields; [Builder.Build] validates the result.
type Config struct {
	Session   SessionConfig
	CSRF      CSRFConfig
	Cookie    CookieConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig controls the session token and its cookie.
type SessionConfig struct {
	// Secret signs session tokens. At least token.MinSecretSize bytes.
	Secret      []byte
	Issuer      string
	CookieName  string
	CookieLevel cookie.Level
	TTL         time.Duration
}

/*
====================================
CSRF CONFIG
====================================
*/

// CSRFConfig controls anti-forgery tokens.
type CSRFConfig struct {
	// Secret signs CSRF tokens. When empty a key is derived from Session.Secret.
	Secret      []byte
	CookieName  string
	CookieLevel cookie.Level
	HeaderName  string
	TTL         time.Duration
	// ExemptPaths are never CSRF-checked regardless of method.
	ExemptPaths []string
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig describes the deployment environment for cookie attributes.
type CookieConfig struct {
	Production  bool
	ForceSecure bool
	// Domain is applied to every cookie. It cannot be combined with cookie.LevelHighest.
	Domain string
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig controls the dual-window limiter.
type RateLimitConfig struct {
	ShortWindow time.Duration
	ShortLimit  int
	DailyWindow time.Duration
	DailyLimit  int

	// RedisURL selects the shared store when no client is passed to the builder.
	// Empty means in-memory only.
	RedisURL     string
	KeyPrefix    string
	StoreTimeout time.Duration
	// SweepInterval is how often idle identifiers are dropped from the in-memory store.
	SweepInterval time.Duration
	// TrustProxyHeaders makes client IP resolution honor X-Forwarded-For and X-Real-IP.
	TrustProxyHeaders bool
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

// AuditConfig controls asynchronous audit event dispatch.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns a development configuration without secrets.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			Issuer:      "siteguard",
			CookieName:  "session",
			CookieLevel: cookie.LevelHighest,
			TTL:         7 * 24 * time.Hour,
		},
		CSRF: CSRFConfig{
			CookieName:  "csrf",
			CookieLevel: cookie.LevelHighest,
			HeaderName:  "x-csrf-token",
			TTL:         time.Hour,
			ExemptPaths: []string{"/api/health"},
		},
		RateLimit: RateLimitConfig{
			ShortWindow:   15 * time.Minute,
			ShortLimit:    3,
			DailyWindow:   24 * time.Hour,
			DailyLimit:    10,
			KeyPrefix:     "rl",
			StoreTimeout:  500 * time.Millisecond,
			SweepInterval: time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Session.Secret = cloneBytes(cfg.Session.Secret)
	out.CSRF.Secret = cloneBytes(cfg.CSRF.Secret)
	if cfg.CSRF.ExemptPaths != nil {
		out.CSRF.ExemptPaths = append([]string(nil), cfg.CSRF.ExemptPaths...)
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration error, or nil.
func (c *Config) Validate() error {
	// Session
	if len(c.Session.Secret) < token.MinSecretSize {
		return fmt.Errorf("Session Secret must be at least %d bytes", token.MinSecretSize)
	}
	if c.Session.TTL <= 0 {
		return errors.New("Session TTL must be > 0")
	}
	if c.Session.CookieName == "" {
		return errors.New("Session CookieName must be set")
	}

	// CSRF
	if len(c.CSRF.Secret) > 0 && len(c.CSRF.Secret) < token.MinSecretSize {
		return fmt.Errorf("CSRF Secret must be at least %d bytes", token.MinSecretSize)
	}
	if c.CSRF.TTL <= 0 {
		return errors.New("CSRF TTL must be > 0")
	}
	if c.CSRF.CookieName == "" {
		return errors.New("CSRF CookieName must be set")
	}
	if c.CSRF.HeaderName == "" {
		return errors.New("CSRF HeaderName must be set")
	}
	if c.CSRF.CookieName == c.Session.CookieName {
		return errors.New("CSRF CookieName must differ from Session CookieName")
	}

	// Cookies are resolved once here so a bad level/domain pairing fails at build time.
	policy := cookie.NewPolicy(cookie.Environment{
		Production:  c.Cookie.Production,
		ForceSecure: c.Cookie.ForceSecure,
	})
	ov := cookie.Overrides{Domain: c.Cookie.Domain}
	if _, err := policy.Cookie(c.Session.CookieName, "", c.Session.CookieLevel, ov); err != nil {
		return fmt.Errorf("Session cookie: %w", err)
	}
	if _, err := policy.Cookie(c.CSRF.CookieName, "", c.CSRF.CookieLevel, ov); err != nil {
		return fmt.Errorf("CSRF cookie: %w", err)
	}

	// Rate limit
	if c.RateLimit.ShortWindow <= 0 || c.RateLimit.DailyWindow <= 0 {
		return errors.New("RateLimit windows must be > 0")
	}
	if c.RateLimit.ShortLimit <= 0 || c.RateLimit.DailyLimit <= 0 {
		return errors.New("RateLimit limits must be > 0")
	}
	if c.RateLimit.ShortWindow >= c.RateLimit.DailyWindow {
		return errors.New("RateLimit ShortWindow must be smaller than DailyWindow")
	}
	if c.RateLimit.StoreTimeout < 0 {
		return errors.New("RateLimit StoreTimeout must be >= 0")
	}
	if c.RateLimit.SweepInterval <= 0 {
		return errors.New("RateLimit SweepInterval must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
