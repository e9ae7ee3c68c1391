package siteguard

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrEthical07/siteguard/cookie"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults with secret",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "missing session secret",
			mutate: func(c *Config) {
				c.Session.Secret = nil
			},
			wantValid: false,
		},
		{
			name: "short session secret",
			mutate: func(c *Config) {
				c.Session.Secret = []byte("short")
			},
			wantValid: false,
		},
		{
			name: "short csrf secret",
			mutate: func(c *Config) {
				c.CSRF.Secret = []byte("short")
			},
			wantValid: false,
		},
		{
			name: "zero session ttl",
			mutate: func(c *Config) {
				c.Session.TTL = 0
			},
			wantValid: false,
		},
		{
			name: "zero csrf ttl",
			mutate: func(c *Config) {
				c.CSRF.TTL = 0
			},
			wantValid: false,
		},
		{
			name: "shared cookie name",
			mutate: func(c *Config) {
				c.CSRF.CookieName = c.Session.CookieName
			},
			wantValid: false,
		},
		{
			name: "domain with highest level",
			mutate: func(c *Config) {
				c.Cookie.Domain = "example.com"
			},
			wantValid: false,
		},
		{
			name: "domain with high level",
			mutate: func(c *Config) {
				c.Cookie.Domain = "example.com"
				c.Session.CookieLevel = cookie.LevelHigh
				c.CSRF.CookieLevel = cookie.LevelHigh
			},
			wantValid: true,
		},
		{
			name: "unknown cookie level",
			mutate: func(c *Config) {
				c.Session.CookieLevel = cookie.Level(42)
			},
			wantValid: false,
		},
		{
			name: "short window not smaller than daily",
			mutate: func(c *Config) {
				c.RateLimit.ShortWindow = 24 * time.Hour
			},
			wantValid: false,
		},
		{
			name: "zero limit",
			mutate: func(c *Config) {
				c.RateLimit.DailyLimit = 0
			},
			wantValid: false,
		},
		{
			name: "negative store timeout",
			mutate: func(c *Config) {
				c.RateLimit.StoreTimeout = -time.Second
			},
			wantValid: false,
		},
		{
			name: "audit enabled without buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestBuildFailsFastOnHighestDomain(t *testing.T) {
	cfg := testConfig()
	cfg.Cookie.Domain = "jobs.example.com"

	if _, err := New().WithConfig(cfg).Build(); err == nil {
		t.Fatal("expected build to fail for a domain on a highest level cookie")
	}
}

func TestBuildRejectsRoleWithUnknownPermission(t *testing.T) {
	roles := DefaultRoles()
	roles[RoleGuest] = RoleDefinition{Permissions: []Permission{"jobs:teleport"}}

	if _, err := New().WithConfig(testConfig()).WithRoles(roles).Build(); err == nil {
		t.Fatal("expected build to fail")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	b := New().WithConfig(testConfig())
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestConfigCloneIsolation(t *testing.T) {
	cfg := testConfig()
	engine, _ := newTestEngine(t, cfg)

	cfg.Session.Secret[0] = 'X'
	cfg.CSRF.ExemptPaths[0] = "/mutated"

	got := engine.Config()
	if got.Session.Secret[0] != testSecret[0] {
		t.Fatal("engine config must not alias caller secret")
	}
	if got.CSRF.ExemptPaths[0] != "/api/health" {
		t.Fatal("engine config must not alias caller slices")
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv(EnvMode, "production")
	t.Setenv(EnvSessionSecret, string(testSecret))
	t.Setenv(EnvCSRFSecret, "")
	t.Setenv(EnvCookieForceSecure, "true")
	t.Setenv(EnvCookieDomain, "")
	t.Setenv(EnvRedisURL, "redis://localhost:6379/2")
	t.Setenv(EnvRateLimitStoreTimeout, "250ms")
	t.Setenv(EnvTrustProxyHeaders, "1")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	if !cfg.Cookie.Production || !cfg.Cookie.ForceSecure {
		t.Fatalf("unexpected cookie config: %+v", cfg.Cookie)
	}
	if string(cfg.Session.Secret) != string(testSecret) || len(cfg.CSRF.Secret) != 0 {
		t.Fatal("unexpected secrets")
	}
	if cfg.RateLimit.RedisURL != "redis://localhost:6379/2" {
		t.Fatalf("unexpected redis url %q", cfg.RateLimit.RedisURL)
	}
	if cfg.RateLimit.StoreTimeout != 250*time.Millisecond || !cfg.RateLimit.TrustProxyHeaders {
		t.Fatalf("unexpected rate limit config: %+v", cfg.RateLimit)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("env config should validate: %v", err)
	}
}

func TestConfigFromEnvRejectsBadValues(t *testing.T) {
	t.Setenv(EnvCookieForceSecure, "maybe")
	if _, err := ConfigFromEnv(); err == nil {
		t.Fatal("expected bool parse error")
	}

	t.Setenv(EnvCookieForceSecure, "")
	t.Setenv(EnvRateLimitStoreTimeout, "soon")
	if _, err := ConfigFromEnv(); err == nil {
		t.Fatal("expected duration parse error")
	}
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("SITEGUARD_TEST_VALUE=from-file\nSITEGUARD_TEST_KEEP=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	t.Setenv("SITEGUARD_TEST_KEEP", "from-env")
	t.Setenv("SITEGUARD_TEST_VALUE", "")
	os.Unsetenv("SITEGUARD_TEST_VALUE")

	if err := LoadEnvFiles(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("LoadEnvFiles: %v", err)
	}
	if got := os.Getenv("SITEGUARD_TEST_VALUE"); got != "from-file" {
		t.Fatalf("expected value from file, got %q", got)
	}
	if got := os.Getenv("SITEGUARD_TEST_KEEP"); got != "from-env" {
		t.Fatalf("existing variables must win, got %q", got)
	}
}

func TestDeriveKeyIsDeterministicAndBound(t *testing.T) {
	a, err := deriveKey(testSecret, csrfKeyInfo)
	if err != nil {
		t.Fatalf("deriveKey: %v", err)
	}
	b, _ := deriveKey(testSecret, csrfKeyInfo)
	c, _ := deriveKey(testSecret, "other purpose")

	if string(a) != string(b) {
		t.Fatal("derivation must be deterministic")
	}
	if string(a) == string(c) || string(a) == string(testSecret) {
		t.Fatal("derived key must depend on purpose and differ from the secret")
	}
	if len(a) != 32 {
		t.Fatalf("expected 32 byte key, got %d", len(a))
	}
}
