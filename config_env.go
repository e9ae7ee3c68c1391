package siteguard

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables read by [ConfigFromEnv].
const (
	EnvMode                  = "SITEGUARD_ENV"
	EnvSessionSecret         = "SESSION_SECRET"
	EnvCSRFSecret            = "CSRF_SECRET"
	EnvCookieForceSecure     = "COOKIE_FORCE_SECURE"
	EnvCookieDomain          = "COOKIE_DOMAIN"
	EnvRedisURL              = "REDIS_URL"
	EnvRateLimitStoreTimeout = "RATE_LIMIT_STORE_TIMEOUT"
	EnvTrustProxyHeaders     = "TRUST_PROXY_HEADERS"
)

// LoadEnvFiles loads .env style files into the process environment. Missing files
// are skipped and variables already set are never overwritten.
func LoadEnvFiles(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ConfigFromEnv returns [DefaultConfig] overlaid with values from the environment.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	mode := strings.ToLower(strings.TrimSpace(os.Getenv(EnvMode)))
	cfg.Cookie.Production = mode == "production" || mode == "prod"

	if v := os.Getenv(EnvSessionSecret); v != "" {
		cfg.Session.Secret = []byte(v)
	}
	if v := os.Getenv(EnvCSRFSecret); v != "" {
		cfg.CSRF.Secret = []byte(v)
	}
	cfg.Cookie.Domain = strings.TrimSpace(os.Getenv(EnvCookieDomain))
	cfg.RateLimit.RedisURL = strings.TrimSpace(os.Getenv(EnvRedisURL))

	var err error
	if cfg.Cookie.ForceSecure, err = envBool(EnvCookieForceSecure, cfg.Cookie.ForceSecure); err != nil {
		return Config{}, err
	}
	if cfg.RateLimit.TrustProxyHeaders, err = envBool(EnvTrustProxyHeaders, cfg.RateLimit.TrustProxyHeaders); err != nil {
		return Config{}, err
	}
	if cfg.RateLimit.StoreTimeout, err = envDuration(EnvRateLimitStoreTimeout, cfg.RateLimit.StoreTimeout); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func envBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
