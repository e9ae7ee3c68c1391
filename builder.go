package siteguard

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/MrEthical07/siteguard/cookie"
	"github.com/MrEthical07/siteguard/internal/rate"
	"github.com/MrEthical07/siteguard/permission"
	"github.com/MrEthical07/siteguard/token"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. A Builder can be built once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	permissions []Permission
	roles       map[Role]RoleDefinition

	auditSink AuditSink
	logger    *slog.Logger
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig], the built-in permissions and
// the built-in roles.
func New() *Builder {
	return &Builder{
		config:      DefaultConfig(),
		permissions: AllPermissions(),
		roles:       DefaultRoles(),
	}
}

// WithConfig replaces the configuration. cfg is copied.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the shared rate limit store client. Without it the limiter runs
// in-memory unless Config.RateLimit.RedisURL is set. The Engine does not close a
// client passed here.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithPermissions replaces the permission registry contents.
func (b *Builder) WithPermissions(perms []Permission) *Builder {
	b.permissions = perms
	return b
}

// WithRoles replaces the role map.
func (b *Builder) WithRoles(roles map[Role]RoleDefinition) *Builder {
	b.roles = roles
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger for security diagnostics. Defaults to discarding.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithNow overrides the clock used for tokens and rate limiting.
func (b *Builder) WithNow(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and creates the [Engine].
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if len(b.permissions) == 0 {
		return nil, errors.New("permissions must be provided")
	}

	if len(b.roles) == 0 {
		return nil, errors.New("roles must be provided")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	// -------- PERMISSION REGISTRY --------
	registry := permission.NewRegistry()
	for _, p := range b.permissions {
		if _, err := registry.Register(string(p)); err != nil {
			return nil, fmt.Errorf("permission %q: %w", p, err)
		}
	}
	registry.Freeze()

	// -------- ROLE MANAGER --------
	roleManager := permission.NewRoleManager(registry)

	roleNames := make([]Role, 0, len(b.roles))
	for name := range b.roles {
		roleNames = append(roleNames, name)
	}
	slices.Sort(roleNames)

	for _, name := range roleNames {
		def := b.roles[name]
		perms := make([]string, len(def.Permissions))
		for i, p := range def.Permissions {
			perms[i] = string(p)
		}
		if err := roleManager.RegisterRole(string(name), perms, def.Superuser); err != nil {
			return nil, fmt.Errorf("role %q: %w", name, err)
		}
	}
	roleManager.Freeze()

	// -------- TOKEN CODECS --------
	sessionCodec, err := token.New(token.Config{
		Secret: cfg.Session.Secret,
		Issuer: cfg.Session.Issuer,
		Now:    now,
	})
	if err != nil {
		return nil, fmt.Errorf("session codec: %w", err)
	}

	csrfSecret := cfg.CSRF.Secret
	if len(csrfSecret) == 0 {
		if csrfSecret, err = deriveKey(cfg.Session.Secret, csrfKeyInfo); err != nil {
			return nil, fmt.Errorf("derive csrf key: %w", err)
		}
	}
	csrfCodec, err := token.New(token.Config{
		Secret: csrfSecret,
		Issuer: cfg.Session.Issuer + "/csrf",
		Now:    now,
	})
	if err != nil {
		return nil, fmt.Errorf("csrf codec: %w", err)
	}

	// -------- RATE LIMITER --------
	client := b.redis
	var ownedRedis redis.UniversalClient
	if client == nil && cfg.RateLimit.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RateLimit.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("RateLimit RedisURL: %w", err)
		}
		ownedRedis = redis.NewClient(opts)
		client = ownedRedis
	}

	var primary rate.Store
	if client != nil {
		primary = rate.NewRedisStore(client)
	}
	memory := rate.NewMemoryStore()

	limiter, err := rate.New(primary, memory, rate.Config{
		Windows: []rate.Window{
			{Name: ReasonShortWindow, Size: cfg.RateLimit.ShortWindow, Limit: cfg.RateLimit.ShortLimit},
			{Name: ReasonDailyWindow, Size: cfg.RateLimit.DailyWindow, Limit: cfg.RateLimit.DailyLimit},
		},
		KeyPrefix:    cfg.RateLimit.KeyPrefix,
		StoreTimeout: cfg.RateLimit.StoreTimeout,
	}, now)
	if err != nil {
		if ownedRedis != nil {
			_ = ownedRedis.Close()
		}
		return nil, err
	}

	engine := &Engine{
		config:       cfg,
		registry:     registry,
		roleManager:  roleManager,
		sessionCodec: sessionCodec,
		csrfCodec:    csrfCodec,
		limiter:      limiter,
		memoryStore:  memory,
		ownedRedis:   ownedRedis,
		logger:       logger,
		now:          now,

		sharedRateStore: primary != nil,
	}
	engine.cookies = cookie.NewPolicy(cookie.Environment{
		Production:  cfg.Cookie.Production,
		ForceSecure: cfg.Cookie.ForceSecure,
	})
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)
	engine.stopSweeper = memory.StartSweeper(cfg.RateLimit.SweepInterval, cfg.RateLimit.DailyWindow, now, engine.onSweep)

	for _, w := range cfg.Lint().BySeverity(LintWarn) {
		logger.Warn("config lint", "code", w.Code, "severity", w.Severity.String(), "message", w.Message)
	}

	logger.Info("siteguard engine ready",
		"production", cfg.Cookie.Production,
		"force_secure", cfg.Cookie.ForceSecure,
		"shared_rate_store", client != nil,
		"roles", len(roleNames),
		"permissions", registry.Count(),
	)

	b.built = true

	return engine, nil
}
