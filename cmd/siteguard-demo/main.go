// Command siteguard-demo serves a small job-board API protected by siteguard.
//
// Configuration comes from the environment (see siteguard.ConfigFromEnv), after
// loading --env-file. Without SESSION_SECRET an ephemeral secret is generated, so
// sessions do not survive a restart. Without REDIS_URL or --embedded-redis the rate
// limiter keeps its counters in process memory.
//
// Endpoints:
//
//	GET    /api/health             liveness
//	GET    /api/csrf               {"csrfToken": "..."} for the x-csrf-token header
//	POST   /api/waitlist           rate limited lead capture
//	POST   /api/session/demo       stands in for the identity provider callback,
//	                               mounted only with --demo-login or --demo-admin
//	GET    /api/session            current session
//	POST   /api/session/refresh    extend the session
//	DELETE /api/session            log out
//	GET    /api/jobs               public listings
//	POST   /api/jobs               employers only
//	PUT    /api/jobs/{id}          owning company only
//	DELETE /api/jobs/{id}          owning company only
//	GET    /api/admin/stats        admins only
//	GET    /api/admin/security     effective security settings, admins only
//	GET    /metrics                Prometheus text format
//
// Run:
//
//	go run ./cmd/siteguard-demo --embedded-redis --demo-login
//
// Then:
//
//	curl -s -c jar -b jar localhost:8080/api/csrf
//	curl -s -c jar -b jar -X POST localhost:8080/api/session/demo \
//	  -H "x-csrf-token: <csrfToken>" \
//	  -d '{"id":"u1","email":"e@example.com","role":"employer","companyId":"acme"}'
//
// --demo-login refuses role admin; --demo-admin accepts it. Never expose either on
// a public address.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrEthical07/siteguard"
	"github.com/MrEthical07/siteguard/metrics/export/prometheus"
	"github.com/MrEthical07/siteguard/middleware"
	"github.com/MrEthical07/siteguard/token"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		addr          string
		envFile       string
		policyPath    string
		embeddedRedis bool
		auditToStdout bool
		verbose       bool
		opts          options
	)

	flagSet := pflag.NewFlagSet("siteguard-demo", pflag.ContinueOnError)
	flagSet.StringVar(&addr, "addr", ":8080", "listen address")
	flagSet.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment (skipped if missing)")
	flagSet.StringVar(&policyPath, "policy", "", "YAML route policy file (default: built-in table)")
	flagSet.BoolVar(&embeddedRedis, "embedded-redis", false, "use an in-process miniredis as the shared rate limit store")
	flagSet.BoolVar(&auditToStdout, "audit", false, "write audit events to stdout as JSON lines")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	flagSet.BoolVar(&opts.demoLogin, "demo-login", false, "mount POST /api/session/demo for non-admin roles")
	flagSet.BoolVar(&opts.demoAdmin, "demo-admin", false, "mount POST /api/session/demo and allow role admin")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := siteguard.LoadEnvFiles(envFile); err != nil {
		return err
	}
	cfg, err := siteguard.ConfigFromEnv()
	if err != nil {
		return err
	}
	if len(cfg.Session.Secret) == 0 {
		secret, err := token.RandomHex(token.MinSecretSize)
		if err != nil {
			return fmt.Errorf("generate session secret: %w", err)
		}
		cfg.Session.Secret = []byte(secret)
		logger.Warn("SESSION_SECRET not set, using an ephemeral secret")
	}
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	cfg.Audit.Enabled = auditToStdout

	builder := siteguard.New().WithConfig(cfg).WithLogger(logger)
	if auditToStdout {
		builder.WithAuditSink(siteguard.NewJSONWriterSink(os.Stdout))
	}

	if embeddedRedis {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("start miniredis: %w", err)
		}
		defer mr.Close()

		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer rdb.Close()
		builder.WithRedis(rdb)
		logger.Info("using embedded redis", "addr", mr.Addr())
	}

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	table, err := loadPolicy(policyPath, engine)
	if err != nil {
		return err
	}

	mux := newApp(engine, logger, opts).routes()
	if opts.demoAdmin {
		logger.Warn("demo login can mint admin sessions")
	}
	mux.Handle("GET /metrics", prometheus.NewExporter(engine).Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           middleware.Pipeline(engine, table)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loadPolicy(path string, engine *siteguard.Engine) (*middleware.PolicyTable, error) {
	if path != "" {
		return middleware.LoadPolicyFile(path, engine)
	}
	table, err := defaultPolicy()
	if err != nil {
		return nil, err
	}
	return table, table.Validate(engine)
}

func defaultPolicy() (*middleware.PolicyTable, error) {
	post := []string{http.MethodPost}
	return middleware.NewPolicyTable(middleware.Policy{},
		middleware.Rule{Path: "/api/waitlist", Methods: post, Policy: middleware.Policy{RateLimit: true}},
		middleware.Rule{Path: "/api/session/demo", Methods: post, Policy: middleware.Policy{RateLimit: true}},
		middleware.Rule{Path: "/api/session", Methods: []string{http.MethodGet}, Policy: middleware.Policy{Authenticated: true}},
		middleware.Rule{Path: "/api/jobs", Methods: post, Policy: middleware.Policy{
			Permissions: []siteguard.Permission{siteguard.PermJobsCreate},
		}},
		middleware.Rule{Path: "/api/jobs/{id}", Match: middleware.MatchPattern, Methods: []string{http.MethodPut}, Policy: middleware.Policy{
			Permissions: []siteguard.Permission{siteguard.PermJobsEdit},
		}},
		middleware.Rule{Path: "/api/jobs/{id}", Match: middleware.MatchPattern, Methods: []string{http.MethodDelete}, Policy: middleware.Policy{
			Permissions: []siteguard.Permission{siteguard.PermJobsDelete},
		}},
		middleware.Rule{Path: "/api/admin", Match: middleware.MatchPrefix, Policy: middleware.Policy{
			Roles: []siteguard.Role{siteguard.RoleAdmin},
		}},
	)
}
