package middleware

import (
	"context"
	"net/http"

	"github.com/MrEthical07/siteguard"
)

type sessionContextKey struct{}

// SessionFromContext returns the session resolved by [Pipeline] or a guard.
func SessionFromContext(ctx context.Context) (*siteguard.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey{}).(*siteguard.Session)
	return sess, ok && sess != nil
}

func withSession(ctx context.Context, sess *siteguard.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

type pipelineOptions struct {
	trustProxy bool
	identify   func(*http.Request) string
}

// Option configures [Pipeline].
type Option func(*pipelineOptions)

// WithTrustProxyHeaders overrides Config.RateLimit.TrustProxyHeaders.
func WithTrustProxyHeaders(trust bool) Option {
	return func(o *pipelineOptions) { o.trustProxy = trust }
}

// WithIdentifier replaces the client IP as the rate limit key. Returning "" falls
// back to the IP.
func WithIdentifier(fn func(*http.Request) string) Option {
	return func(o *pipelineOptions) { o.identify = fn }
}

const unknownClient = "unknown"

// Pipeline protects every request according to table. Stages run in order and
// stop at the first rejection:
//
//  1. CSRF validation on mutating methods, unless the policy or the engine
//     exempts the route.
//  2. Rate limiting against the client IP when the policy asks for it.
//  3. Session resolution and authorization when the policy requires anything.
//
// The resolved session is available to next through [SessionFromContext].
func Pipeline(engine *siteguard.Engine, table *PolicyTable, opts ...Option) func(http.Handler) http.Handler {
	var o pipelineOptions
	if engine != nil {
		o.trustProxy = engine.Config().RateLimit.TrustProxyHeaders
	}
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				WriteError(w, siteguard.ErrEngineNotReady)
				return
			}

			ip := ClientIP(r, o.trustProxy)
			ctx := siteguard.WithRoute(siteguard.WithClientIP(r.Context(), ip), r.Method, r.URL.Path)
			r = r.WithContext(ctx)

			policy, _ := table.Lookup(r.Method, r.URL.Path)

			if !policy.SkipCSRF && !engine.CSRFExempt(r.Method, r.URL.Path) {
				if err := engine.ValidateCSRF(r); err != nil {
					WriteError(w, err)
					return
				}
			}

			if policy.RateLimit {
				id := ip
				if o.identify != nil {
					if v := o.identify(r); v != "" {
						id = v
					}
				}
				if id == "" {
					id = unknownClient
				}

				res := engine.CheckLimit(ctx, id)
				if !res.Success {
					WriteRateLimited(w, res, engine.Now())
					return
				}
				WriteRateLimitHeaders(w, res, engine.Now())
			}

			if req := policy.Requirement(); !req.IsZero() {
				sess := engine.GetSession(r)
				if err := engine.Authorize(ctx, sess, req); err != nil {
					WriteError(w, err)
					return
				}
				r = r.WithContext(withSession(ctx, sess))
			}

			next.ServeHTTP(w, r)
		})
	}
}
