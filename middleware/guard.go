package middleware

import (
	"net/http"

	"github.com/MrEthical07/siteguard"
)

// Guard rejects requests whose session does not satisfy req. It does not run CSRF
// or rate limit checks; use [Pipeline] for full protection.
func Guard(engine *siteguard.Engine, req siteguard.Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				WriteError(w, siteguard.ErrEngineNotReady)
				return
			}

			sess, ok := SessionFromContext(r.Context())
			if !ok {
				sess = engine.GetSession(r)
			}
			if err := engine.Authorize(r.Context(), sess, req); err != nil {
				WriteError(w, err)
				return
			}

			if sess != nil {
				r = r.WithContext(withSession(r.Context(), sess))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RequireAuthenticated(engine *siteguard.Engine) func(http.Handler) http.Handler {
	return Guard(engine, siteguard.Requirement{Authenticated: true})
}

func RequireRole(engine *siteguard.Engine, roles ...siteguard.Role) func(http.Handler) http.Handler {
	return Guard(engine, siteguard.Requirement{Authenticated: true, Roles: roles})
}

func RequirePermission(engine *siteguard.Engine, perms ...siteguard.Permission) func(http.Handler) http.Handler {
	return Guard(engine, siteguard.Requirement{Authenticated: true, Permissions: perms})
}
