// Package siteguard is the security core of the job board: signed cookie sessions
// with role/permission authorization, double-submit CSRF tokens, and a dual sliding
// window rate limiter with an in-memory fallback.
//
// The package is designed for concurrent server workloads: Engine methods are safe to
// call from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// siteguard is the public surface. It exposes [Engine], [Builder], [Config], and value
// types ([Session], [Identity], [RateLimitResult]). Token signing lives in token/,
// cookie attribute policy in cookie/, the role map in permission/, and the limiter core
// under internal/rate. HTTP route policy and response shaping live in middleware/.
//
// # Sessions are stateless
//
// A session exists only as a signed cookie. There is no server-side copy and no
// revocation list: a stolen session cookie stays valid until it expires. Destroying a
// session clears the cookie on the calling client only.
//
// # What this package must NOT do
//
//   - Expose Redis clients, limiter stores, or token encoding in its public API.
//   - Return detailed failure reasons to clients. Reasons go to the logger and the
//     audit sink; callers get sentinel errors.
//   - Import middleware (no import cycles).
package siteguard
