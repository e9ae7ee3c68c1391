package siteguard

import "errors"

var (
	// ErrUnauthenticated is returned when no valid session accompanies the request.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden is returned when a valid session lacks the required role or permission.
	ErrForbidden = errors.New("forbidden")

	// ErrCSRFMissing is returned when the CSRF cookie or header is absent.
	ErrCSRFMissing = errors.New("csrf token missing")
	// ErrCSRFMismatch is returned when the CSRF header differs from the cookie.
	ErrCSRFMismatch = errors.New("csrf token mismatch")
	// ErrCSRFInvalid is returned when the CSRF cookie fails signature or expiry checks.
	ErrCSRFInvalid = errors.New("csrf token invalid or expired")

	// ErrRateLimited is returned by callers that turn a failed [RateLimitResult] into an error.
	ErrRateLimited = errors.New("rate limited")

	// ErrInvalidRole is returned when an identity names a role that is not registered.
	ErrInvalidRole = errors.New("invalid role")
	// ErrInvalidIdentity is returned when an identity has no user id.
	ErrInvalidIdentity = errors.New("invalid identity")
	// ErrSessionCreationFailed is returned when a session token cannot be issued.
	ErrSessionCreationFailed = errors.New("session creation failed")
	// ErrCSRFIssueFailed is returned when a CSRF token cannot be issued.
	ErrCSRFIssueFailed = errors.New("csrf token issue failed")

	// ErrEngineNotReady is returned by methods called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// IsCSRFError reports whether err is one of the CSRF rejection errors.
func IsCSRFError(err error) bool {
	return errors.Is(err, ErrCSRFMissing) ||
		errors.Is(err, ErrCSRFMismatch) ||
		errors.Is(err, ErrCSRFInvalid)
}
